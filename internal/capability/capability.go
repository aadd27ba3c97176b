// Package capability detects the hardware encoders available to the transcode engine.
package capability

import (
	"context"
	"strings"
	"sync"
	"time"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/logger"
	"grabarr/internal/domain/regex"
	"grabarr/internal/models"
)

// EncoderLister returns the transcode engine's raw encoder listing.
type EncoderLister interface {
	Encoders(ctx context.Context) (string, error)
}

// Prober runs the encoder listing and classifies it.
type Prober struct {
	Lister  EncoderLister
	Timeout time.Duration
}

// NewProber returns a prober bounded by timeout (consts.ProbeTimeout when zero).
func NewProber(l EncoderLister, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = consts.ProbeTimeout
	}
	return &Prober{Lister: l, Timeout: timeout}
}

// Probe never fails: any error yields the software-only profile.
func (p *Prober) Probe(ctx context.Context) models.CapabilityProfile {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	out, err := p.Lister.Encoders(ctx)
	if err != nil {
		logger.Pl.W("Encoder probe failed, using software encoding: %v", err)
		return models.SoftwareOnlyProfile()
	}

	profile := Classify(out)
	logger.Pl.I("Detected GPU vendor %q, encoders: %v", profile.GPUVendor, profile.Encoders())
	return profile
}

// Classify builds a profile from raw -encoders output.
func Classify(output string) models.CapabilityProfile {
	encoders := ParseEncoders(output)
	encoders[consts.EncoderSoftware] = struct{}{}

	return models.CapabilityProfile{
		GPUVendor:         ClassifyVendor(output, encoders),
		AvailableEncoders: encoders,
	}
}

// ParseEncoders returns the video encoder names listed in the encoder table.
func ParseEncoders(output string) map[string]struct{} {
	encoders := make(map[string]struct{})
	for line := range strings.SplitSeq(output, "\n") {
		m := regex.EncoderLineCompile().FindStringSubmatch(line)
		if m == nil || m[1] != "V" {
			continue
		}
		// Legend rows (" V..... = Video") share the flag layout.
		if m[2] == "=" {
			continue
		}
		encoders[m[2]] = struct{}{}
	}
	return encoders
}

// ClassifyVendor picks the GPU vendor from markers in the output.
//
// A lone marker wins outright. With several, the first vendor in consts.VendorPriority
// whose H.264 encoder is in encoders is chosen, else none.
func ClassifyVendor(output string, encoders map[string]struct{}) consts.GPUVendor {
	lower := strings.ToLower(output)

	var found []consts.GPUVendor
	for _, v := range consts.VendorPriority {
		if strings.Contains(lower, consts.VendorMarkers[v]) {
			found = append(found, v)
		}
	}

	switch len(found) {
	case 0:
		return consts.GPUNone
	case 1:
		return found[0]
	}

	for _, v := range found {
		if _, ok := encoders[consts.VendorEncoders[v]]; ok {
			return v
		}
	}
	return consts.GPUNone
}

// Cache probes at most once and hands every caller the same profile.
type Cache struct {
	prober  *Prober
	once    sync.Once
	done    chan struct{}
	profile models.CapabilityProfile
}

// NewCache wraps a prober.
func NewCache(p *Prober) *Cache {
	return &Cache{prober: p, done: make(chan struct{})}
}

// Start launches the probe in the background. Cancelling ctx does not abort it; the
// prober's own timeout bounds it. Calls after the first are no-ops.
func (c *Cache) Start(ctx context.Context) {
	c.once.Do(func() {
		ctx := context.WithoutCancel(ctx)
		go func() {
			c.profile = c.prober.Probe(ctx)
			close(c.done)
		}()
	})
}

// Get waits for the probed profile. If ctx ends first the software-only profile is
// returned for this call only and the cached result is left untouched.
func (c *Cache) Get(ctx context.Context) models.CapabilityProfile {
	c.Start(ctx)
	select {
	case <-c.done:
		return c.profile
	case <-ctx.Done():
		return models.SoftwareOnlyProfile()
	}
}
