package models

import (
	"slices"

	"grabarr/internal/domain/consts"
)

// CapabilityProfile holds the encoders usable on this machine.
type CapabilityProfile struct {
	GPUVendor         consts.GPUVendor    `json:"gpu_vendor"`
	AvailableEncoders map[string]struct{} `json:"-"`
}

// SoftwareOnlyProfile is the fail-closed profile.
func SoftwareOnlyProfile() CapabilityProfile {
	return CapabilityProfile{
		GPUVendor:         consts.GPUNone,
		AvailableEncoders: map[string]struct{}{consts.EncoderSoftware: {}},
	}
}

// Has reports whether the encoder is available.
func (c CapabilityProfile) Has(encoder string) bool {
	_, ok := c.AvailableEncoders[encoder]
	return ok
}

// Encoders returns the available encoders, sorted.
func (c CapabilityProfile) Encoders() []string {
	out := make([]string, 0, len(c.AvailableEncoders))
	for e := range c.AvailableEncoders {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}
