package downloads

import (
	"fmt"
	"path/filepath"
	"slices"

	"grabarr/internal/domain/command"
	"grabarr/internal/domain/consts"
	"grabarr/internal/engine"
	"grabarr/internal/models"
	"grabarr/internal/parsing"
)

// ChooseEncoder returns the requested encoder if the profile has it, otherwise libx264.
// "auto" (or empty) picks the detected vendor's H.264 encoder.
func ChooseEncoder(requested string, caps models.CapabilityProfile) string {
	if requested == "" || requested == consts.EncoderAuto {
		if enc, ok := consts.VendorEncoders[caps.GPUVendor]; ok && caps.Has(enc) {
			return enc
		}
		return consts.EncoderSoftware
	}
	if caps.Has(requested) {
		return requested
	}
	return consts.EncoderSoftware
}

// EncoderArgs returns the video codec arguments for an encoder at a bitrate.
func EncoderArgs(encoder, bitrate string) []string {
	if bitrate == "" {
		bitrate = consts.DefaultBitrate
	}

	var tuning []string
	switch consts.EncoderVendors[encoder] {
	case consts.GPUNvidia:
		tuning = command.NvidiaArgs
	case consts.GPUAMD:
		tuning = command.AMDArgs
	case consts.GPUIntel:
		tuning = command.IntelArgs
	default:
		tuning = command.SoftwareArgs
	}

	args := []string{command.VideoCodec, encoder}
	args = append(args, tuning...)
	args = append(args, command.VideoBitrate, bitrate)
	args = append(args, command.PixelFmt...)
	args = append(args, command.AudioToAAC...)
	args = append(args, command.FastStart...)
	args = append(args, command.OutputMP4...)
	return args
}

// VideoFormat returns the stream selector for a maximum height, excluding AV1.
func VideoFormat(height int) string {
	if height <= 0 {
		height = consts.DefaultResolution
	}
	return fmt.Sprintf(command.FormatVideoTmpl, height, height)
}

// plan is everything needed to execute one job.
type plan struct {
	job       models.DownloadJob
	request   engine.DownloadRequest
	codecArgs []string
	baseName  string
}

// buildPlan derives the download job for an item from its resolved metadata.
// Names already claimed in used get the video ID appended.
func buildPlan(dest string, item models.LinkItem, meta models.VideoMeta, mt models.MediaType, sel models.Selections, caps models.CapabilityProfile, used map[string]struct{}) plan {
	title := meta.Title
	if title == "" {
		title = item.DisplayTitle()
	}
	id := meta.ID
	if id == "" {
		id = item.ID
	}
	base := claimBaseName(parsing.SanitizeFilename(title, id), id, used)

	p := plan{
		baseName: base,
		job: models.DownloadJob{
			Link:      item,
			MediaType: mt,
			Title:     title,
			Duration:  meta.Duration,
		},
		request: engine.DownloadRequest{URL: item.URL},
	}

	switch mt {
	case models.MediaAudio:
		p.request.Format = command.FormatBestAudio
		p.request.OutputTemplate = filepath.Join(dest, base+".%(ext)s")
		p.request.Extra = []string{
			command.ExtractAudio,
			command.AudioFormat, command.AudioOutputFormat,
			command.AudioQuality, command.AudioOutputQuality,
			command.EmbedMetadata,
		}
		p.job.OutputPath = filepath.Join(dest, base+"."+command.AudioOutputFormat)

	case models.MediaVideo:
		res := sel.Resolution
		if !slices.Contains(consts.Resolutions[:], res) {
			res = consts.DefaultResolution
		}
		bitrate := sel.Bitrate
		if bitrate == "" {
			bitrate = consts.DefaultBitrate
		}
		encoder := ChooseEncoder(sel.Encoder, caps)

		p.job.Resolution = res
		p.job.Bitrate = bitrate
		p.job.Encoder = encoder
		p.request.Format = VideoFormat(res)
		p.request.OutputTemplate = filepath.Join(dest, consts.TempTag+base+".%(ext)s")
		p.codecArgs = EncoderArgs(encoder, bitrate)
		p.job.OutputPath = filepath.Join(dest, base+command.OutputExtMP4)
	}
	return p
}

// claimBaseName returns base, or base_<id> when an earlier item of the batch already
// claimed base, adding a counter if that is taken too. The result is recorded in used.
func claimBaseName(base, id string, used map[string]struct{}) string {
	if used == nil {
		return base
	}
	name := base
	if _, taken := used[name]; taken && id != "" {
		name = base + "_" + parsing.SanitizeFilename(id, "")
	}
	stem := name
	for n := 2; ; n++ {
		if _, taken := used[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d", stem, n)
	}
	used[name] = struct{}{}
	return name
}
