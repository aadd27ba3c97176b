package consts

// GPUVendor is the class of hardware encoder found on the machine.
type GPUVendor string

const (
	GPUNone   GPUVendor = "none"
	GPUNvidia GPUVendor = "nvidia"
	GPUAMD    GPUVendor = "amd"
	GPUIntel  GPUVendor = "intel"
)

// Encoder names as reported by ffmpeg -encoders.
const (
	EncoderSoftware = "libx264"
	EncoderNvidia   = "h264_nvenc"
	EncoderAMD      = "h264_amf"
	EncoderIntel    = "h264_qsv"
)

// VendorPriority is the order vendors are preferred in when several are detected.
var VendorPriority = [...]GPUVendor{GPUNvidia, GPUAMD, GPUIntel}

// VendorMarkers holds the case-insensitive substrings that indicate a vendor's encoders.
var VendorMarkers = map[GPUVendor]string{
	GPUNvidia: "nvenc",
	GPUAMD:    "amf",
	GPUIntel:  "qsv",
}

// VendorEncoders maps a vendor to its H.264 encoder.
var VendorEncoders = map[GPUVendor]string{
	GPUNvidia: EncoderNvidia,
	GPUAMD:    EncoderAMD,
	GPUIntel:  EncoderIntel,
}

// EncoderVendors maps an encoder name back to its vendor.
var EncoderVendors = map[string]GPUVendor{
	EncoderSoftware: GPUNone,
	EncoderNvidia:   GPUNvidia,
	EncoderAMD:      GPUAMD,
	EncoderIntel:    GPUIntel,
}
