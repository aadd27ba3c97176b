package consts

import "time"

// External engine timeouts.
const (
	ProbeTimeout        = 10 * time.Second
	VersionCheckTimeout = 10 * time.Second
)

// Network timeouts.
const (
	ThumbnailTimeout = 5 * time.Second
	ScraperTimeout   = 20 * time.Second
	HTTPReadTimeout  = 15 * time.Second
)

// Intervals.
const (
	Interval100ms    = 100 * time.Millisecond
	ProgressThrottle = 250 * time.Millisecond
	ProcessWaitDelay = 5 * time.Second
)
