package probe

import "time"

// Defaults.
const (
	DefaultBaseURL    = "http://localhost:8050"
	DefaultWorkers    = 8
	DefaultTimeout    = 30 * time.Second
	DefaultRunTimeout = 10 * time.Minute
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
	progressInterval        = time.Second
	PercentageMultiplier    = 100
)

// noMatchCategory is never a substring of a real category label.
const noMatchCategory = "~riskprobe:no-such-category~"

// maxErrorBody bounds how much of a failed response is kept.
const maxErrorBody = 256

// File permission constants.
const (
	directoryPermission = 0750
	logFilePermission   = 0600
)
