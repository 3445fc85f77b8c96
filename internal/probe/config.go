package probe

import (
	"time"

	"github.com/okian/poirisk/internal/domain/interaction"
	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/internal/domain/view"
)

// Config holds configuration for a probe run
type Config struct {
	BaseURL    string        // Base URL of the dashboard
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Optional JSON report of every check
	LogFile    string        // Optional log file, mirrored to stdout
	LogFormat  string        // text, json, console or auto
	Verbose    bool          // Log every failed check

	// Categories restricts the probed categories. Empty probes every
	// category the dashboard offers.
	Categories []string

	// Expected map viewport.
	Center view.Center
	Zoom   float64
}

// NewConfig returns a Config with defaults.
func NewConfig() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Workers: DefaultWorkers,
		Timeout: DefaultTimeout,
		Center:  view.DefaultMapSettings().Center,
		Zoom:    view.DefaultMapSettings().Zoom,
	}
}

// Check is a single view request issued after a selector change.
type Check struct {
	View        interaction.ViewID `json:"view"`
	Selection   model.Selection    `json:"selection"`
	ExpectEmpty bool               `json:"expect_empty,omitempty"`
}

// Result is the outcome of one Check.
type Result struct {
	Check     Check            `json:"check"`
	RequestID string           `json:"request_id"`
	Status    int              `json:"status"`
	Count     int              `json:"count"`
	Latency   time.Duration    `json:"latency"`
	Err       string           `json:"error,omitempty"`
	Echoed    string           `json:"-"`
	Histogram *view.Histogram  `json:"-"`
	Map       *view.ScatterMap `json:"-"`
}

// Failed reports whether the request itself did not succeed.
func (r Result) Failed() bool { return r.Err != "" }

// Stats holds probe statistics
type Stats struct {
	Categories    int
	ChecksPlanned int
	Requests      int
	Successful    int
	Failed        int
	EmptyViews    int
	Violations    int
	MaxLatency    time.Duration
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
