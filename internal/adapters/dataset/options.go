package dataset

// Option applies a configuration option to the Loader.
type Option func(*Loader)

// WithRiskPath sets the risk score CSV path.
func WithRiskPath(path string) Option {
	return func(l *Loader) {
		if path != "" {
			l.riskPath = path
		}
	}
}

// WithPOIPath sets the POI CSV path.
func WithPOIPath(path string) Option {
	return func(l *Loader) {
		if path != "" {
			l.poiPath = path
		}
	}
}

// WithJoinKey requires column in both files and reads it as the join key.
func WithJoinKey(column string) Option {
	return func(l *Loader) {
		l.joinKey = column
	}
}
