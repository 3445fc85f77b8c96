package riskday

// Option applies a configuration option to the Assembler.
type Option func(*Assembler)

// WithJoinMode selects positional or key-based joining.
func WithJoinMode(mode JoinMode) Option {
	return func(a *Assembler) {
		a.mode = mode
	}
}
