package keypivot

type options struct {
	logger *Logger
}

// Option configures Open behavior.
//
// Options exist to keep the constructor surface small; today the only knob
// is logging, which defaults to off (library etiquette).
type Option func(*options)

// WithLogger configures structured logging for the table's scan and write
// paths. If nil is passed, logging stays disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}
