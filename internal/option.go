package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	check  CheckOptions
}

// CheckOptions carry the check-mode flags.
type CheckOptions struct {
	// Strict fails the run when broken links exist.
	Strict bool
	// FailOnWarnings fails the run when ambiguous or unresolved references
	// or orphan documents exist.
	FailOnWarnings bool
	// Format selects the report rendering, FormatJSON or FormatMarkdown.
	Format string
	// Output is the report destination file; empty writes to stdout.
	Output string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithCheckOptions sets the check-mode flags.
func WithCheckOptions(o CheckOptions) Option {
	return func(a *application) {
		a.check = o
	}
}
