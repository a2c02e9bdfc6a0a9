package port

// Fields carries structured data for a log entry.
type Fields map[string]interface{}

// LoggerPort is the logging contract the core depends on.
type LoggerPort interface {
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	// Error logs msg together with err.
	Error(msg string, err error, fields Fields)
	Debug(msg string, fields Fields)

	// WithFields returns a logger that adds fields to every entry, e.g. a trace_id.
	WithFields(fields Fields) LoggerPort
}
