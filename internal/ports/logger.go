package ports

// Logger is the structured logging capability threaded through the
// pipeline driver and its adapters. Implementations accept alternating
// key/value pairs after the message, matching github.com/baditaflorin/l.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Close() error
}
