package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus to provide structured logging with a fixed set of
// service-scoped fields.
type Logger struct {
	entry *logrus.Entry
}

// Init configures the global logrus settings. It must be called once at
// process startup, before any Logger is created.
func Init(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logrus.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}

// New creates a Logger carrying the service name on every entry.
func New(serviceName string) *Logger {
	return &Logger{
		entry: logrus.WithFields(logrus.Fields{
			"service_name": serviceName,
		}),
	}
}

// WithField returns a Logger with an extra structured field attached.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithOwner returns a Logger scoped to a tenant.
func (l *Logger) WithOwner(ownerID string) *Logger {
	return &Logger{entry: l.entry.WithField("owner_id", ownerID)}
}

// WithError attaches an error to the log entry.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

// Info logs a message at info level.
func (l *Logger) Info(message string) {
	l.entry.Info(message)
}

// Warn logs a message at warning level.
func (l *Logger) Warn(message string) {
	l.entry.Warn(message)
}

// Error logs a message at error level.
func (l *Logger) Error(message string) {
	l.entry.Error(message)
}

// Debug logs a message at debug level.
func (l *Logger) Debug(message string) {
	l.entry.Debug(message)
}

// Fatal logs a message at fatal level and terminates the process.
func (l *Logger) Fatal(message string) {
	l.entry.Fatal(message)
}
