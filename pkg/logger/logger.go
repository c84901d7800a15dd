package logger

// Backend is a destination for log output. The process-wide logger fans
// every call out to all registered backends.
type Backend interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

var backends []Backend

// Init registers the logging backends for the process. Call it once at
// startup before any logging happens, calls before Init are dropped.
func Init(instances ...Backend) {
	backends = instances
}

// Log writes a message at the default level.
func Log(message string, keyvals ...any) {
	for _, backend := range backends {
		backend.Log(message, keyvals...)
	}
}

// Debug writes a message at DEBUG level.
func Debug(message string, keyvals ...any) {
	for _, backend := range backends {
		backend.Debug(message, keyvals...)
	}
}

// Info writes a message at INFO level.
func Info(message string, keyvals ...any) {
	for _, backend := range backends {
		backend.Info(message, keyvals...)
	}
}

// Warn writes a message at WARN level.
func Warn(message string, keyvals ...any) {
	for _, backend := range backends {
		backend.Warn(message, keyvals...)
	}
}

// Error writes a message at ERROR level.
func Error(message string, keyvals ...any) {
	for _, backend := range backends {
		backend.Error(message, keyvals...)
	}
}

// Fatal writes a message at FATAL level and terminates the program.
func Fatal(message string, keyvals ...any) {
	for _, backend := range backends {
		backend.Fatal(message, keyvals...)
	}
}
