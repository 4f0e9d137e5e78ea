package transaction

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Recorder counts settled transactions.
type Recorder interface {
	ObserveTransaction(kind, status string)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

type nopRecorder struct{}

func (nopRecorder) ObserveTransaction(string, string) {}
