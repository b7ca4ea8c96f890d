package interfaces

// Logger is the levelled logger shared by every package. Messages are
// preformatted by the caller.
type Logger interface {
	Info(message string)
	Error(message string)
	Warn(message string)
	Debug(message string)
}
