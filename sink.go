package unitmeta

// DiagSink receives diagnostics emitted while encoding a unit. Fatal
// reports are delivered before the encoder aborts; the error returned
// from the encode call carries the same information.
type DiagSink interface {
	// Warn reports a recoverable oddity in the input.
	Warn(msg string)

	// Fatal reports the condition that aborts the encode.
	Fatal(msg string)
}

// NopSink discards all diagnostics. It is the default sink.
type NopSink struct{}

func (NopSink) Warn(string)  {}
func (NopSink) Fatal(string) {}
