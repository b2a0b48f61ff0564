package model

// IngestEnvelope carries one raw event line with source metadata.
// It is the transport contract between input plugins and the host adapter.
type IngestEnvelope struct {
	Source string
	// Stream identifies one ordered line stream within Source, such as a
	// TCP connection. Lines of a multi-line event never cross streams.
	Stream string
	Line   string
}
