package model

// Shared defaults used by the processor, the host adapter and the CLI.
const (
	DefaultPayloadType = PayloadText
	DefaultLogType     = LogTypeIntermediate
	DefaultApp         = "flowlog"
)
