package model

import (
	"fmt"
	"strings"
)

// LogType is the coarse stage tag describing where in a flow a line was emitted.
type LogType int

// The zero value is LogTypeIntermediate, the default tag.
const (
	// LogTypeIntermediate tracks intermediate payloads of an ongoing flow.
	LogTypeIntermediate LogType = iota
	// LogTypeEntry marks incoming payloads, usually the first element in a flow.
	LogTypeEntry
	// LogTypeAuxiliary marks additional data coming in from auxiliary systems.
	LogTypeAuxiliary
	// LogTypeAudit tracks audit messages.
	LogTypeAudit
	// LogTypeExit marks a payload about to leave the flow.
	LogTypeExit
)

var logTypeNames = [...]string{"INTERMEDIATE", "ENTRY", "AUXILIARY", "AUDIT", "EXIT"}

func (t LogType) String() string {
	if t >= LogTypeIntermediate && t <= LogTypeExit {
		return logTypeNames[t]
	}
	return "UNKNOWN"
}

// ParseLogType parses a log type name, ignoring case and surrounding space.
func ParseLogType(s string) (LogType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range logTypeNames {
		if n == name {
			return LogType(i), nil
		}
	}
	return DefaultLogType, fmt.Errorf("invalid log type: %q", s)
}

// PayloadType is the declared shape of an event payload.
type PayloadType int

const (
	PayloadText PayloadType = iota
	PayloadJSON
	PayloadXML
)

var payloadTypeNames = [...]string{"TEXT", "JSON", "XML"}

func (p PayloadType) String() string {
	if p >= PayloadText && p <= PayloadXML {
		return payloadTypeNames[p]
	}
	return "UNKNOWN"
}

// ParsePayloadType parses a payload type name, ignoring case and surrounding space.
func ParsePayloadType(s string) (PayloadType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range payloadTypeNames {
		if n == name {
			return PayloadType(i), nil
		}
	}
	return DefaultPayloadType, fmt.Errorf("invalid payload type: %q", s)
}
