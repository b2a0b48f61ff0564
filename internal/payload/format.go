// Package payload renders event payloads as display strings for log lines.
package payload

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/tinytelemetry/flowlog/internal/model"
)

// StreamingSentinel replaces the payload text of single-read stream payloads.
const StreamingSentinel = "<<<Streaming payload will not be logged>>>"

// FormatError reports a payload that cannot be rendered in the requested format.
type FormatError struct {
	Format model.PayloadType
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %s payload: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// IsFormatError reports whether err is, or wraps, a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

func formatErr(pt model.PayloadType, err error) error {
	return &FormatError{Format: pt, Err: err}
}

// IsStream reports whether p is a live stream that may only be read once.
// Such payloads belong to downstream consumers and are never read here.
func IsStream(p any) bool {
	_, ok := p.(io.Reader)
	return ok
}

// Format dispatches p to the formatter for pt. ok is false when pt has no
// formatter, in which case the caller falls back to the event's own rendering.
func Format(pt model.PayloadType, p any) (s string, ok bool, err error) {
	switch pt {
	case model.PayloadText:
		s, err = FormatText(p)
	case model.PayloadJSON:
		s, err = FormatJSON(p)
	case model.PayloadXML:
		s, err = FormatXML(p)
	default:
		return "", false, nil
	}
	return s, true, err
}

// FormatText returns the UTF-8 text of p.
func FormatText(p any) (string, error) {
	switch v := p.(type) {
	case io.Reader:
		return StreamingSentinel, nil
	case nil:
		return "", nil
	case string:
		if !utf8.ValidString(v) {
			return "", formatErr(model.PayloadText, errors.New("payload is not valid UTF-8"))
		}
		return v, nil
	case []byte:
		if !utf8.Valid(v) {
			return "", formatErr(model.PayloadText, errors.Errorf("payload of %d bytes is not valid UTF-8", len(v)))
		}
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// stringified returns the raw text form of p used by the JSON formatter.
func stringified(p any) []byte {
	switch v := p.(type) {
	case nil:
		return nil
	case []byte:
		return v
	case string:
		return []byte(v)
	case fmt.Stringer:
		return []byte(v.String())
	default:
		return []byte(fmt.Sprint(v))
	}
}
