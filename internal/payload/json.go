package payload

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/tinytelemetry/flowlog/internal/model"
)

// FormatJSON re-serializes a JSON payload in compact form. The input is read
// token by token and copied to the output without building a value tree.
func FormatJSON(p any) (string, error) {
	if IsStream(p) {
		return StreamingSentinel, nil
	}
	src := stringified(p)

	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()

	w := &tokenWriter{}
	w.buf.Grow(len(src))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", formatErr(model.PayloadJSON, errors.Wrap(err, "read token"))
		}
		if err := w.write(tok); err != nil {
			return "", formatErr(model.PayloadJSON, errors.Wrap(err, "write token"))
		}
	}
	if len(w.stack) > 0 {
		return "", formatErr(model.PayloadJSON, io.ErrUnexpectedEOF)
	}
	return w.buf.String(), nil
}

type frame struct {
	object bool
	n      int // keys and values written so far
}

// tokenWriter emits a token stream as compact JSON, inserting the separators
// that json.Decoder.Token drops.
type tokenWriter struct {
	buf   bytes.Buffer
	stack []frame
	roots int
}

func (w *tokenWriter) separate() {
	if len(w.stack) == 0 {
		if w.roots > 0 {
			w.buf.WriteByte(' ')
		}
		w.roots++
		return
	}
	f := &w.stack[len(w.stack)-1]
	if f.n > 0 {
		if f.object && f.n%2 == 1 {
			w.buf.WriteByte(':')
		} else {
			w.buf.WriteByte(',')
		}
	}
	f.n++
}

func (w *tokenWriter) write(tok json.Token) error {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{', '[':
			w.separate()
			w.buf.WriteByte(byte(t))
			w.stack = append(w.stack, frame{object: t == '{'})
		default:
			w.stack = w.stack[:len(w.stack)-1]
			w.buf.WriteByte(byte(t))
		}
		return nil
	case json.Number:
		w.separate()
		w.buf.WriteString(t.String())
	case string:
		w.separate()
		enc := json.NewEncoder(&w.buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return err
		}
		// Encode terminates each value with a newline.
		w.buf.Truncate(w.buf.Len() - 1)
	case bool:
		w.separate()
		w.buf.WriteString(strconv.FormatBool(t))
	case nil:
		w.separate()
		w.buf.WriteString("null")
	default:
		return errors.Errorf("unexpected token %T", tok)
	}
	return nil
}
