// Package expr resolves "#[...]" expression placeholders embedded in log
// messages against the event being logged.
package expr

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tinytelemetry/flowlog/internal/model"
	"github.com/tinytelemetry/flowlog/internal/payload"
)

// Resolver expands the placeholders of a template against an event.
type Resolver interface {
	Resolve(template string, event model.Event) string
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(template string, event model.Event) string

func (f ResolverFunc) Resolve(template string, event model.Event) string { return f(template, event) }

// Identity returns templates unchanged.
var Identity Resolver = ResolverFunc(func(template string, _ model.Event) string { return template })

const (
	openMark  = "#["
	closeMark = ']'

	// DefaultProgramCacheSize bounds the compiled programs kept per resolver.
	DefaultProgramCacheSize = 256
)

// CELResolver evaluates each placeholder as a CEL expression over the
// variables payload, rootId and vars. Placeholders that fail to compile or
// evaluate are left as written.
type CELResolver struct {
	env *cel.Env
	// Placeholders may come from payload text, so the cache is an LRU.
	programs *lru.Cache[string, cel.Program]
}

// NewCELResolver builds the CEL environment shared by all evaluations, keeping
// up to DefaultProgramCacheSize compiled programs.
func NewCELResolver() (*CELResolver, error) {
	return NewCELResolverSize(DefaultProgramCacheSize)
}

// NewCELResolverSize is NewCELResolver with an explicit program cache size.
func NewCELResolverSize(cacheSize int) (*CELResolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultProgramCacheSize
	}
	programs, err := lru.New[string, cel.Program](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create program cache: %w", err)
	}
	env, err := cel.NewEnv(
		// JSON payloads are exposed decoded, text as a string
		cel.Variable("payload", cel.DynType),
		cel.Variable("rootId", cel.StringType),
		cel.Variable("vars", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &CELResolver{env: env, programs: programs}, nil
}

// Resolve replaces every placeholder in template.
func (r *CELResolver) Resolve(template string, event model.Event) string {
	if !strings.Contains(template, openMark) {
		return template
	}

	var activation map[string]any
	var b strings.Builder
	rest := template
	for {
		start := strings.Index(rest, openMark)
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := closingIndex(rest, start+len(openMark))
		if end < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:start])

		placeholder := rest[start : end+1]
		if activation == nil {
			activation = activationFor(event)
		}
		if v, err := r.eval(rest[start+len(openMark):end], activation); err == nil {
			b.WriteString(v)
		} else {
			b.WriteString(placeholder)
		}
		rest = rest[end+1:]
	}
	return b.String()
}

func (r *CELResolver) eval(src string, activation map[string]any) (string, error) {
	prg, err := r.program(strings.TrimSpace(src))
	if err != nil {
		return "", err
	}
	out, _, err := prg.Eval(activation)
	if err != nil {
		return "", err
	}
	if out == types.NullValue {
		return "null", nil
	}
	if s, ok := out.Value().(string); ok {
		return s, nil
	}
	return fmt.Sprint(out.Value()), nil
}

func (r *CELResolver) program(src string) (cel.Program, error) {
	if prg, ok := r.programs.Get(src); ok {
		return prg, nil
	}

	ast, iss := r.env.Parse(src)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	checked, iss := r.env.Check(ast)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	prg, err := r.env.Program(checked)
	if err != nil {
		return nil, err
	}

	r.programs.Add(src, prg)
	return prg, nil
}

// closingIndex returns the index of the bracket closing a placeholder whose
// body starts at from, skipping nested brackets and quoted strings.
func closingIndex(s string, from int) int {
	depth := 1
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[':
			depth++
		case closeMark:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func activationFor(event model.Event) map[string]any {
	if event == nil {
		return map[string]any{"payload": nil, "rootId": "", "vars": map[string]any{}}
	}
	vars := event.Vars()
	if vars == nil {
		vars = map[string]any{}
	}
	return map[string]any{
		"payload": payloadValue(event.Payload()),
		"rootId":  event.RootID(),
		"vars":    vars,
	}
}

// payloadValue exposes a payload to expressions without reading streams.
func payloadValue(p any) any {
	if payload.IsStream(p) {
		return nil
	}
	var raw []byte
	switch v := p.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case fmt.Stringer:
		return v.String()
	default:
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err == nil {
		return decoded
	}
	return string(raw)
}
