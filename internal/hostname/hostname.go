// Package hostname resolves the process-wide host identity stamped on every line.
package hostname

import (
	"os"
	"sync"
)

// Unknown is used when no host name can be determined.
const Unknown = "[unknown]"

// Lookup holds the sources consulted by Resolve, in order of precedence.
type Lookup struct {
	Getenv   func(string) string
	Hostname func() (string, error)
}

// System consults the process environment and the operating system.
var System = Lookup{Getenv: os.Getenv, Hostname: os.Hostname}

// Resolve returns COMPUTERNAME, then HOSTNAME, then the network host name,
// falling back to Unknown.
func Resolve(l Lookup) string {
	if l.Getenv != nil {
		// Windows
		if h := l.Getenv("COMPUTERNAME"); h != "" {
			return h
		}
		// set by most Unix shells
		if h := l.Getenv("HOSTNAME"); h != "" {
			return h
		}
	}
	if l.Hostname != nil {
		if h, err := l.Hostname(); err == nil && h != "" {
			return h
		}
	}
	return Unknown
}

var name = sync.OnceValue(func() string { return Resolve(System) })

// Name returns the host identity of this process. It is resolved on first use
// and never recomputed.
func Name() string { return name() }
