package hostname

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestResolve(t *testing.T) {
	t.Parallel()

	osName := func() (string, error) { return "box-1", nil }
	osFail := func() (string, error) { return "", errors.New("no network") }

	tests := []struct {
		name   string
		lookup Lookup
		want   string
	}{
		{"computername wins", Lookup{env(map[string]string{"COMPUTERNAME": "WIN", "HOSTNAME": "nix"}), osName}, "WIN"},
		{"hostname env", Lookup{env(map[string]string{"HOSTNAME": "nix"}), osName}, "nix"},
		{"os hostname", Lookup{env(nil), osName}, "box-1"},
		{"unknown on failure", Lookup{env(nil), osFail}, Unknown},
		{"empty lookup", Lookup{}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.lookup))
		})
	}
}

func TestName_Stable(t *testing.T) {
	first := Name()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, Name())
}
