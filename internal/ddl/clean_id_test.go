package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "host_name", "host_name"},
		{"uppercase", "HostName", "hostname"},
		{"dots and dashes", "http.status-code", "http_status_code"},
		{"leading digits", "9xx_errors", "xx_errors"},
		{"leading underscore kept", "_internal", "_internal"},
		{"mixed run collapses", "a///b", "a_b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanID(tt.in))
		})
	}
}

func TestCleanID_Idempotent(t *testing.T) {
	inputs := []string{"HostName", "9xx_errors", "a///b", "___", "already_clean", "Ünïcödé.dim"}
	for _, in := range inputs {
		once := CleanID(in)
		twice := CleanID(once)
		assert.Equal(t, once, twice, "CleanID(%q) should be idempotent", in)
	}
}

func TestCleanID_MatchesIdentifierPattern(t *testing.T) {
	inputs := []string{"HostName", "9xx_errors", "a///b", "123", ""}
	for _, in := range inputs {
		out := CleanID(in)
		if len(out) == 0 {
			t.Fatalf("CleanID(%q) returned empty string", in)
		}
		first := out[0]
		assert.True(t, first == '_' || (first >= 'a' && first <= 'z'), "first rune of %q must be [a-z_]", out)
		for _, r := range out {
			assert.True(t, r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'), "rune %q not in [a-z0-9_]", string(r))
		}
	}
}
