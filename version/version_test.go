package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		revision string
		buildAt  string
		dirty    bool
		want     string
	}{
		{"go run", "", "", "", false, "dev"},
		{"tag only", "v1.0.0", "", "", false, "v1.0.0"},
		{"short revision", "", "abc", "", false, "abc"},
		{"full", "v1.2.0", "0123456789abcdef", "2026-01-02T03:04:05Z", false, "v1.2.0 0123456 at 2026-01-02 03:04:05"},
		{"dirty", "", "0123456789abcdef", "", true, "0123456 dirty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, format(tt.tag, tt.revision, tt.buildAt, tt.dirty))
		})
	}
}
