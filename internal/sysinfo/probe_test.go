package sysinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMemInfo(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int64
		wantErr bool
	}{
		{
			name: "typical meminfo",
			content: "MemTotal:       32768000 kB\n" +
				"MemFree:        10000000 kB\n" +
				"MemAvailable:   20000000 kB\n",
			want: 32768000 * 1024,
		},
		{
			name:    "memtotal only",
			content: "MemTotal: 16384000 kB",
			want:    16384000 * 1024,
		},
		{
			name:    "missing memtotal",
			content: "MemFree: 123 kB\nSwapTotal: 0 kB\n",
			wantErr: true,
		},
		{
			name:    "empty input",
			content: "",
			wantErr: true,
		},
		{
			name:    "malformed value",
			content: "MemTotal: lots kB",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMemInfo(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvString(t *testing.T) {
	env := Env{OS: "linux", Arch: "amd64", MemoryGB: 32}
	assert.Equal(t, "linux/amd64 32GB", env.String())
}
