package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOwner(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Owner
		wantErr bool
	}{
		{
			name:  "empty string means no owner",
			input: "",
			want:  nil,
		},
		{
			name:  "valid uid:gid",
			input: "1000:1000",
			want:  &Owner{UID: 1000, GID: 1000},
		},
		{
			name:  "root",
			input: "0:0",
			want:  &Owner{UID: 0, GID: 0},
		},
		{
			name:    "missing gid",
			input:   "1000",
			wantErr: true,
		},
		{
			name:    "too many parts",
			input:   "1:2:3",
			wantErr: true,
		},
		{
			name:    "non-numeric uid",
			input:   "user:1000",
			wantErr: true,
		},
		{
			name:    "non-numeric gid",
			input:   "1000:group",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOwner(tt.input)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteFile_NilOwner(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	require.NoError(t, WriteFile(path, []byte(`{}`), 0o644, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestMkdirAll_CreatesNested(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "c")

	require.NoError(t, MkdirAll(path, 0o755, nil))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.html")

	f, err := Create(path, nil)
	require.NoError(t, err)

	_, err = f.WriteString("<html></html>")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "html")
}
