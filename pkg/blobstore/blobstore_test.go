package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(objects []Object) []string {
	result := []string{}
	for _, object := range objects {
		result = append(result, object.Name)
	}
	return result
}

func TestMemorySourceListsOldestFirst(t *testing.T) {
	source := NewMemorySource()
	now := time.Date(2018, 1, 1, 12, 0, 0, 0, time.UTC)

	source.Put("outbound/netex/rb_nsb.zip", []byte("nsb"), now)
	source.Put("outbound/netex/rb_atb.zip", []byte("atb"), now.Add(-time.Hour))
	source.Put("inbound/rb_rut.zip", []byte("rut"), now.Add(-2*time.Hour))

	objects, err := source.List(context.Background(), "outbound/netex/")
	require.NoError(t, err)
	assert.Equal(t, []string{"outbound/netex/rb_atb.zip", "outbound/netex/rb_nsb.zip"}, names(objects))
	assert.Equal(t, int64(3), objects[0].Size)

	reader, err := source.Open(context.Background(), "outbound/netex/rb_nsb.zip")
	require.NoError(t, err)
	defer reader.Close()

	contents, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "nsb", string(contents))

	_, err = source.Open(context.Background(), "outbound/netex/missing.zip")
	assert.Error(t, err)
}

func TestFilesystemSource(t *testing.T) {
	directory := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(directory, "netex"), 0o755))

	newer := filepath.Join(directory, "netex", "rb_nsb.zip")
	older := filepath.Join(directory, "netex", "rb_atb.zip")
	require.NoError(t, os.WriteFile(newer, []byte("nsb"), 0o644))
	require.NoError(t, os.WriteFile(older, []byte("atb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(directory, "other.txt"), []byte("x"), 0o644))

	now := time.Now()
	require.NoError(t, os.Chtimes(newer, now, now))
	require.NoError(t, os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)))

	source := &FilesystemSource{Directory: directory}

	objects, err := source.List(context.Background(), "netex/")
	require.NoError(t, err)
	assert.Equal(t, []string{"netex/rb_atb.zip", "netex/rb_nsb.zip"}, names(objects))

	reader, err := source.Open(context.Background(), "netex/rb_atb.zip")
	require.NoError(t, err)
	defer reader.Close()

	contents, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "atb", string(contents))
}
