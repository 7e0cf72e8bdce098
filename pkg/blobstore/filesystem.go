package blobstore

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemSource serves a local directory, object names are slash separated paths relative to it
type FilesystemSource struct {
	Directory string
}

func (f *FilesystemSource) List(ctx context.Context, prefix string) ([]Object, error) {
	objects := []Object{}

	err := filepath.WalkDir(f.Directory, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		relative, err := filepath.Rel(f.Directory, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(relative)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		objects = append(objects, Object{
			Name:    name,
			Size:    info.Size(),
			Updated: info.ModTime(),
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", f.Directory, err)
	}

	sortByUpdated(objects)

	return objects, nil
}

func (f *FilesystemSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(f.Directory, filepath.FromSlash(name)))
}
