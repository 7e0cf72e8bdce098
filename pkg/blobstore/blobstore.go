package blobstore

import (
	"context"
	"io"
	"time"

	"golang.org/x/exp/slices"
)

// Object is one entry of a blob listing
type Object struct {
	Name    string
	Size    int64
	Updated time.Time
}

// Source lists and opens the published timetable files
type Source interface {
	// List returns the objects whose name starts with prefix, oldest update first
	List(ctx context.Context, prefix string) ([]Object, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

func sortByUpdated(objects []Object) {
	slices.SortStableFunc(objects, func(a, b Object) int {
		return a.Updated.Compare(b.Updated)
	})
}
