package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

type MemorySource struct {
	mutex   sync.Mutex
	objects map[string]memoryObject
}

type memoryObject struct {
	contents []byte
	updated  time.Time
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		objects: map[string]memoryObject{},
	}
}

func (m *MemorySource) Put(name string, contents []byte, updated time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.objects[name] = memoryObject{contents: contents, updated: updated}
}

func (m *MemorySource) List(ctx context.Context, prefix string) ([]Object, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	objects := []Object{}
	for name, object := range m.objects {
		if !strings.HasPrefix(name, prefix) {
			continue
		}

		objects = append(objects, Object{
			Name:    name,
			Size:    int64(len(object.contents)),
			Updated: object.updated,
		})
	}

	sortByUpdated(objects)

	return objects, nil
}

func (m *MemorySource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	object, exists := m.objects[name]
	if !exists {
		return nil, fmt.Errorf("object %s does not exist", name)
	}

	return io.NopCloser(bytes.NewReader(object.contents)), nil
}
