package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
)

type GCSSource struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

func NewGCSSource(ctx context.Context, bucketName string) (*GCSSource, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCP storage client: %w", err)
	}

	return &GCSSource{
		client: client,
		bucket: client.Bucket(bucketName),
	}, nil
}

func (g *GCSSource) List(ctx context.Context, prefix string) ([]Object, error) {
	objects := []Object{}

	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		objectAttr, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating over bucket: %w", err)
		}

		objects = append(objects, Object{
			Name:    objectAttr.Name,
			Size:    objectAttr.Size,
			Updated: objectAttr.Updated,
		})
	}

	log.Debug().Str("prefix", prefix).Int("count", len(objects)).Msg("Listed bucket")
	sortByUpdated(objects)

	return objects, nil
}

func (g *GCSSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	reader, err := g.bucket.Object(name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening object %s: %w", name, err)
	}

	return reader, nil
}

func (g *GCSSource) Close() error {
	return g.client.Close()
}
