package driver

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSOptions struct {
	Bucket string
	// Prefix is prepended to every key, e.g. "compat/".
	Prefix string
	// CredentialsFile is a service account key. Empty uses application default credentials.
	CredentialsFile string
}

// GCSPersistence stores each blob as one object.
type GCSPersistence struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

func OpenGCS(ctx context.Context, opts GCSOptions) (*GCSPersistence, error) {
	if opts.Bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}

	return &GCSPersistence{
		client: client,
		bucket: client.Bucket(opts.Bucket),
		prefix: opts.Prefix,
	}, nil
}

func (g *GCSPersistence) object(key string) *storage.ObjectHandle {
	return g.bucket.Object(g.prefix + key + ".json")
}

func (g *GCSPersistence) Load(ctx context.Context, key string) ([]byte, bool, error) {
	r, err := g.object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("gcs: open %s: %w", key, err)
	}
	defer r.Close()

	value, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("gcs: read %s: %w", key, err)
	}
	return value, true, nil
}

func (g *GCSPersistence) Save(ctx context.Context, key string, value []byte) error {
	w := g.object(key).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(value); err != nil {
		w.Close()
		return fmt.Errorf("gcs: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs: commit %s: %w", key, err)
	}
	return nil
}

func (g *GCSPersistence) Close(context.Context) error {
	return g.client.Close()
}
