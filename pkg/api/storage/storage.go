package storage

import "context"

// Reader provides read access to result artifacts stored in a backend
// (local filesystem or S3). The indexer uses it to discover and read
// batch files without knowing the underlying storage details.
type Reader interface {
	// ListKeys returns the artifact keys available in the backend. Keys
	// are bare file names relative to the configured directory or
	// prefix.
	ListKeys(ctx context.Context) ([]string, error)

	// Get reads one artifact. Returns (nil, nil) when the key does not
	// exist.
	Get(ctx context.Context, key string) ([]byte, error)
}
