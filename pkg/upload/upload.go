package upload

import "context"

// Uploader ships a local results directory to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and
	// writable. Writes a small probe object to the bucket to fail fast
	// on misconfiguration.
	Preflight(ctx context.Context) error

	// UploadDir uploads every file under localDir, preserving relative
	// paths beneath the configured remote prefix. Artifacts keep their
	// names so the storage reader and indexer find them unchanged.
	UploadDir(ctx context.Context, localDir string) error
}
