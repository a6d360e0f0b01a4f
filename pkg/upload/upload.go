// Package upload pushes benchmark run directories to remote storage.
package upload

import "context"

// Uploader uploads a local run directory to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on misconfiguration.
	Preflight(ctx context.Context) error

	// UploadRun uploads all files in runDir under
	// <prefix>/<host>/<label>/<basename of runDir>.
	UploadRun(ctx context.Context, runDir, host, label string) error
}
