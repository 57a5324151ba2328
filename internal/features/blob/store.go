package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edushare/internal/config"
	"edushare/internal/database"
)

// ErrNotFound signals that a ref does not resolve to stored bytes. A ref
// handed out by Put that later fails with ErrNotFound is a data-integrity
// problem for the caller, not a plain 404.
var ErrNotFound = errors.New("blob not found")

// Blob is a stored payload together with the metadata captured at upload time
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
	Size        int64
}

// Store persists opaque byte payloads and retrieves them by an opaque ref.
// The ref shape is implementation-defined (a Mongo document id, a disk file
// name) and must never leak the backing strategy to callers.
type Store interface {
	// Put persists the payload durably before returning
	Put(ctx context.Context, data []byte, contentType, filename string) (string, error)
	// Get resolves a ref previously returned by Put
	Get(ctx context.Context, ref string) (*Blob, error)
	// Delete removes the payload; deleting an already-gone ref is not an error
	Delete(ctx context.Context, ref string) error
}

// OrphanDeleter is implemented by stores that can drop payloads whose ref is
// no longer held by any record. refs is the set of refs still in use.
type OrphanDeleter interface {
	DeleteOrphans(ctx context.Context, refs map[string]bool, minAge time.Duration) (int64, error)
}

// NewStore selects the configured backend
func NewStore(cfg *config.Config, mongodb *database.MongodbDB) (Store, error) {
	switch cfg.BlobBackend {
	case "disk":
		return NewDiskStore(cfg.BlobDir)
	case "mongo", "":
		return NewMongoStore(mongodb), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}
