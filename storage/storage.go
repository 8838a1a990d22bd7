package storage

import (
	"errors"
	"io"

	"github.com/cartpix/cartpix/models"
)

// ErrNotFound reports that the named file does not exist under the storage
// root. Deletion of an already deleted file and download misses both reduce
// to this error.
var ErrNotFound = errors.New("storage: file not found")

// Storage is the persistence surface for attachment files. Implementations
// resolve bare file names against a single storage root and must never honor
// path segments in a name.
type Storage interface {
	// Save persists the admitted upload under a collision resistant generated
	// name and returns the attachment record for it.
	Save(originalName string, src io.Reader) (models.Attachment, error)

	// Delete removes a stored file. Returns ErrNotFound when the file is
	// already gone so callers can treat deletion as idempotent.
	Delete(fileName string) error

	// Exists reports whether the named file is present under the root.
	Exists(fileName string) bool

	// Open returns a reader over the stored bytes.
	Open(fileName string) (io.ReadCloser, error)

	// Size returns the stored byte length of the named file.
	Size(fileName string) (int64, error)
}
