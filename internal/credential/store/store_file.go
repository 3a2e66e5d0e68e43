package store

import (
	"context"
	"path/filepath"
	"time"

	"credhub/internal/credential/models"
	dErrors "credhub/pkg/domain-errors"
	"credhub/pkg/platform/jsonfile"
)

const (
	// FileName is the document name under the data directory.
	FileName = "credentials.json"

	documentKind = "credentials"
)

// FileStore is an InMemoryStore whose every mutation rewrites
// <dataDir>/credentials.json before the lock is released.
type FileStore struct {
	*InMemoryStore
	path string
	now  func() time.Time
}

// NewFileStore returns an empty store backed by dataDir. Call Load to read
// an existing document.
func NewFileStore(dataDir string) *FileStore {
	fs := &FileStore{
		InMemoryStore: NewInMemoryStore(),
		path:          filepath.Join(dataDir, FileName),
		now:           time.Now,
	}
	fs.flush = fs.write
	return fs
}

// Path is the document location.
func (s *FileStore) Path() string {
	return s.path
}

// Load replaces the in-memory collection with the document on disk and
// returns the number of credentials loaded. A missing file loads nothing.
func (s *FileStore) Load(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	items, _, err := jsonfile.Read[models.Credential](s.path, documentKind)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load credentials")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(items), nil
}

func (s *FileStore) write(all []models.Credential) error {
	return jsonfile.Write(s.path, documentKind, all, s.now())
}

var _ Store = (*FileStore)(nil)
