package store

import (
	"context"
	"path/filepath"
	"time"

	"credhub/internal/verification/models"
	dErrors "credhub/pkg/domain-errors"
	"credhub/pkg/platform/jsonfile"
)

const (
	// FileName is the document name under the data directory.
	FileName = "verifications.json"

	documentKind = "verifications"
)

// FileStore rewrites <dataDir>/verifications.json after every append.
type FileStore struct {
	*InMemoryStore
	path string
	now  func() time.Time
}

func NewFileStore(dataDir string) *FileStore {
	fs := &FileStore{
		InMemoryStore: NewInMemoryStore(),
		path:          filepath.Join(dataDir, FileName),
		now:           time.Now,
	}
	fs.flush = fs.write
	return fs
}

func (s *FileStore) Path() string {
	return s.path
}

// Load replaces the in-memory history with the document on disk and returns
// the number of records loaded. A missing file loads nothing.
func (s *FileStore) Load(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	items, _, err := jsonfile.Read[models.Record](s.path, documentKind)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load verification history")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = items
	return len(items), nil
}

func (s *FileStore) write(all []models.Record) error {
	return jsonfile.Write(s.path, documentKind, all, s.now())
}

var _ Store = (*FileStore)(nil)
