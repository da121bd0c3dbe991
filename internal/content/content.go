// Package content persists binary attachments and hands back an opaque
// retrievable path. The path is stored verbatim on the owning record.
package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Store interface {
	Store(ctx context.Context, data []byte, suggestedName string) (string, error)
}

// FSStore writes attachments under a single directory. The returned path is
// relative to that directory.
type FSStore struct{ Dir string }

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	return &FSStore{Dir: dir}, nil
}

func (s *FSStore) Store(ctx context.Context, data []byte, suggestedName string) (string, error) {
	name := uuid.NewString()
	if ext := filepath.Ext(suggestedName); ext != "" && !strings.ContainsAny(ext, "/\\") {
		name += ext
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}
