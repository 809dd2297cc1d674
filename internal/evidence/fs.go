package evidence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FSStore writes evidence images under a media directory. References look
// like "/media/<uuid>_<filename>".
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("NewFSStore: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Save(_ context.Context, filename string, contents []byte) (string, error) {
	name := fmt.Sprintf("%s_%s", uuid.New().String(), sanitize(filename))
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return "", fmt.Errorf("Save: %w", err)
	}
	return "/media/" + name, nil
}

// sanitize keeps the original filename readable while making sure it
// cannot escape the media directory.
func sanitize(filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, "..", "")
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "upload"
	}
	return base
}
