package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidArtifactName = errors.New("INVALID_ARTIFACT_NAME")

// Artifact is a handle to a stored report file.
type Artifact struct {
	Name   string
	Path   string
	Size   int64
	Cached bool
}

// Store keeps artifacts as plain files in one flat directory. Lookup is a
// stat by name; there is no index, TTL or size bound.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

// Path returns where name lives in the store.
func (s *Store) Path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Lookup reports whether a regular file called name exists.
func (s *Store) Lookup(name string) (*Artifact, bool, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("stat artifact: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, false, nil
	}
	return &Artifact{Name: name, Path: path, Size: info.Size(), Cached: true}, true, nil
}

// Write stores data under name. The bytes go to a temporary file in the
// same directory first and are renamed into place only once synced, so the
// final name never holds a partial artifact.
func (s *Store) Write(name string, data []byte) (*Artifact, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	tmp := filepath.Join(s.dir, fmt.Sprintf(".%s.%s.tmp", name, uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create temp artifact: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write temp artifact: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("sync temp artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("publish artifact: %w", err)
	}
	committed = true

	return &Artifact{Name: name, Path: path, Size: int64(len(data))}, nil
}


func checkName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidArtifactName, name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, os.PathSeparator):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidArtifactName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidArtifactName, name)
	}
	return nil
}
