package backup

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnsafePath     = errors.New("unsafe_backup_path")
	ErrBackupNotFound = errors.New("backup_not_found")
)

// Store is a flat directory of backup files. Filenames classify the backup
// kind: *_full_* for platform snapshots, *_tenant_* for tenant JSON exports.
type Store struct {
	Root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{Root: root}, nil
}

// SafeJoin resolves name inside the store root. Names containing path
// separators, "..", or NUL bytes are rejected before anything touches the
// filesystem; everything else must resolve to a direct child of the root.
func (s *Store) SafeJoin(name string) (string, error) {
	if name == "" ||
		strings.ContainsRune(name, 0) ||
		strings.Contains(name, "..") ||
		strings.ContainsAny(name, `/\`) {
		return "", ErrUnsafePath
	}
	path := filepath.Join(s.Root, name)
	if filepath.Dir(path) != filepath.Clean(s.Root) {
		return "", ErrUnsafePath
	}
	return path, nil
}

// SanitizeName strips everything but [a-zA-Z0-9._-] from an uploaded
// filename so it can be embedded in a stored name.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		out = "backup"
	}
	return out
}

type Info struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"` // full | tenant | upload | other
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

func classify(name string) string {
	switch {
	case strings.Contains(name, "_full_") || strings.HasPrefix(name, "auto-before-restore_"):
		return "full"
	case strings.Contains(name, "_tenant_"):
		return "tenant"
	case strings.HasPrefix(name, "upload_"):
		return "upload"
	}
	return "other"
}

// List returns all backups newest first.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, err
	}
	var out []Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Name: e.Name(), Kind: classify(e.Name()), Size: fi.Size(), CreatedAt: fi.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Read returns the contents of a stored backup.
func (s *Store) Read(name string) ([]byte, error) {
	path, err := s.SafeJoin(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBackupNotFound
	}
	return data, err
}

// Write stores data under name, validating the name first.
func (s *Store) Write(name string, data []byte) (string, error) {
	path, err := s.SafeJoin(name)
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}

// Delete removes a stored backup.
func (s *Store) Delete(name string) error {
	path, err := s.SafeJoin(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); errors.Is(err, os.ErrNotExist) {
		return ErrBackupNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// Path resolves name and verifies the file exists.
func (s *Store) Path(name string) (string, error) {
	path, err := s.SafeJoin(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", ErrBackupNotFound
	} else if err != nil {
		return "", err
	}
	return path, nil
}

func timestamp(t time.Time) string { return t.UTC().Format("20060102-150405") }
