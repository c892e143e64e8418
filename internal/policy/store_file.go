package policy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

const fileExt = ".yml"

// FileStore keeps one YAML document per policy in a directory.
type FileStore struct {
	dir          string
	defaultWorld string
	logger       *slog.Logger
}

func NewFileStore(dir, defaultWorld string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating policy directory: %w", err)
	}
	return &FileStore{dir: dir, defaultWorld: defaultWorld, logger: logger}, nil
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid name %q", ErrMalformedPolicy, name)
	}
	return filepath.Join(s.dir, name+fileExt), nil
}

func (s *FileStore) Load(ctx context.Context, name string) (*Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	var r record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPolicy, name, err)
	}
	if r.Name != name {
		return nil, fmt.Errorf("%w: %s: file declares name %q", ErrMalformedPolicy, name, r.Name)
	}
	return fromRecord(r, s.defaultWorld, s.logger.With(slog.String("policy", name)))
}

// Save writes through a temporary file so readers never see a partial
// document.
func (s *FileStore) Save(ctx context.Context, p *Policy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	path, err := s.path(p.Name)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(toRecord(p))
	if err != nil {
		return fmt.Errorf("encoding policy %s: %w", p.Name, err)
	}

	tmp, err := os.CreateTemp(s.dir, p.Name+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	s.logger.Debug("policy saved", slog.String("policy", p.Name), slog.String("path", path))
	return nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(name)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrPolicyNotFound, name)
	}
	return err
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) Close() error { return nil }
