package schedule

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"log/slog"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/m3rciful/schedbot/core/logger"
)

// pendingExt marks a created resource that has no image attached yet.
// The marker keeps the resource visible to enumeration, which is the
// directory store's only source of truth.
const pendingExt = ".pending"

// DirStore keeps resources as files in a single directory. The resource
// name is encoded in the file name; enumeration derives the resource
// list. All mutations are serialized by the store mutex, which is what
// makes delete-then-recreate safe despite enumeration being the index.
type DirStore struct {
	dir string
	mu  sync.RWMutex
}

// NewDirStore opens (creating if needed) a directory-backed store.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("schedule: create store dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Create registers a new resource by writing a zero-byte pending marker.
func (s *DirStore) Create(ctx context.Context, name string) (Resource, error) {
	name = NormalizeName(name)
	if err := validateName(name); err != nil {
		return Resource{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, ok := s.lookup(name); ok {
		return Resource{}, ErrDuplicateName
	}
	marker := filepath.Join(s.dir, name+pendingExt)
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return Resource{}, fmt.Errorf("schedule: write marker: %w", err)
	}
	logger.SVCSchedule.Debug("resource created",
		slog.String("event", "store.create"),
		slog.String("name", name),
	)
	return Resource{Name: name}, nil
}

// Find returns the resource with a case-insensitive exact name match.
func (s *DirStore) Find(ctx context.Context, name string) (Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, _, ok := s.lookup(name)
	if !ok {
		return Resource{}, ErrNotFound
	}
	return res, nil
}

// FindByToken returns every resource whose name contains token,
// case-insensitively. Containment (not prefix) is deliberate: "1"
// matches "11A" as well.
func (s *DirStore) FindByToken(ctx context.Context, token string) ([]Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := NameKey(token)
	var out []Resource
	for _, res := range s.enumerate() {
		if strings.Contains(strings.ToLower(res.Name), key) {
			out = append(out, res)
		}
	}
	return out, nil
}

// AttachImage streams src into a temp file and renames it over the
// resource's image key, so a failed transfer never leaves a truncated
// image visible.
func (s *DirStore) AttachImage(ctx context.Context, name, ext string, src io.Reader) (Resource, error) {
	if ext == "" {
		ext = DefaultImageExt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, oldFile, ok := s.lookup(name)
	if !ok {
		return Resource{}, ErrNotFound
	}

	tmp := filepath.Join(s.dir, ".tmp-"+uuid.NewString())
	f, err := os.Create(tmp)
	if err != nil {
		return Resource{}, fmt.Errorf("schedule: create temp image: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return Resource{}, fmt.Errorf("schedule: write image: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return Resource{}, fmt.Errorf("schedule: close image: %w", err)
	}

	imageFile := res.Name + ext
	if err := os.Rename(tmp, filepath.Join(s.dir, imageFile)); err != nil {
		_ = os.Remove(tmp)
		return Resource{}, fmt.Errorf("schedule: publish image: %w", err)
	}
	if oldFile != "" && oldFile != imageFile {
		// Previous marker or image with a different extension.
		_ = os.Remove(filepath.Join(s.dir, oldFile))
	}

	logger.SVCSchedule.Debug("image attached",
		slog.String("event", "store.attach"),
		slog.String("name", res.Name),
		slog.String("key", imageFile),
	)
	res.ImageKey = imageFile
	return res, nil
}

// OpenImage opens the attached image for reading.
func (s *DirStore) OpenImage(ctx context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, _, ok := s.lookup(name)
	if !ok || !res.HasImage() {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, res.ImageKey))
	if err != nil {
		return nil, fmt.Errorf("schedule: open image: %w", err)
	}
	return f, nil
}

// Rename changes the resource's name, carrying the image along.
func (s *DirStore) Rename(ctx context.Context, oldName, newName string) (Resource, error) {
	newName = NormalizeName(newName)
	if err := validateName(newName); err != nil {
		return Resource{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, file, ok := s.lookup(oldName)
	if !ok {
		return Resource{}, ErrNotFound
	}
	if !EqualNames(res.Name, newName) {
		if _, _, exists := s.lookup(newName); exists {
			return Resource{}, ErrDuplicateName
		}
	}

	ext := filepath.Ext(file)
	newFile := newName + ext
	if err := os.Rename(filepath.Join(s.dir, file), filepath.Join(s.dir, newFile)); err != nil {
		return Resource{}, fmt.Errorf("schedule: rename: %w", err)
	}

	logger.SVCSchedule.Debug("resource renamed",
		slog.String("event", "store.rename"),
		slog.String("from", res.Name),
		slog.String("to", newName),
	)
	out := Resource{Name: newName}
	if ext != pendingExt {
		out.ImageKey = newFile
	}
	return out, nil
}

// Delete removes the record and its image. Every backing file for the
// name is attempted even when an earlier removal fails, and all failures
// are reported together.
func (s *DirStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := NameKey(name)
	var (
		found  bool
		result *multierror.Error
	)
	for _, file := range s.files() {
		base := strings.TrimSuffix(file, filepath.Ext(file))
		if NameKey(base) != key {
			continue
		}
		found = true
		if err := os.Remove(filepath.Join(s.dir, file)); err != nil {
			result = multierror.Append(result, fmt.Errorf("schedule: delete %s: %w", file, err))
		}
	}
	if !found {
		return ErrNotFound
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	logger.SVCSchedule.Debug("resource deleted",
		slog.String("event", "store.delete"),
		slog.String("name", name),
	)
	return nil
}

// List returns all resources in directory order.
func (s *DirStore) List(ctx context.Context) ([]Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enumerate(), nil
}

// lookup must be called with the store lock held.
func (s *DirStore) lookup(name string) (Resource, string, bool) {
	key := NameKey(name)
	for _, file := range s.files() {
		base := strings.TrimSuffix(file, filepath.Ext(file))
		if NameKey(base) != key {
			continue
		}
		res := Resource{Name: base}
		if filepath.Ext(file) != pendingExt {
			res.ImageKey = file
		}
		return res, file, true
	}
	return Resource{}, "", false
}

func (s *DirStore) enumerate() []Resource {
	var out []Resource
	for _, file := range s.files() {
		base := strings.TrimSuffix(file, filepath.Ext(file))
		res := Resource{Name: base}
		if filepath.Ext(file) != pendingExt {
			res.ImageKey = file
		}
		out = append(out, res)
	}
	return out
}

// files lists backing files, skipping dot files (temp writes in flight).
func (s *DirStore) files() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, e.Name())
	}
	return out
}

func validateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if strings.HasPrefix(name, ".") || strings.ContainsAny(name, "/\\\x00") {
		return ErrInvalidName
	}
	return nil
}
