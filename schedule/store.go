package schedule

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrDuplicateName is returned when a create or rename targets a name
	// that already exists for the store's kind (case-insensitive).
	ErrDuplicateName = errors.New("schedule: duplicate resource name")
	// ErrNotFound is returned when no resource matches the given name.
	ErrNotFound = errors.New("schedule: resource not found")
	// ErrInvalidName is returned for empty names or names that cannot be
	// used as a storage key.
	ErrInvalidName = errors.New("schedule: invalid resource name")
)

// Store is the keyed collection of named resources for one Kind.
//
// Two backends implement it: DirStore encodes the resource name in the
// image's storage key and derives the resource list from directory
// enumeration; PGStore keeps an explicit row index with the image bytes
// alongside. Callers must not depend on which one they were given.
type Store interface {
	// Create registers a new resource without an image.
	// ErrDuplicateName when a case-insensitive equal name exists.
	Create(ctx context.Context, name string) (Resource, error)

	// Find returns the resource with a case-insensitive exact name match.
	Find(ctx context.Context, name string) (Resource, error)

	// FindByToken returns every resource whose name case-insensitively
	// contains token. Matching is substring containment, not prefix:
	// token "1" also matches "11A". This mirrors the provider-facing
	// lookup semantics and is kept deliberately.
	FindByToken(ctx context.Context, token string) ([]Resource, error)

	// AttachImage persists the bytes from src as the resource's image,
	// replacing any previous image. The write is atomic: a failed attach
	// leaves the previous image (or its absence) intact.
	// ext is the file extension including the dot; empty means default.
	AttachImage(ctx context.Context, name, ext string, src io.Reader) (Resource, error)

	// OpenImage opens the attached image for reading.
	// ErrNotFound when the resource does not exist or has no image.
	OpenImage(ctx context.Context, name string) (io.ReadCloser, error)

	// Rename changes a resource's name keeping its image.
	Rename(ctx context.Context, oldName, newName string) (Resource, error)

	// Delete removes the record and its image bytes. Both removals are
	// attempted even if one fails; all failures are reported together.
	Delete(ctx context.Context, name string) error

	// List returns all resources in stable display order.
	// The order carries no semantic meaning.
	List(ctx context.Context) ([]Resource, error)
}

// DefaultImageExt is used when no extension can be inferred from the source.
const DefaultImageExt = ".jpg"
