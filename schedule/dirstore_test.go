package schedule

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *DirStore {
	t.Helper()
	s, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	return s
}

func TestDirStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	res, err := s.Create(ctx, "  11A ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Name != "11A" {
		t.Fatalf("expected trimmed name 11A, got %q", res.Name)
	}
	if res.HasImage() {
		t.Fatalf("fresh resource must not report an image")
	}

	got, err := s.Find(ctx, "11a")
	if err != nil {
		t.Fatalf("Find case-insensitive: %v", err)
	}
	if got.Name != "11A" {
		t.Fatalf("Find must return stored casing, got %q", got.Name)
	}
}

func TestDirStoreDuplicateRejection(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Create(ctx, "5B"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, "5b"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestDirStoreInvalidNames(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, name := range []string{"", "   ", ".hidden", "a/b", "a\\b"} {
		if _, err := s.Create(ctx, name); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("Create(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
}

func TestDirStoreAttachImageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Create(ctx, "9V"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	payload := "not really a jpeg"
	res, err := s.AttachImage(ctx, "9v", ".jpg", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("AttachImage: %v", err)
	}
	if !res.HasImage() {
		t.Fatalf("attached resource must report an image")
	}

	rc, err := s.OpenImage(ctx, "9V")
	if err != nil {
		t.Fatalf("OpenImage: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if string(data) != payload {
		t.Fatalf("image bytes changed in transit: %q", data)
	}
}

func TestDirStoreAttachReplacesOldExtension(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Create(ctx, "7G"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.AttachImage(ctx, "7G", ".png", strings.NewReader("one")); err != nil {
		t.Fatalf("attach png: %v", err)
	}
	if _, err := s.AttachImage(ctx, "7G", ".jpg", strings.NewReader("two")); err != nil {
		t.Fatalf("attach jpg: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected a single resource after re-attach, got %d", len(list))
	}
	rc, err := s.OpenImage(ctx, "7G")
	if err != nil {
		t.Fatalf("OpenImage: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "two" {
		t.Fatalf("expected latest image, got %q", data)
	}
}

func TestDirStoreOpenImagePending(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Create(ctx, "4D"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.OpenImage(ctx, "4D"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for imageless resource, got %v", err)
	}
}

func TestDirStoreFindByTokenContainment(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, name := range []string{"1A", "11A", "11B", "2V"} {
		if _, err := s.Create(ctx, name); err != nil {
			t.Fatalf("Create(%q): %v", name, err)
		}
	}

	got, err := s.FindByToken(ctx, "1")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	names := make([]string, 0, len(got))
	for _, r := range got {
		names = append(names, r.Name)
	}
	want := map[string]bool{"1A": true, "11A": true, "11B": true}
	if len(names) != len(want) {
		t.Fatalf("expected %d matches for token 1, got %v", len(want), names)
	}
	for _, n := range names {
		if !want[n] {
			t.Fatalf("unexpected match %q for token 1", n)
		}
	}

	got, err = s.FindByToken(ctx, "none")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %v", got)
	}
}

func TestDirStoreRename(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Create(ctx, "8A"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.AttachImage(ctx, "8A", ".jpg", strings.NewReader("img")); err != nil {
		t.Fatalf("AttachImage: %v", err)
	}
	if _, err := s.Create(ctx, "8B"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := s.Rename(ctx, "8A", "8B"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("rename onto existing name: expected ErrDuplicateName, got %v", err)
	}

	res, err := s.Rename(ctx, "8A", "8C")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if res.Name != "8C" || !res.HasImage() {
		t.Fatalf("rename must carry the image, got %+v", res)
	}
	if _, err := s.Find(ctx, "8A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old name must be gone, got %v", err)
	}
	rc, err := s.OpenImage(ctx, "8C")
	if err != nil {
		t.Fatalf("OpenImage after rename: %v", err)
	}
	rc.Close()
}

func TestDirStoreRenameCaseOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Create(ctx, "9g"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	res, err := s.Rename(ctx, "9g", "9G")
	if err != nil {
		t.Fatalf("case-only rename must succeed: %v", err)
	}
	if res.Name != "9G" {
		t.Fatalf("expected new casing, got %q", res.Name)
	}
}

func TestDirStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Create(ctx, "6E"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.AttachImage(ctx, "6E", ".jpg", strings.NewReader("img")); err != nil {
		t.Fatalf("AttachImage: %v", err)
	}

	if err := s.Delete(ctx, "6e"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Find(ctx, "6E"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted resource must not resolve, got %v", err)
	}
	if err := s.Delete(ctx, "6E"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete must report ErrNotFound, got %v", err)
	}

	// The name is reusable after delete.
	if _, err := s.Create(ctx, "6E"); err != nil {
		t.Fatalf("recreate after delete: %v", err)
	}
}

func TestResourceGradeParallel(t *testing.T) {
	cases := []struct {
		name     string
		grade    string
		parallel string
	}{
		{"11A", "11", "A"},
		{"5b", "5", "b"},
		{"Ivanova", "", "Ivanova"},
		{"9", "9", ""},
	}
	for _, tc := range cases {
		r := Resource{Name: tc.name}
		if got := r.Grade(); got != tc.grade {
			t.Fatalf("Grade(%q) = %q, want %q", tc.name, got, tc.grade)
		}
		if got := r.Parallel(); got != tc.parallel {
			t.Fatalf("Parallel(%q) = %q, want %q", tc.name, got, tc.parallel)
		}
	}
}
