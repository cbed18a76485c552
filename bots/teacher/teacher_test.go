package teacher

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/schedbot/dialog"
	"github.com/m3rciful/schedbot/schedule"
)

type fakeSender struct {
	mu     sync.Mutex
	texts  []string
	kbs    []*dialog.Keyboard
	photos []string
}

func (f *fakeSender) SendText(ctx context.Context, chatID int64, text string, kb *dialog.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.kbs = append(f.kbs, kb)
	return nil
}

func (f *fakeSender) SendPhoto(ctx context.Context, chatID int64, image io.Reader, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, caption)
	return nil
}

type harness struct {
	m        *dialog.Machine
	sender   *fakeSender
	teachers *schedule.DirStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	teachers, err := schedule.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	sender := &fakeSender{}
	m := New(Deps{Teachers: teachers, Sender: sender})
	return &harness{m: m, sender: sender, teachers: teachers}
}

func (h *harness) drain(t *testing.T, chatID int64) {
	t.Helper()
	done := make(chan struct{})
	h.m.Enqueue(context.Background(), chatID, func(ctx context.Context, st *dialog.State) {
		close(done)
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("mailbox did not drain")
	}
}

func (h *harness) seed(t *testing.T, names ...string) {
	t.Helper()
	ctx := context.Background()
	for _, name := range names {
		if _, err := h.teachers.Create(ctx, name); err != nil {
			t.Fatalf("Create(%q): %v", name, err)
		}
		if _, err := h.teachers.AttachImage(ctx, name, ".jpg", strings.NewReader("img")); err != nil {
			t.Fatalf("AttachImage(%q): %v", name, err)
		}
	}
}

func (h *harness) text(t *testing.T, chatID int64, text string) {
	t.Helper()
	h.m.Dispatch(context.Background(), dialog.Event{Kind: dialog.EventText, ChatID: chatID, Text: text})
	h.drain(t, chatID)
}

func TestLookupSingleMatch(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Aliyev Dilshod", "Karimova Nilufar")
	const chat = int64(30)

	h.text(t, chat, "aliyev")

	h.sender.mu.Lock()
	defer h.sender.mu.Unlock()
	if len(h.sender.photos) != 1 || h.sender.photos[0] != "Aliyev Dilshod" {
		t.Fatalf("expected one photo for Aliyev Dilshod, got %v", h.sender.photos)
	}
}

func TestLookupMultipleMatches(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Karimova Nilufar", "Karimov Bekzod")
	const chat = int64(31)

	h.text(t, chat, "karimov")

	h.sender.mu.Lock()
	defer h.sender.mu.Unlock()
	if len(h.sender.photos) != 0 {
		t.Fatalf("ambiguous lookup must not send a photo, got %v", h.sender.photos)
	}
	kb := h.sender.kbs[len(h.sender.kbs)-1]
	if kb == nil || !kb.Inline || len(kb.Rows) != 2 {
		t.Fatalf("expected a two-row pick list, got %+v", kb)
	}
}

func TestLookupNoMatch(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Aliyev Dilshod")
	const chat = int64(32)

	h.text(t, chat, "petrov")

	h.sender.mu.Lock()
	defer h.sender.mu.Unlock()
	if len(h.sender.texts) != 1 || !strings.Contains(h.sender.texts[0], "No teacher found") {
		t.Fatalf("expected not-found reply, got %v", h.sender.texts)
	}
}

func TestLookupTooShort(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Aliyev Dilshod")
	const chat = int64(33)

	h.text(t, chat, "al")

	h.sender.mu.Lock()
	defer h.sender.mu.Unlock()
	if len(h.sender.texts) != 1 || !strings.Contains(h.sender.texts[0], "at least 3 letters") {
		t.Fatalf("expected short-query reply, got %v", h.sender.texts)
	}
	if len(h.sender.photos) != 0 {
		t.Fatalf("short query must not resolve, got %v", h.sender.photos)
	}
}

func TestCallbackView(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "Karimova Nilufar")
	const chat = int64(34)

	h.m.Dispatch(context.Background(), dialog.Event{
		Kind: dialog.EventCallback, ChatID: chat,
		CallbackKey: cbViewTeacher, CallbackPayload: "Karimova Nilufar",
	})
	h.drain(t, chat)

	h.sender.mu.Lock()
	defer h.sender.mu.Unlock()
	if len(h.sender.photos) != 1 || h.sender.photos[0] != "Karimova Nilufar" {
		t.Fatalf("expected photo for Karimova Nilufar, got %v", h.sender.photos)
	}
}
