package dialog

import (
	"context"
	"sync"
)

// mailboxDepth bounds how many events can queue per chat before Submit
// blocks the producer.
const mailboxDepth = 16

// Serializer runs submitted work strictly in submission order per chat,
// while unrelated chats proceed concurrently. One goroutine per chat is
// created lazily on first use and lives for the process lifetime, the
// same growth property as the state map it protects.
type Serializer struct {
	mu    sync.Mutex
	boxes map[int64]chan func()
	wg    sync.WaitGroup
}

func NewSerializer() *Serializer {
	return &Serializer{boxes: make(map[int64]chan func())}
}

// Submit enqueues fn on the chat's mailbox, blocking if the mailbox is
// full. fn runs with the supplied context.
func (s *Serializer) Submit(ctx context.Context, chatID int64, fn func(context.Context)) {
	s.mailbox(chatID) <- func() { fn(ctx) }
}

func (s *Serializer) mailbox(chatID int64) chan func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	box, ok := s.boxes[chatID]
	if !ok {
		box = make(chan func(), mailboxDepth)
		s.boxes[chatID] = box
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for fn := range box {
				fn()
			}
		}()
	}
	return box
}
