package dialog

import (
	"context"
	"sync"
	"testing"
	"time"
)

// drain waits until the chat's mailbox has processed everything queued
// before the call, by submitting a sentinel and waiting for it.
func drain(t *testing.T, m *Machine, chatID int64) {
	t.Helper()
	done := make(chan struct{})
	m.Enqueue(context.Background(), chatID, func(ctx context.Context, st *State) {
		close(done)
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("mailbox did not drain")
	}
}

func TestMachineFirstMatchWins(t *testing.T) {
	var ran []string
	rules := []Rule{
		{
			Name:  "first",
			Match: func(st *State, ev Event) bool { return ev.Kind == EventText },
			Run: func(ctx context.Context, st *State, ev Event) error {
				ran = append(ran, "first")
				return nil
			},
		},
		{
			Name:  "second",
			Match: func(st *State, ev Event) bool { return true },
			Run: func(ctx context.Context, st *State, ev Event) error {
				ran = append(ran, "second")
				return nil
			},
		},
	}
	m := NewMachine(rules)

	m.Dispatch(context.Background(), Event{Kind: EventText, ChatID: 1, Text: "hello"})
	drain(t, m, 1)

	if len(ran) != 1 || ran[0] != "first" {
		t.Fatalf("expected only the first matching rule to run, got %v", ran)
	}
}

func TestMachineQuietDrop(t *testing.T) {
	var ran int
	rules := []Rule{
		{
			Name:  "photo-only",
			Match: func(st *State, ev Event) bool { return ev.Kind == EventPhoto },
			Run: func(ctx context.Context, st *State, ev Event) error {
				ran++
				return nil
			},
		},
	}
	m := NewMachine(rules)

	m.Dispatch(context.Background(), Event{Kind: EventText, ChatID: 1, Text: "noise"})
	drain(t, m, 1)

	if ran != 0 {
		t.Fatalf("unmatched event must be dropped, rule ran %d times", ran)
	}
	if st := m.Peek(1); st.Step != Idle {
		t.Fatalf("dropped event must not change state, step = %v", st.Step)
	}
}

func TestMachineStateLifecycle(t *testing.T) {
	rules := []Rule{
		{
			Name:  "advance",
			Match: func(st *State, ev Event) bool { return st.Step == Idle },
			Run: func(ctx context.Context, st *State, ev Event) error {
				st.Step = AwaitingName
				st.PendingName = ev.Text
				return nil
			},
		},
		{
			Name:  "reset",
			Match: func(st *State, ev Event) bool { return st.Step == AwaitingName },
			Run: func(ctx context.Context, st *State, ev Event) error {
				st.Reset()
				return nil
			},
		},
	}
	m := NewMachine(rules)
	ctx := context.Background()

	m.Dispatch(ctx, Event{Kind: EventText, ChatID: 7, Text: "5A"})
	drain(t, m, 7)
	if st := m.Peek(7); st.Step != AwaitingName || st.PendingName != "5A" {
		t.Fatalf("expected AwaitingName/5A, got %+v", st)
	}

	m.Dispatch(ctx, Event{Kind: EventText, ChatID: 7})
	drain(t, m, 7)
	if st := m.Peek(7); st.Step != Idle || st.PendingName != "" {
		t.Fatalf("reset must return to a zero state, got %+v", st)
	}
}

func TestMachinePerChatOrdering(t *testing.T) {
	var (
		mu  sync.Mutex
		seq []string
	)
	rules := []Rule{
		{
			Name:  "record",
			Match: func(st *State, ev Event) bool { return true },
			Run: func(ctx context.Context, st *State, ev Event) error {
				if ev.Text == "slow" {
					time.Sleep(30 * time.Millisecond)
				}
				mu.Lock()
				seq = append(seq, ev.Text)
				mu.Unlock()
				return nil
			},
		},
	}
	m := NewMachine(rules)
	ctx := context.Background()

	m.Dispatch(ctx, Event{Kind: EventText, ChatID: 1, Text: "slow"})
	m.Dispatch(ctx, Event{Kind: EventText, ChatID: 1, Text: "second"})
	m.Dispatch(ctx, Event{Kind: EventText, ChatID: 1, Text: "third"})
	drain(t, m, 1)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"slow", "second", "third"}
	for i, w := range want {
		if seq[i] != w {
			t.Fatalf("events processed out of order: %v", seq)
		}
	}
}

func TestMachineEnqueueReentersSerially(t *testing.T) {
	rules := []Rule{
		{
			Name:  "start-transfer",
			Match: func(st *State, ev Event) bool { return ev.Kind == EventPhoto && !st.IngestBusy },
			Run: func(ctx context.Context, st *State, ev Event) error {
				st.IngestBusy = true
				return nil
			},
		},
	}
	m := NewMachine(rules)
	ctx := context.Background()

	m.Dispatch(ctx, Event{Kind: EventPhoto, ChatID: 3, PhotoID: "f"})
	drain(t, m, 3)
	if st := m.Peek(3); !st.IngestBusy {
		t.Fatalf("expected busy flag set")
	}

	// Completion re-enters the mailbox and clears the flag.
	m.Enqueue(ctx, 3, func(ctx context.Context, st *State) {
		st.IngestBusy = false
	})
	drain(t, m, 3)
	if st := m.Peek(3); st.IngestBusy {
		t.Fatalf("expected busy flag cleared after completion")
	}
}
