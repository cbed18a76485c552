package dialog

import (
	"context"
	"sync"

	"log/slog"

	"github.com/m3rciful/schedbot/core/logger"
	"github.com/m3rciful/schedbot/schedule"
)

// Step is the position of a chat inside a multi-step flow.
type Step int

const (
	Idle Step = iota
	AwaitingName
	AwaitingImage
	EditingName
	BrowsingGrade
	BrowsingParallel
)

func (s Step) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingName:
		return "awaiting_name"
	case AwaitingImage:
		return "awaiting_image"
	case EditingName:
		return "editing_name"
	case BrowsingGrade:
		return "browsing_grade"
	case BrowsingParallel:
		return "browsing_parallel"
	default:
		return "unknown"
	}
}

// State is one chat's conversation position. It is only ever touched
// from inside the chat's serialized handler, so no locking of its own.
type State struct {
	Step Step

	// PendingName carries the resource name between the name step and
	// the image or rename step; cleared when that step completes.
	PendingName string
	// PendingKind is which resource scope the pending flow targets.
	PendingKind schedule.Kind

	SelectedGrade    string
	SelectedParallel string

	// IngestBusy is set while an image transfer for this chat is in
	// flight; overlapping photos are rejected until it clears.
	IngestBusy bool
}

// Reset returns the chat to Idle. The State value itself is kept in the
// machine's map for the process lifetime, it is reset, never removed.
func (st *State) Reset() { *st = State{} }

// Rule is one transition: the first rule whose Match accepts the event
// runs, all later rules are skipped. Rule order is therefore the
// priority order of the transition table.
type Rule struct {
	Name  string
	Match func(st *State, ev Event) bool
	Run   func(ctx context.Context, st *State, ev Event) error
}

// Machine owns the chat→State map and drives it through an ordered rule
// set. All event processing for one chat happens on that chat's mailbox,
// so rules may read and write State freely.
type Machine struct {
	mu     sync.Mutex
	states map[int64]*State
	rules  []Rule
	ser    *Serializer
}

func NewMachine(rules []Rule) *Machine {
	return &Machine{
		states: make(map[int64]*State),
		rules:  rules,
		ser:    NewSerializer(),
	}
}

// SetRules installs the rule set after construction, for rules whose
// actions need the machine itself (ingestion completions re-entering
// via Enqueue). Must be called before the first Dispatch.
func (m *Machine) SetRules(rules []Rule) { m.rules = rules }

// Dispatch queues the event on its chat's mailbox. Returns immediately;
// the caller has already acknowledged the provider.
func (m *Machine) Dispatch(ctx context.Context, ev Event) {
	m.ser.Submit(ctx, ev.ChatID, func(ctx context.Context) {
		m.handle(ctx, ev)
	})
}

// Enqueue runs fn on the chat's mailbox with its State. Ingestion
// completions use this to re-enter the serialization point instead of
// mutating state from the transfer goroutine.
func (m *Machine) Enqueue(ctx context.Context, chatID int64, fn func(ctx context.Context, st *State)) {
	m.ser.Submit(ctx, chatID, func(ctx context.Context) {
		fn(ctx, m.state(chatID))
	})
}

// Peek returns a copy of the chat's current state, creating it if the
// chat has never been seen.
func (m *Machine) Peek(chatID int64) State {
	return *m.state(chatID)
}

func (m *Machine) handle(ctx context.Context, ev Event) {
	st := m.state(ev.ChatID)
	for _, rule := range m.rules {
		if !rule.Match(st, ev) {
			continue
		}
		if err := rule.Run(ctx, st, ev); err != nil {
			logger.TG.Error("rule failed",
				slog.String("event", "dialog.rule_error"),
				slog.String("rule", rule.Name),
				slog.String("step", st.Step.String()),
				slog.Int64("chat_id", ev.ChatID),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	// Unmatched input is dropped without a reply.
	logger.TG.Debug("event dropped",
		slog.String("event", "dialog.drop"),
		slog.String("kind", ev.Kind.String()),
		slog.String("step", st.Step.String()),
		slog.Int64("chat_id", ev.ChatID),
	)
}

func (m *Machine) state(chatID int64) *State {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[chatID]
	if !ok {
		st = &State{}
		m.states[chatID] = st
	}
	return st
}
