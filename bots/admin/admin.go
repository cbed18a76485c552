// Package admin implements the administrator persona: registering
// classes and teachers, attaching schedule images, renaming and
// deleting, all driven through the dialog machine.
package admin

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schedbot/bots/botutil"
	coretg "github.com/m3rciful/schedbot/core/telegram"
	"github.com/m3rciful/schedbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/schedbot/core/telegram/helpers"
	"github.com/m3rciful/schedbot/core/telegram/keyboard"
	"github.com/m3rciful/schedbot/dialog"
	"github.com/m3rciful/schedbot/gateway"
	"github.com/m3rciful/schedbot/profile"
	"github.com/m3rciful/schedbot/schedule"
	"github.com/m3rciful/schedbot/schedule/ingest"
)

// Menu button labels. The reply keyboard sends them back as plain text,
// so the rule table matches on them verbatim.
const (
	btnAddClass     = "Add class"
	btnAddTeacher   = "Add teacher"
	btnListClasses  = "Classes"
	btnListTeachers = "Teachers"
)

// Callback keys for the per-resource affordances.
const (
	cbViewClass     = "view_class"
	cbEditClass     = "edit_class"
	cbDeleteClass   = "delete_class"
	cbViewTeacher   = "view_teacher"
	cbEditTeacher   = "edit_teacher"
	cbDeleteTeacher = "delete_teacher"
)

// Starter launches one image transfer. *ingest.Pipeline satisfies it.
type Starter interface {
	Start(ctx context.Context, req ingest.Request, sink ingest.Sink, done func(ingest.Result))
}

// Deps wires the admin persona to its collaborators.
type Deps struct {
	Classes  schedule.Store
	Teachers schedule.Store
	Sender   dialog.Sender
	Ingest   Starter
	Profiles profile.Recorder
}

// New builds the admin dialog machine.
func New(d Deps) *dialog.Machine {
	m := dialog.NewMachine(nil)
	m.SetRules(rules(d, m))
	return m
}

// Register adds the admin commands and callback keys to the registry.
func Register(reg *coretg.Registry, m *dialog.Machine, d Deps) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     startHandler(d),
		Description: "Open the management menu",
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     statsHandler(d),
		Description: "Show usage counters",
		Hidden:      true,
	})
	return gateway.RegisterCallbackKeys(reg, m,
		cbViewClass, cbEditClass, cbDeleteClass,
		cbViewTeacher, cbEditTeacher, cbDeleteTeacher,
	)
}

func startHandler(d Deps) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.WithHandler(c, "start")
		if d.Profiles != nil {
			_ = d.Profiles.RecordStart(ctx, botutil.ProfileFrom(c, "admin"))
		}
		return tghelpers.SendText(c, "What would you like to manage?", keyboard.ReplyButtons(
			[]string{btnAddClass, btnAddTeacher},
			[]string{btnListClasses, btnListTeachers},
		))
	}
}

func statsHandler(d Deps) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.WithHandler(c, "stats")
		classes, err := d.Classes.List(ctx)
		if err != nil {
			return err
		}
		teachers, err := d.Teachers.List(ctx)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Classes: %d\nTeachers: %d", len(classes), len(teachers))
		if d.Profiles != nil {
			students, err := d.Profiles.Count(ctx, "student")
			if err == nil {
				msg += fmt.Sprintf("\nStudents started: %d", students)
			}
		}
		return tghelpers.SendText(c, msg)
	}
}

func rules(d Deps, m *dialog.Machine) []dialog.Rule {
	return []dialog.Rule{
		{
			Name: "photo.busy",
			Match: func(st *dialog.State, ev dialog.Event) bool {
				return ev.Kind == dialog.EventPhoto && st.Step == dialog.AwaitingImage && st.IngestBusy
			},
			Run: func(ctx context.Context, st *dialog.State, ev dialog.Event) error {
				return d.Sender.SendText(ctx, ev.ChatID,
					"Still saving the previous image, try again in a moment.", nil)
			},
		},
		{
			Name: "photo.ingest",
			Match: func(st *dialog.State, ev dialog.Event) bool {
				return ev.Kind == dialog.EventPhoto && st.Step == dialog.AwaitingImage
			},
			Run: d.startIngest(m),
		},
		{
			Name:  "menu.add_class",
			Match: idleText(btnAddClass),
			Run: func(ctx context.Context, st *dialog.State, ev dialog.Event) error {
				st.Step = dialog.AwaitingName
				st.PendingKind = schedule.KindClass
				return d.Sender.SendText(ctx, ev.ChatID,
					"Send the class name (for example 5A).", &dialog.Keyboard{Remove: true})
			},
		},
		{
			Name:  "menu.add_teacher",
			Match: idleText(btnAddTeacher),
			Run: func(ctx context.Context, st *dialog.State, ev dialog.Event) error {
				st.Step = dialog.AwaitingName
				st.PendingKind = schedule.KindTeacher
				return d.Sender.SendText(ctx, ev.ChatID,
					"Send the teacher's full name.", &dialog.Keyboard{Remove: true})
			},
		},
		{
			Name:  "menu.list_classes",
			Match: idleText(btnListClasses),
			Run: func(ctx context.Context, st *dialog.State, ev dialog.Event) error {
				return d.listResources(ctx, ev.ChatID, schedule.KindClass)
			},
		},
		{
			Name:  "menu.list_teachers",
			Match: idleText(btnListTeachers),
			Run: func(ctx context.Context, st *dialog.State, ev dialog.Event) error {
				return d.listResources(ctx, ev.ChatID, schedule.KindTeacher)
			},
		},
		{
			Name: "name.create",
			Match: func(st *dialog.State, ev dialog.Event) bool {
				return ev.Kind == dialog.EventText && st.Step == dialog.AwaitingName
			},
			Run: d.createResource,
		},
		{
			Name: "name.rename",
			Match: func(st *dialog.State, ev dialog.Event) bool {
				return ev.Kind == dialog.EventText && st.Step == dialog.EditingName
			},
			Run: d.renameResource,
		},
		{
			Name:  "cb.view",
			Match: callbackKey(cbViewClass, cbViewTeacher),
			Run: func(ctx context.Context, st *dialog.State, ev dialog.Event) error {
				return botutil.SendScheduleImage(ctx, d.Sender,
					d.store(kindForKey(ev.CallbackKey)), ev.ChatID, ev.CallbackPayload)
			},
		},
		{
			Name:  "cb.edit",
			Match: callbackKey(cbEditClass, cbEditTeacher),
			Run: func(ctx context.Context, st *dialog.State, ev dialog.Event) error {
				st.Step = dialog.EditingName
				st.PendingKind = kindForKey(ev.CallbackKey)
				st.PendingName = ev.CallbackPayload
				return d.Sender.SendText(ctx, ev.ChatID,
					fmt.Sprintf("Send the new name for %s.", ev.CallbackPayload), nil)
			},
		},
		{
			Name:  "cb.delete",
			Match: callbackKey(cbDeleteClass, cbDeleteTeacher),
			Run: func(ctx context.Context, st *dialog.State, ev dialog.Event) error {
				return d.deleteResource(ctx, ev)
			},
		},
	}
}

// menuKeyboard is the management reply keyboard. The add flows remove
// it while prompting, so completion replies bring it back.
func menuKeyboard() *dialog.Keyboard {
	return &dialog.Keyboard{Rows: [][]dialog.Button{
		dialog.Row(dialog.Button{Text: btnAddClass}, dialog.Button{Text: btnAddTeacher}),
		dialog.Row(dialog.Button{Text: btnListClasses}, dialog.Button{Text: btnListTeachers}),
	}}
}

func idleText(label string) func(*dialog.State, dialog.Event) bool {
	return func(st *dialog.State, ev dialog.Event) bool {
		return ev.Kind == dialog.EventText && st.Step == dialog.Idle && ev.Text == label
	}
}

func callbackKey(keys ...string) func(*dialog.State, dialog.Event) bool {
	return func(st *dialog.State, ev dialog.Event) bool {
		if ev.Kind != dialog.EventCallback {
			return false
		}
		for _, k := range keys {
			if ev.CallbackKey == k {
				return true
			}
		}
		return false
	}
}

func kindForKey(key string) schedule.Kind {
	switch key {
	case cbViewTeacher, cbEditTeacher, cbDeleteTeacher:
		return schedule.KindTeacher
	default:
		return schedule.KindClass
	}
}

func (d Deps) store(kind schedule.Kind) schedule.Store {
	if kind == schedule.KindTeacher {
		return d.Teachers
	}
	return d.Classes
}

func keysFor(kind schedule.Kind) (view, edit, del string) {
	if kind == schedule.KindTeacher {
		return cbViewTeacher, cbEditTeacher, cbDeleteTeacher
	}
	return cbViewClass, cbEditClass, cbDeleteClass
}

func (d Deps) listResources(ctx context.Context, chatID int64, kind schedule.Kind) error {
	list, err := d.store(kind).List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return d.Sender.SendText(ctx, chatID, "Nothing here yet.", nil)
	}

	view, edit, del := keysFor(kind)
	for _, res := range list {
		text := res.Name
		if !res.HasImage() {
			text += " (no image yet)"
		}
		kb := &dialog.Keyboard{
			Inline: true,
			Rows: [][]dialog.Button{dialog.Row(
				dialog.Button{Text: "Show", Key: view, Payload: res.Name},
				dialog.Button{Text: "Rename", Key: edit, Payload: res.Name},
				dialog.Button{Text: "Delete", Key: del, Payload: res.Name},
			)},
		}
		if err := d.Sender.SendText(ctx, chatID, text, kb); err != nil {
			return err
		}
	}
	return nil
}

func (d Deps) createResource(ctx context.Context, st *dialog.State, ev dialog.Event) error {
	res, err := d.store(st.PendingKind).Create(ctx, ev.Text)
	switch {
	case errors.Is(err, schedule.ErrDuplicateName):
		st.Reset()
		return d.Sender.SendText(ctx, ev.ChatID,
			fmt.Sprintf("%s already exists.", schedule.NormalizeName(ev.Text)), nil)
	case errors.Is(err, schedule.ErrInvalidName):
		return d.Sender.SendText(ctx, ev.ChatID,
			"That name cannot be used, send another one.", nil)
	case err != nil:
		st.Reset()
		_ = d.Sender.SendText(ctx, ev.ChatID, "Something went wrong, start over.", nil)
		return err
	}

	st.Step = dialog.AwaitingImage
	st.PendingName = res.Name
	return d.Sender.SendText(ctx, ev.ChatID,
		fmt.Sprintf("Now send the schedule image for %s.", res.Name), nil)
}

func (d Deps) renameResource(ctx context.Context, st *dialog.State, ev dialog.Event) error {
	res, err := d.store(st.PendingKind).Rename(ctx, st.PendingName, ev.Text)
	switch {
	case errors.Is(err, schedule.ErrDuplicateName):
		return d.Sender.SendText(ctx, ev.ChatID,
			fmt.Sprintf("%s is already taken, send a different name.", schedule.NormalizeName(ev.Text)), nil)
	case errors.Is(err, schedule.ErrInvalidName):
		return d.Sender.SendText(ctx, ev.ChatID,
			"That name cannot be used, send another one.", nil)
	case errors.Is(err, schedule.ErrNotFound):
		old := st.PendingName
		st.Reset()
		return d.Sender.SendText(ctx, ev.ChatID,
			fmt.Sprintf("%s is not on the list anymore.", old), nil)
	case err != nil:
		st.Reset()
		_ = d.Sender.SendText(ctx, ev.ChatID, "Something went wrong, start over.", nil)
		return err
	}

	old := st.PendingName
	kind := st.PendingKind
	st.Reset()
	if err := d.Sender.SendText(ctx, ev.ChatID,
		fmt.Sprintf("Renamed %s to %s.", old, res.Name), nil); err != nil {
		return err
	}
	return d.listResources(ctx, ev.ChatID, kind)
}

func (d Deps) deleteResource(ctx context.Context, ev dialog.Event) error {
	name := ev.CallbackPayload
	kind := kindForKey(ev.CallbackKey)
	err := d.store(kind).Delete(ctx, name)
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		return d.Sender.SendText(ctx, ev.ChatID,
			fmt.Sprintf("%s is already gone.", name), nil)
	case err != nil:
		_ = d.Sender.SendText(ctx, ev.ChatID,
			fmt.Sprintf("Couldn't fully delete %s, check the logs.", name), nil)
		return err
	}
	if err := d.Sender.SendText(ctx, ev.ChatID, fmt.Sprintf("Deleted %s.", name), nil); err != nil {
		return err
	}
	return d.listResources(ctx, ev.ChatID, kind)
}

// startIngest launches the transfer for the pending resource. The chat
// stays in AwaitingImage and rejects overlapping photos until the
// transfer settles; the completion re-enters the chat's mailbox.
func (d Deps) startIngest(m *dialog.Machine) func(context.Context, *dialog.State, dialog.Event) error {
	return func(ctx context.Context, st *dialog.State, ev dialog.Event) error {
		st.IngestBusy = true
		sink := d.store(st.PendingKind)
		req := ingest.Request{Name: st.PendingName, FileID: ev.PhotoID}
		chatID := ev.ChatID

		d.Ingest.Start(ctx, req, sink, func(res ingest.Result) {
			m.Enqueue(ctx, chatID, func(ctx context.Context, st *dialog.State) {
				st.IngestBusy = false
				if res.Err != nil {
					_ = d.Sender.SendText(ctx, chatID,
						"Couldn't save the image, send it again.", nil)
					return
				}
				name := res.Resource.Name
				st.Reset()
				_ = d.Sender.SendText(ctx, chatID,
					fmt.Sprintf("Saved the schedule for %s.", name), menuKeyboard())
			})
		})
		return nil
	}
}
