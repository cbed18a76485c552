// Package teacher implements the teacher persona: free-text lookup of a
// teacher by name, with a pick list when several match.
package teacher

import (
	"context"
	"fmt"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schedbot/bots/botutil"
	coretg "github.com/m3rciful/schedbot/core/telegram"
	"github.com/m3rciful/schedbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/schedbot/core/telegram/helpers"
	"github.com/m3rciful/schedbot/dialog"
	"github.com/m3rciful/schedbot/gateway"
	"github.com/m3rciful/schedbot/profile"
	"github.com/m3rciful/schedbot/schedule"
)

const cbViewTeacher = "view_teacher"

// minQueryRunes keeps single letters from matching half the list.
const minQueryRunes = 3

// Deps wires the teacher persona to its collaborators.
type Deps struct {
	Teachers schedule.Store
	Sender   dialog.Sender
	Profiles profile.Recorder
}

// New builds the teacher dialog machine.
func New(d Deps) *dialog.Machine {
	return dialog.NewMachine(rules(d))
}

// Register adds the teacher commands and callback keys to the registry.
func Register(reg *coretg.Registry, m *dialog.Machine, d Deps) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     startHandler(d),
		Description: "Look up a schedule by name",
	})
	return gateway.RegisterCallbackKeys(reg, m, cbViewTeacher)
}

func startHandler(d Deps) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.WithHandler(c, "start")
		if d.Profiles != nil {
			_ = d.Profiles.RecordStart(ctx, botutil.ProfileFrom(c, "teacher"))
		}
		return tghelpers.SendText(c, "Send a teacher's name, at least 3 letters.")
	}
}

func rules(d Deps) []dialog.Rule {
	return []dialog.Rule{
		{
			Name: "cb.view",
			Match: func(st *dialog.State, ev dialog.Event) bool {
				return ev.Kind == dialog.EventCallback && ev.CallbackKey == cbViewTeacher
			},
			Run: func(ctx context.Context, st *dialog.State, ev dialog.Event) error {
				return botutil.SendScheduleImage(ctx, d.Sender, d.Teachers, ev.ChatID, ev.CallbackPayload)
			},
		},
		{
			Name: "text.short",
			Match: func(st *dialog.State, ev dialog.Event) bool {
				return ev.Kind == dialog.EventText && utf8.RuneCountInString(ev.Text) < minQueryRunes
			},
			Run: func(ctx context.Context, st *dialog.State, ev dialog.Event) error {
				return d.Sender.SendText(ctx, ev.ChatID,
					"Type at least 3 letters of the teacher's name.", nil)
			},
		},
		{
			Name: "text.lookup",
			Match: func(st *dialog.State, ev dialog.Event) bool {
				return ev.Kind == dialog.EventText
			},
			Run: d.lookup,
		},
	}
}

func (d Deps) lookup(ctx context.Context, st *dialog.State, ev dialog.Event) error {
	matches, err := d.Teachers.FindByToken(ctx, ev.Text)
	if err != nil {
		return err
	}
	switch len(matches) {
	case 0:
		return d.Sender.SendText(ctx, ev.ChatID,
			fmt.Sprintf("No teacher found for %q.", ev.Text), nil)
	case 1:
		return botutil.SendScheduleImage(ctx, d.Sender, d.Teachers, ev.ChatID, matches[0].Name)
	}

	rows := make([][]dialog.Button, 0, len(matches))
	for _, res := range matches {
		rows = append(rows, dialog.Row(
			dialog.Button{Text: res.Name, Key: cbViewTeacher, Payload: res.Name},
		))
	}
	return d.Sender.SendText(ctx, ev.ChatID, "Which one?",
		&dialog.Keyboard{Inline: true, Rows: rows})
}
