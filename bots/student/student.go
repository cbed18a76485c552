// Package student implements the student persona: pick a grade, pick a
// class, receive the schedule image.
package student

import (
	"context"
	"fmt"
	"regexp"
	"strings"

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
)

const (
	cbViewClass = "view_class"
	cbBack      = "back"

	maxParallelsPerRow = 3
)

// gradePattern accepts grades 1 through 11.
var gradePattern = regexp.MustCompile(`^(1[01]|[1-9])$`)

// Deps wires the student persona to its collaborators.
type Deps struct {
	Classes  schedule.Store
	Sender   dialog.Sender
	Profiles profile.Recorder
}

// New builds the student dialog machine.
func New(d Deps) *dialog.Machine {
	return dialog.NewMachine(rules(d))
}

// Register adds the student commands and callback keys to the registry.
func Register(reg *coretg.Registry, m *dialog.Machine, d Deps) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     startHandler(d),
		Description: "Pick your grade",
	})
	return gateway.RegisterCallbackKeys(reg, m, cbViewClass, cbBack)
}

// Routes returns the update routes, with every inbound message touching
// the student's profile so last-seen stays current.
func Routes(m *dialog.Machine, reg *coretg.Registry, d Deps) []coretg.Route {
	routes := gateway.Routes(m, reg)
	for i, route := range routes {
		inner := route.Handler
		routes[i].Handler = func(c tele.Context) error {
			if d.Profiles != nil {
				_ = d.Profiles.Touch(tghelpers.BuildContext(c), botutil.ProfileFrom(c, "student"))
			}
			return inner(c)
		}
	}
	return routes
}

func startHandler(d Deps) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.WithHandler(c, "start")
		if d.Profiles != nil {
			_ = d.Profiles.RecordStart(ctx, botutil.ProfileFrom(c, "student"))
		}
		return tghelpers.SendText(c, "Pick your grade.", gradeKeyboard())
	}
}

func gradeKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{"1", "2", "3", "4"},
		[]string{"5", "6", "7", "8"},
		[]string{"9", "10", "11"},
	)
}

func rules(d Deps) []dialog.Rule {
	return []dialog.Rule{
		{
			Name: "cb.back",
			Match: func(st *dialog.State, ev dialog.Event) bool {
				return ev.Kind == dialog.EventCallback && ev.CallbackKey == cbBack
			},
			Run: d.goBack,
		},
		{
			Name: "cb.view",
			Match: func(st *dialog.State, ev dialog.Event) bool {
				return ev.Kind == dialog.EventCallback && ev.CallbackKey == cbViewClass
			},
			Run: func(ctx context.Context, st *dialog.State, ev dialog.Event) error {
				if st.Step == dialog.BrowsingGrade {
					st.Step = dialog.BrowsingParallel
					st.SelectedParallel = ev.CallbackPayload
				}
				return botutil.SendScheduleImage(ctx, d.Sender, d.Classes, ev.ChatID, ev.CallbackPayload)
			},
		},
		{
			Name: "text.grade",
			Match: func(st *dialog.State, ev dialog.Event) bool {
				return ev.Kind == dialog.EventText && st.Step == dialog.Idle &&
					gradePattern.MatchString(ev.Text)
			},
			Run: d.showGrade,
		},
		{
			Name: "text.parallel",
			Match: func(st *dialog.State, ev dialog.Event) bool {
				return ev.Kind == dialog.EventText && st.Step == dialog.BrowsingGrade
			},
			Run: d.pickParallel,
		},
	}
}

func (d Deps) showGrade(ctx context.Context, st *dialog.State, ev dialog.Event) error {
	matches, err := d.Classes.FindByToken(ctx, ev.Text)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return d.Sender.SendText(ctx, ev.ChatID,
			fmt.Sprintf("No classes for grade %s yet.", ev.Text), nil)
	}

	st.Step = dialog.BrowsingGrade
	st.SelectedGrade = ev.Text
	return d.Sender.SendText(ctx, ev.ChatID, "Pick your class.", parallelKeyboard(matches))
}

// pickParallel resolves free text against the selected grade's classes,
// accepting either the full class name or just the parallel letter.
func (d Deps) pickParallel(ctx context.Context, st *dialog.State, ev dialog.Event) error {
	matches, err := d.Classes.FindByToken(ctx, st.SelectedGrade)
	if err != nil {
		return err
	}
	for _, res := range matches {
		if schedule.EqualNames(res.Name, ev.Text) || strings.EqualFold(res.Parallel(), ev.Text) {
			st.Step = dialog.BrowsingParallel
			st.SelectedParallel = res.Name
			return botutil.SendScheduleImage(ctx, d.Sender, d.Classes, ev.ChatID, res.Name)
		}
	}
	return d.Sender.SendText(ctx, ev.ChatID,
		fmt.Sprintf("No such class in grade %s, pick one from the list.", st.SelectedGrade), nil)
}

func (d Deps) goBack(ctx context.Context, st *dialog.State, ev dialog.Event) error {
	switch st.Step {
	case dialog.BrowsingParallel:
		st.Step = dialog.BrowsingGrade
		st.SelectedParallel = ""
		matches, err := d.Classes.FindByToken(ctx, st.SelectedGrade)
		if err != nil {
			return err
		}
		return d.Sender.SendText(ctx, ev.ChatID, "Pick your class.", parallelKeyboard(matches))
	case dialog.BrowsingGrade:
		st.Reset()
		return d.Sender.SendText(ctx, ev.ChatID, "Pick your grade.", nil)
	default:
		return nil
	}
}

func parallelKeyboard(matches []schedule.Resource) *dialog.Keyboard {
	var rows [][]dialog.Button
	var row []dialog.Button
	for _, res := range matches {
		row = append(row, dialog.Button{Text: res.Name, Key: cbViewClass, Payload: res.Name})
		if len(row) == maxParallelsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, dialog.Row(dialog.Button{Text: "Back", Key: cbBack}))
	return &dialog.Keyboard{Inline: true, Rows: rows}
}
