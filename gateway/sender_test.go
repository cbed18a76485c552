package gateway

import (
	"testing"

	"github.com/m3rciful/schedbot/dialog"
)

func TestBuildMarkupNil(t *testing.T) {
	if got := buildMarkup(nil); got != nil {
		t.Fatalf("nil keyboard must map to nil markup, got %+v", got)
	}
}

func TestBuildMarkupRemove(t *testing.T) {
	got := buildMarkup(&dialog.Keyboard{Remove: true})
	if got == nil || !got.RemoveKeyboard {
		t.Fatalf("expected remove-keyboard markup, got %+v", got)
	}
}

func TestBuildMarkupInline(t *testing.T) {
	kb := &dialog.Keyboard{
		Inline: true,
		Rows: [][]dialog.Button{
			dialog.Row(
				dialog.Button{Text: "5A", Key: "view_class", Payload: "5A"},
				dialog.Button{Text: "5B", Key: "view_class", Payload: "5B"},
			),
			dialog.Row(dialog.Button{Text: "Back", Key: "back"}),
		},
	}
	got := buildMarkup(kb)
	if got == nil || len(got.InlineKeyboard) != 2 {
		t.Fatalf("expected two inline rows, got %+v", got)
	}
	if len(got.InlineKeyboard[0]) != 2 || len(got.InlineKeyboard[1]) != 1 {
		t.Fatalf("row shapes lost: %+v", got.InlineKeyboard)
	}
	first := got.InlineKeyboard[0][0]
	if first.Text != "5A" {
		t.Fatalf("button text lost: %+v", first)
	}
}

func TestBuildMarkupReply(t *testing.T) {
	kb := &dialog.Keyboard{
		Rows: [][]dialog.Button{
			dialog.Row(dialog.Button{Text: "Schedule"}, dialog.Button{Text: "Help"}),
		},
	}
	got := buildMarkup(kb)
	if got == nil || len(got.ReplyKeyboard) != 1 || len(got.ReplyKeyboard[0]) != 2 {
		t.Fatalf("expected one reply row with two buttons, got %+v", got)
	}
	if got.ReplyKeyboard[0][0].Text != "Schedule" {
		t.Fatalf("reply label lost: %+v", got.ReplyKeyboard[0][0])
	}
}
