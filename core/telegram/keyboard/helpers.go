// Package keyboard builds telebot reply markup from plain values, so
// callers never touch tele.Btn plumbing directly.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is one inline button: its label, callback unique and payload.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// RemoveKeyboard hides a previously sent reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyButtons lays out a resizable reply keyboard, one row per slice.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	grid := make([]tele.Row, 0, len(rows))
	for _, labels := range rows {
		row := make([]tele.Btn, 0, len(labels))
		for _, label := range labels {
			row = append(row, markup.Text(label))
		}
		grid = append(grid, markup.Row(row...))
	}
	markup.Reply(grid...)
	return markup
}

// InlineButtonsRows lays out an inline keyboard, one row per slice.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	grid := make([][]tele.InlineButton, 0, len(rows))
	for _, btns := range rows {
		row := make([]tele.InlineButton, 0, len(btns))
		for _, b := range btns {
			row = append(row, *markup.Data(b.Text, b.Unique, b.Data).Inline())
		}
		grid = append(grid, row)
	}
	markup.InlineKeyboard = grid
	return markup
}
