// Package botutil holds the reply helpers the three bot personas share.
package botutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/schedbot/dialog"
	"github.com/m3rciful/schedbot/profile"
	"github.com/m3rciful/schedbot/schedule"
)

// SendScheduleImage resolves a resource and replies with its image, or
// with the matching explanation when the resource or image is missing.
func SendScheduleImage(ctx context.Context, s dialog.Sender, store schedule.Store, chatID int64, name string) error {
	res, err := store.Find(ctx, name)
	if errors.Is(err, schedule.ErrNotFound) {
		return s.SendText(ctx, chatID, fmt.Sprintf("%s is not on the list anymore.", name), nil)
	}
	if err != nil {
		return err
	}
	if !res.HasImage() {
		return s.SendText(ctx, chatID, fmt.Sprintf("No schedule uploaded for %s yet.", res.Name), nil)
	}

	rc, err := store.OpenImage(ctx, res.Name)
	if errors.Is(err, schedule.ErrNotFound) {
		return s.SendText(ctx, chatID, fmt.Sprintf("No schedule uploaded for %s yet.", res.Name), nil)
	}
	if err != nil {
		return err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return err
	}
	return s.SendPhoto(ctx, chatID, bytes.NewReader(data), res.Name)
}

// ProfileFrom builds a profile record from the update's sender.
func ProfileFrom(c tele.Context, persona string) profile.Profile {
	p := profile.Profile{Persona: persona}
	if chat := c.Chat(); chat != nil {
		p.ChatID = chat.ID
	}
	if u := c.Sender(); u != nil {
		p.FirstName = u.FirstName
		p.LastName = u.LastName
		p.Username = u.Username
	}
	return p
}
