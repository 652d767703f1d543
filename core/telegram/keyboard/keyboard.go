// Package keyboard builds telebot reply markups.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline button. Unique routes the callback to a handler and
// Data travels with it as the payload.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// Remove hides the custom reply keyboard.
func Remove() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// Reply is a resized reply keyboard with one row per argument.
func Reply(rows ...[]string) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{ResizeKeyboard: true}
	out := make([]tele.Row, 0, len(rows))
	for _, labels := range rows {
		row := make(tele.Row, len(labels))
		for i, label := range labels {
			row[i] = m.Text(label)
		}
		out = append(out, row)
	}
	m.Reply(out...)
	return m
}

// Inline lays buttons out left to right, perRow to a row. perRow below one
// means one button per row.
func Inline(buttons []Button, perRow int) *tele.ReplyMarkup {
	if perRow < 1 {
		perRow = 1
	}
	m := &tele.ReplyMarkup{}
	for len(buttons) > 0 {
		n := min(perRow, len(buttons))
		row := make([]tele.InlineButton, n)
		for i, b := range buttons[:n] {
			row[i] = *m.Data(b.Text, b.Unique, b.Data).Inline()
		}
		m.InlineKeyboard = append(m.InlineKeyboard, row)
		buttons = buttons[n:]
	}
	return m
}
