package callbacks

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name         string
		cb           *tele.Callback
		key, payload string
	}{
		{"nil", nil, "", ""},
		{"markup data", &tele.Callback{Data: "\fremove|Tutoring"}, "remove", "Tutoring"},
		{"payload with separator", &tele.Callback{Data: "\fremove|a|b"}, "remove", "a|b"},
		{"key only", &tele.Callback{Data: "\fremove"}, "remove", ""},
		{"raw data", &tele.Callback{Data: "Remove"}, "", "Remove"},
		{"already split", &tele.Callback{Unique: "remove", Data: "Cat sitting"}, "remove", "Cat sitting"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tc.cb)
			require.Equal(t, tc.key, key)
			require.Equal(t, tc.payload, payload)
		})
	}
}
