package dialogue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func allStates() []State {
	return []State{
		Start{},
		Menu{},
		BuyAndSell{},
		SellSomething{Photos: []string{"p1"}},
		AddDescription{Photos: []string{"p1", "p2"}},
		Confirm{Photos: []string{"p1"}, Description: "Free couch"},
		AnonPoll{Question: "Lunch?", Selections: []string{"yes"}},
	}
}

func texts(a Action) []string {
	out := make([]string, 0, len(a.Prompts))
	for _, p := range a.Prompts {
		out = append(out, p.Text)
	}
	return out
}

func TestMainMenuOverridesEveryState(t *testing.T) {
	m := New(Options{})
	for _, s := range allStates() {
		next, act := m.Transition(s, Text(ButtonMainMenu))
		require.Equal(t, Menu{}, next, "from %s", s.Kind())
		require.Equal(t, []string{TextMainMenu}, texts(act))
		require.Equal(t, menuKeyboard, act.Prompts[0].Keyboard)
		require.Nil(t, act.Submit)
	}
}

func TestCancelAlwaysReturnsToMenu(t *testing.T) {
	m := New(Options{})
	for _, s := range []State{
		SellSomething{Photos: []string{"p1"}},
		AddDescription{Photos: []string{"p1"}},
		Confirm{Photos: []string{"p1"}, Description: "d"},
	} {
		next, act := m.Transition(s, Text(ButtonCancel))
		require.Equal(t, Menu{}, next, "from %s", s.Kind())
		require.Equal(t, []string{TextCancelled, TextMainMenu}, texts(act))
	}
}

func TestFreshConversationShowsMenu(t *testing.T) {
	m := New(Options{})
	for _, ev := range []Event{Text("hello"), Photo("p"), Unsupported()} {
		next, act := m.Transition(nil, ev)
		require.Equal(t, Menu{}, next)
		require.Equal(t, []string{TextMainMenu}, texts(act))
	}
}

func TestMenuRows(t *testing.T) {
	m := New(Options{HelpURL: "docs.example"})

	next, act := m.Transition(Menu{}, Text(ButtonBuyAndSell))
	require.Equal(t, BuyAndSell{}, next)
	require.Len(t, act.Prompts, 1)
	require.Equal(t, TextBuyAndSell, act.Prompts[0].Text)
	require.Equal(t, []string{"List something new", "List my items", "Search listings", "Main menu"}, act.Prompts[0].Keyboard)

	next, act = m.Transition(Menu{}, Text(ButtonHelp))
	require.Equal(t, Menu{}, next)
	require.Equal(t, []string{"Please read more at docs.example"}, texts(act))

	next, act = m.Transition(Menu{}, Text("Invite someone"))
	require.Equal(t, Menu{}, next)
	require.Equal(t, []string{TextUnknownOption, TextMainMenu}, texts(act))

	next, act = m.Transition(Menu{}, Photo("p"))
	require.Equal(t, Menu{}, next)
	require.Equal(t, []string{TextUnexpected, TextMainMenu}, texts(act))
}

func TestBuyAndSellRows(t *testing.T) {
	m := New(Options{ListingsURL: "https://example.test/listings"})

	next, act := m.Transition(BuyAndSell{}, Text(ButtonListNew))
	require.Equal(t, SellSomething{Photos: []string{}}, next)
	require.Equal(t, []string{TextUploadPhotos}, texts(act))
	require.Equal(t, []string{ButtonDoneUploading, ButtonCancel}, act.Prompts[0].Keyboard)

	next, act = m.Transition(BuyAndSell{}, Text(ButtonListMine))
	require.Equal(t, BuyAndSell{}, next)
	require.Equal(t, []string{"Tutoring", "Cat sitting"}, texts(act))
	for _, p := range act.Prompts {
		require.Equal(t, []InlineButton{{Text: ButtonRemove, Action: RemoveAction, Data: p.Text}}, p.Inline)
	}

	next, act = m.Transition(BuyAndSell{}, Text(ButtonSearch))
	require.Equal(t, Menu{}, next)
	require.Equal(t, []string{"You can see and search all active listings at https://example.test/listings", TextMainMenu}, texts(act))

	next, act = m.Transition(BuyAndSell{}, Text("sell my bike"))
	require.Equal(t, Menu{}, next)
	require.Equal(t, []string{TextUnknownOption, TextMainMenu}, texts(act))
}

func TestPhotosAppendInArrivalOrder(t *testing.T) {
	m := New(Options{})
	var s State = SellSomething{Photos: []string{}}
	want := []string{"a", "b", "c", "d", "e"}
	for _, ref := range want {
		var act Action
		s, act = m.Transition(s, Photo(ref))
		require.Empty(t, act.Prompts)
		require.Nil(t, act.Submit)
	}
	require.Equal(t, SellSomething{Photos: want}, s)
}

func TestPhotoAppendDoesNotAliasPreviousState(t *testing.T) {
	m := New(Options{})
	base := SellSomething{Photos: make([]string, 1, 8)}
	base.Photos[0] = "a"

	left, _ := m.Transition(base, Photo("b"))
	right, _ := m.Transition(base, Photo("c"))

	require.Equal(t, []string{"a", "b"}, left.(SellSomething).Photos)
	require.Equal(t, []string{"a", "c"}, right.(SellSomething).Photos)
	require.Equal(t, []string{"a"}, base.Photos)
}

func TestPhotosThenDoneUploading(t *testing.T) {
	m := New(Options{})
	var s State = SellSomething{Photos: []string{}}
	s, _ = m.Transition(s, Photo("ref1"))
	s, _ = m.Transition(s, Photo("ref2"))
	s, act := m.Transition(s, Text(ButtonDoneUploading))

	require.Equal(t, AddDescription{Photos: []string{"ref1", "ref2"}}, s)
	require.Len(t, act.Prompts, 1)
	require.Equal(t, TextDescribe, act.Prompts[0].Text)
	require.True(t, act.Prompts[0].RemoveKeyboard)
}

func TestDoneUploadingWithoutPhotos(t *testing.T) {
	m := New(Options{})
	next, _ := m.Transition(SellSomething{Photos: []string{}}, Text(ButtonDoneUploading))
	require.Equal(t, AddDescription{Photos: []string{}}, next)
}

func TestSellSomethingFallback(t *testing.T) {
	m := New(Options{})
	next, act := m.Transition(SellSomething{Photos: []string{"a"}}, Text("what now"))
	require.Equal(t, Menu{}, next)
	require.Equal(t, []string{TextUnknownOption, TextMainMenu}, texts(act))

	next, act = m.Transition(SellSomething{Photos: []string{"a"}}, Unsupported())
	require.Equal(t, Menu{}, next)
	require.Equal(t, []string{TextUnexpected, TextMainMenu}, texts(act))
}

func TestDescriptionMovesToConfirm(t *testing.T) {
	m := New(Options{})
	next, act := m.Transition(AddDescription{Photos: []string{"ref1"}}, Text("Free couch"))
	require.Equal(t, Confirm{Photos: []string{"ref1"}, Description: "Free couch"}, next)
	require.Equal(t, []string{TextConfirm}, texts(act))
	require.Equal(t, []string{"Confirm", "Edit description", "Start again", "Cancel"}, act.Prompts[0].Keyboard)

	next, act = m.Transition(AddDescription{Photos: []string{"ref1"}}, Photo("late"))
	require.Equal(t, Menu{}, next)
	require.Equal(t, []string{TextUnexpected, TextMainMenu}, texts(act))
}

func TestConfirmRows(t *testing.T) {
	m := New(Options{})
	cur := Confirm{Photos: []string{"ref1", "ref2"}, Description: "Free couch"}

	next, act := m.Transition(cur, Text(ButtonStartAgain))
	require.Equal(t, SellSomething{Photos: []string{}}, next)
	require.Equal(t, []string{TextUploadPhotos}, texts(act))

	next, act = m.Transition(cur, Text(ButtonEditDescription))
	require.Equal(t, AddDescription{Photos: []string{"ref1", "ref2"}}, next)
	require.Equal(t, []string{TextDescribe}, texts(act))

	next, act = m.Transition(cur, Text(ButtonConfirm))
	require.Equal(t, Menu{}, next)
	require.Equal(t, &Submission{Description: "Free couch", Photos: []string{"ref1", "ref2"}}, act.Submit)
	require.Equal(t, []string{TextPublished, TextMainMenu}, texts(act))

	next, act = m.Transition(cur, Text("maybe"))
	require.Equal(t, Menu{}, next)
	require.Nil(t, act.Submit)
	require.Equal(t, []string{TextUnknownOption, TextMainMenu}, texts(act))
}

func TestAnonPollFallsBack(t *testing.T) {
	m := New(Options{})
	next, act := m.Transition(AnonPoll{Question: "q"}, Text("yes"))
	require.Equal(t, Menu{}, next)
	require.Equal(t, []string{TextUnknownOption, TextMainMenu}, texts(act))
}

func TestSubmitFailedKeepsConfirmKeyboard(t *testing.T) {
	act := New(Options{}).SubmitFailed()
	require.Nil(t, act.Submit)
	require.Equal(t, []string{TextPublishFailed}, texts(act))
	require.Equal(t, confirmKeyboard, act.Prompts[0].Keyboard)
}

func TestCodecRoundTripsEveryVariant(t *testing.T) {
	c := Codec{}
	for _, s := range allStates() {
		raw, err := c.Encode(s)
		require.NoError(t, err)
		got, err := c.Decode(raw)
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

func TestCodecFormat(t *testing.T) {
	raw, err := Codec{}.Encode(Confirm{Photos: []string{"a"}, Description: "Free couch"})
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"confirm","photos":["a"],"description":"Free couch"}`, string(raw))

	got, err := Codec{}.Decode([]byte(`{"kind":"sell_something"}`))
	require.NoError(t, err)
	require.Equal(t, SellSomething{Photos: []string{}}, got)

	_, err = Codec{}.Decode([]byte(`{"kind":"lobby"}`))
	require.Error(t, err)
}
