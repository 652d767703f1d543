package dialogue

import "strings"

// Button labels. Inbound text is matched against them exactly.
const (
	ButtonMainMenu        = "Main menu"
	ButtonBuyAndSell      = "Buy-and-Sell"
	ButtonAnonPoll        = "Anonymous poll"
	ButtonInvite          = "Invite someone"
	ButtonHelp            = "Help"
	ButtonListNew         = "List something new"
	ButtonListMine        = "List my items"
	ButtonSearch          = "Search listings"
	ButtonDoneUploading   = "Done uploading"
	ButtonCancel          = "Cancel"
	ButtonConfirm         = "Confirm"
	ButtonEditDescription = "Edit description"
	ButtonStartAgain      = "Start again"
	ButtonRemove          = "Remove"
)

// Prompt texts.
const (
	TextMainMenu      = "Main menu"
	TextBuyAndSell    = "Would you like to:"
	TextUploadPhotos  = "Upload some photos. You can add more than one photo for a single listing. Click 'Done' once finished"
	TextDescribe      = "Give a description. Remeber to include the price."
	TextConfirm       = "Would you like to publish this?"
	TextPublished     = "Published! Check the Buy-and-sell channel"
	TextCancelled     = "Cancelled"
	TextUnknownOption = "Unknown option"
	TextUnexpected    = "Did not expect this..."
	TextPublishFailed = "Could not publish right now. Please try again."
)

// RemoveAction is the inline callback id of the Remove button.
const RemoveAction = "remove"

// StubItems are shown by "List my items" until the backend can list a
// user's own listings.
var StubItems = []string{"Tutoring", "Cat sitting"}

var (
	menuKeyboard       = []string{ButtonBuyAndSell, ButtonAnonPoll, ButtonInvite, ButtonHelp, ButtonMainMenu}
	buyAndSellKeyboard = []string{ButtonListNew, ButtonListMine, ButtonSearch, ButtonMainMenu}
	uploadKeyboard     = []string{ButtonDoneUploading, ButtonCancel}
	confirmKeyboard    = []string{ButtonConfirm, ButtonEditDescription, ButtonStartAgain, ButtonCancel}
)

// Options carries the links shown to users.
type Options struct {
	HelpURL     string
	ListingsURL string
}

// Machine evaluates the transition table. It is immutable and safe for
// concurrent use.
type Machine struct {
	helpText     string
	listingsText string
}

// New builds a Machine. Empty links fall back to the public site.
func New(opts Options) *Machine {
	help := strings.TrimSpace(opts.HelpURL)
	if help == "" {
		help = "welgevonden.dev"
	}
	listings := strings.TrimSpace(opts.ListingsURL)
	if listings == "" {
		listings = "http://welgevonden.dev/listings"
	}
	return &Machine{
		helpText:     "Please read more at " + help,
		listingsText: "You can see and search all active listings at " + listings,
	}
}

// Transition returns the next state and the action for ev. It never fails:
// input that matches no row falls back to the main menu. A nil current state
// is Start.
func (m *Machine) Transition(cur State, ev Event) (State, Action) {
	if cur == nil {
		cur = Start{}
	}
	if ev.Kind == EventText && ev.Text == ButtonMainMenu {
		return Menu{}, actions(menuPrompt())
	}

	switch s := cur.(type) {
	case Start:
		return Menu{}, actions(menuPrompt())

	case Menu:
		switch textOf(ev) {
		case ButtonBuyAndSell:
			return BuyAndSell{}, actions(Prompt{Text: TextBuyAndSell, Keyboard: buyAndSellKeyboard})
		case ButtonHelp:
			return Menu{}, actions(Prompt{Text: m.helpText})
		}

	case BuyAndSell:
		switch textOf(ev) {
		case ButtonListNew:
			return SellSomething{Photos: []string{}}, actions(uploadPrompt())
		case ButtonListMine:
			prompts := make([]Prompt, 0, len(StubItems))
			for _, item := range StubItems {
				prompts = append(prompts, Prompt{
					Text:   item,
					Inline: []InlineButton{{Text: ButtonRemove, Action: RemoveAction, Data: item}},
				})
			}
			return BuyAndSell{}, Action{Prompts: prompts}
		case ButtonSearch:
			return Menu{}, actions(Prompt{Text: m.listingsText}, menuPrompt())
		}

	case SellSomething:
		if ev.Kind == EventPhoto {
			return SellSomething{Photos: appendPhoto(s.Photos, ev.PhotoID)}, Action{}
		}
		switch textOf(ev) {
		case ButtonDoneUploading:
			return AddDescription{Photos: s.Photos}, actions(describePrompt())
		case ButtonCancel:
			return cancelled()
		}

	case AddDescription:
		if ev.Kind == EventText {
			if ev.Text == ButtonCancel {
				return cancelled()
			}
			return Confirm{Photos: s.Photos, Description: ev.Text}, actions(confirmPrompt())
		}

	case Confirm:
		switch textOf(ev) {
		case ButtonStartAgain:
			return SellSomething{Photos: []string{}}, actions(uploadPrompt())
		case ButtonEditDescription:
			return AddDescription{Photos: s.Photos}, actions(describePrompt())
		case ButtonCancel:
			return cancelled()
		case ButtonConfirm:
			return Menu{}, Action{
				Submit:  &Submission{Description: s.Description, Photos: s.Photos},
				Prompts: []Prompt{{Text: TextPublished}, menuPrompt()},
			}
		}
	}

	return fallback(ev)
}

// SubmitFailed is the action for a Confirm whose submission failed. The
// caller keeps the Confirm state so the user can retry.
func (m *Machine) SubmitFailed() Action {
	return actions(confirmPromptText(TextPublishFailed))
}

func fallback(ev Event) (State, Action) {
	notice := TextUnknownOption
	if ev.Kind != EventText {
		notice = TextUnexpected
	}
	return Menu{}, actions(Prompt{Text: notice}, menuPrompt())
}

func cancelled() (State, Action) {
	return Menu{}, actions(Prompt{Text: TextCancelled}, menuPrompt())
}

// textOf returns the text of a text event and "" otherwise. No button label
// is empty so non-text events never match a text row.
func textOf(ev Event) string {
	if ev.Kind != EventText {
		return ""
	}
	return ev.Text
}

// appendPhoto never shares the backing array with the previous state.
func appendPhoto(photos []string, ref string) []string {
	out := make([]string, len(photos), len(photos)+1)
	copy(out, photos)
	return append(out, ref)
}

func actions(prompts ...Prompt) Action {
	return Action{Prompts: prompts}
}

func menuPrompt() Prompt {
	return Prompt{Text: TextMainMenu, Keyboard: menuKeyboard}
}

func uploadPrompt() Prompt {
	return Prompt{Text: TextUploadPhotos, Keyboard: uploadKeyboard}
}

func describePrompt() Prompt {
	return Prompt{Text: TextDescribe, RemoveKeyboard: true}
}

func confirmPrompt() Prompt {
	return confirmPromptText(TextConfirm)
}

func confirmPromptText(text string) Prompt {
	return Prompt{Text: text, Keyboard: confirmKeyboard}
}
