// Package dialogue is the item-listing conversation as a pure state machine.
// It owns no I/O: callers load a State, call Machine.Transition with the
// inbound Event and carry out the returned Action.
package dialogue

// Kind names a State variant. It is the persisted discriminator and the
// label used in logs and metrics.
type Kind string

const (
	KindStart          Kind = "start"
	KindMenu           Kind = "menu"
	KindBuyAndSell     Kind = "buy_and_sell"
	KindSellSomething  Kind = "sell_something"
	KindAddDescription Kind = "add_description"
	KindConfirm        Kind = "confirm"
	KindAnonPoll       Kind = "anon_poll"
)

// State is the current step of one conversation. The set of variants is
// closed; switch on the concrete type.
type State interface {
	Kind() Kind
	sealed()
}

// Start is the state of a conversation that has not been seen yet.
type Start struct{}

// Menu shows the main menu.
type Menu struct{}

// BuyAndSell shows the buy/sell submenu.
type BuyAndSell struct{}

// SellSomething collects photos in arrival order.
type SellSomething struct {
	Photos []string
}

// AddDescription waits for the listing text. Photos are frozen.
type AddDescription struct {
	Photos []string
}

// Confirm waits for the user to publish, edit, restart or cancel.
type Confirm struct {
	Photos      []string
	Description string
}

// AnonPoll is reserved for the anonymous poll feature and has no
// transitions of its own.
type AnonPoll struct {
	Question   string
	Selections []string
}

func (Start) Kind() Kind          { return KindStart }
func (Menu) Kind() Kind           { return KindMenu }
func (BuyAndSell) Kind() Kind     { return KindBuyAndSell }
func (SellSomething) Kind() Kind  { return KindSellSomething }
func (AddDescription) Kind() Kind { return KindAddDescription }
func (Confirm) Kind() Kind        { return KindConfirm }
func (AnonPoll) Kind() Kind       { return KindAnonPoll }

func (Start) sealed()          {}
func (Menu) sealed()           {}
func (BuyAndSell) sealed()     {}
func (SellSomething) sealed()  {}
func (AddDescription) sealed() {}
func (Confirm) sealed()        {}
func (AnonPoll) sealed()       {}

// PhotosOf returns the photos carried by s, or nil.
func PhotosOf(s State) []string {
	switch v := s.(type) {
	case SellSomething:
		return v.Photos
	case AddDescription:
		return v.Photos
	case Confirm:
		return v.Photos
	default:
		return nil
	}
}

// KindOf is s.Kind() with nil treated as Start.
func KindOf(s State) Kind {
	if s == nil {
		return KindStart
	}
	return s.Kind()
}

// EventKind classifies inbound messages.
type EventKind string

const (
	EventText        EventKind = "text"
	EventPhoto       EventKind = "photo"
	EventUnsupported EventKind = "unsupported"
)

// Event is one inbound message of a conversation.
type Event struct {
	Kind EventKind
	// Text is set for EventText.
	Text string
	// PhotoID is the transport's reference for EventPhoto.
	PhotoID string
}

// Text builds a text event.
func Text(s string) Event { return Event{Kind: EventText, Text: s} }

// Photo builds a photo event.
func Photo(ref string) Event { return Event{Kind: EventPhoto, PhotoID: ref} }

// Unsupported builds an event for any other payload (stickers, voice, ...).
func Unsupported() Event { return Event{Kind: EventUnsupported} }

// InlineButton is a button attached to a single message. Action selects the
// callback handler; Data is passed to it.
type InlineButton struct {
	Text   string
	Action string
	Data   string
}

// Prompt is one outbound message. Keyboard replaces the reply keyboard with a
// single row; RemoveKeyboard hides it. Both empty leaves the keyboard as is.
type Prompt struct {
	Text           string
	Keyboard       []string
	RemoveKeyboard bool
	Inline         []InlineButton
}

// Submission asks the caller to publish a listing before sending the prompts.
// Photos are carried for logging only; the backend payload has no photo field.
type Submission struct {
	Description string
	Photos      []string
}

// Action is what the caller performs after a transition, in order: submit
// (when set), then send every prompt.
type Action struct {
	Submit  *Submission
	Prompts []Prompt
}
