package dialogue

import (
	"fmt"

	"github.com/welgevonden/marketbot/core/telegram/state"
)

// envelope is the persisted form of a State.
type envelope struct {
	Kind        Kind     `json:"kind"`
	Photos      []string `json:"photos,omitempty"`
	Description string   `json:"description,omitempty"`
	Question    string   `json:"question,omitempty"`
	Selections  []string `json:"selections,omitempty"`
}

// Codec stores a State as JSON tagged with its Kind. It satisfies
// state.Codec[State].
type Codec struct{}

// Encode implements state.Codec.
func (Codec) Encode(s State) ([]byte, error) {
	env := envelope{Kind: KindOf(s)}
	switch v := s.(type) {
	case nil, Start, Menu, BuyAndSell:
	case SellSomething:
		env.Photos = v.Photos
	case AddDescription:
		env.Photos = v.Photos
	case Confirm:
		env.Photos = v.Photos
		env.Description = v.Description
	case AnonPoll:
		env.Question = v.Question
		env.Selections = v.Selections
	default:
		return nil, fmt.Errorf("dialogue: encode unknown state %T", s)
	}
	return state.JSONCodec[envelope]{}.Encode(env)
}

// Decode implements state.Codec.
func (Codec) Decode(data []byte) (State, error) {
	env, err := state.JSONCodec[envelope]{}.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("dialogue: decode state: %w", err)
	}
	photos := env.Photos
	if photos == nil {
		photos = []string{}
	}
	switch env.Kind {
	case KindStart:
		return Start{}, nil
	case KindMenu:
		return Menu{}, nil
	case KindBuyAndSell:
		return BuyAndSell{}, nil
	case KindSellSomething:
		return SellSomething{Photos: photos}, nil
	case KindAddDescription:
		return AddDescription{Photos: photos}, nil
	case KindConfirm:
		return Confirm{Photos: photos, Description: env.Description}, nil
	case KindAnonPoll:
		return AnonPoll{Question: env.Question, Selections: env.Selections}, nil
	default:
		return nil, fmt.Errorf("dialogue: decode state: unknown kind %q", env.Kind)
	}
}
