package handlers

import (
	"context"
	"errors"
	"sync"

	"github.com/welgevonden/marketbot/app/dialogue"
	"github.com/welgevonden/marketbot/app/listing"
)

var errTransport = errors.New("telegram: bad gateway")

type sent struct {
	ChatID int64
	Prompt dialogue.Prompt
}

type poll struct {
	ChatID   int64
	Question string
	Options  []string
}

type edit struct {
	Ref  MessageRef
	Text string
}

// fakeTransport records calls. failSendAt makes the n-th Send (1-based) fail.
type fakeTransport struct {
	mu         sync.Mutex
	sent       []sent
	edits      []edit
	answered   []string
	polls      []poll
	calls      []string
	sends      int
	failSendAt int
	failAnswer bool
	failEdit   bool
	failPoll   bool
}

func (f *fakeTransport) Send(_ context.Context, chatID int64, p dialogue.Prompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	f.calls = append(f.calls, "send")
	if f.failSendAt > 0 && f.sends == f.failSendAt {
		return errTransport
	}
	f.sent = append(f.sent, sent{ChatID: chatID, Prompt: p})
	return nil
}

func (f *fakeTransport) Edit(_ context.Context, ref MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "edit")
	if f.failEdit {
		return errTransport
	}
	f.edits = append(f.edits, edit{Ref: ref, Text: text})
	return nil
}

func (f *fakeTransport) Answer(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "answer")
	if f.failAnswer {
		return errTransport
	}
	f.answered = append(f.answered, id)
	return nil
}

func (f *fakeTransport) Poll(_ context.Context, chatID int64, question string, options []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "poll")
	if f.failPoll {
		return errTransport
	}
	f.polls = append(f.polls, poll{ChatID: chatID, Question: question, Options: options})
	return nil
}

func (f *fakeTransport) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.Prompt.Text)
	}
	return out
}

type fakeSubmitter struct {
	mu    sync.Mutex
	got   []listing.Listing
	err   error
	calls int
}

func (f *fakeSubmitter) Submit(_ context.Context, l listing.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, l)
	return nil
}

// failingStore wraps a store and fails Get or Set on demand.
type failingStore struct {
	failGet bool
	failSet bool
}

var errStore = errors.New("redis: connection refused")

func (s failingStore) Get(context.Context, int64) (dialogue.State, bool, error) {
	if s.failGet {
		return nil, false, errStore
	}
	return nil, false, nil
}

func (s failingStore) Set(context.Context, int64, dialogue.State) error {
	if s.failSet {
		return errStore
	}
	return nil
}

func (failingStore) Close() error { return nil }
