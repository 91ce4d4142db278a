package chat

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/molino-storefront/internal/domain/failure"
	"github.com/xenking/molino-storefront/pkg/keylock"
)

// Repository persists chat state per session.
type Repository interface {
	// Load returns the state for session, or nil when none is stored.
	// Undecodable data yields an error matching ErrCorruptState.
	Load(ctx context.Context, session string) (*State, error)
	Save(ctx context.Context, session string, s State) error
}

// Sessions keeps one chat per visitor session. A conversation is created at
// most once per session and reused until Reset.
type Sessions struct {
	bridge *Bridge
	repo   Repository
	locks  keylock.Striped
}

// NewSessions creates a Sessions service.
func NewSessions(bridge *Bridge, repo Repository) *Sessions {
	return &Sessions{bridge: bridge, repo: repo}
}

// State returns the chat for session.
func (s *Sessions) State(ctx context.Context, session string) (State, error) {
	unlock := s.locks.Lock(session)
	defer unlock()
	return s.load(ctx, session)
}

// Open marks the chat open and ensures it has a conversation. When creation
// fails the open state is still saved and the error returned.
func (s *Sessions) Open(ctx context.Context, session string) (State, error) {
	unlock := s.locks.Lock(session)
	defer unlock()

	st, err := s.load(ctx, session)
	if err != nil {
		return State{}, err
	}
	st.Open, st.Minimized = true, false

	openErr := s.ensureConversation(ctx, &st)
	if err := s.save(ctx, session, st); err != nil {
		return State{}, err
	}
	return st, openErr
}

// Send appends text and the assistant's reply. When the assistant fails the
// reply is replaced by Apology and the cause is returned alongside the saved
// state.
func (s *Sessions) Send(ctx context.Context, session, text string) (State, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return State{}, failure.Invalid("message", "Missing required parameters")
	}

	unlock := s.locks.Lock(session)
	defer unlock()

	st, err := s.load(ctx, session)
	if err != nil {
		return State{}, err
	}
	st.Messages = append(st.Messages, Message{Role: RoleUser, Content: text})

	sendErr := s.ensureConversation(ctx, &st)
	if sendErr == nil {
		var reply string
		reply, sendErr = s.bridge.Send(ctx, st.ConversationID, text)
		if sendErr == nil {
			st.Messages = append(st.Messages, Message{Role: RoleAssistant, Content: reply})
		}
	}
	if sendErr != nil {
		zctx.From(ctx).Warn("Assistant reply failed", zap.String("session", session), zap.Error(sendErr))
		st.Messages = append(st.Messages, Message{Role: RoleAssistant, Content: Apology})
	}

	if err := s.save(ctx, session, st); err != nil {
		return State{}, err
	}
	return st, sendErr
}

// SetView stores the open and minimized flags.
func (s *Sessions) SetView(ctx context.Context, session string, open, minimized bool) (State, error) {
	unlock := s.locks.Lock(session)
	defer unlock()

	st, err := s.load(ctx, session)
	if err != nil {
		return State{}, err
	}
	st.Open, st.Minimized = open, minimized
	if err := s.save(ctx, session, st); err != nil {
		return State{}, err
	}
	return st, nil
}

// Reset returns the chat to its initial state, dropping the conversation.
func (s *Sessions) Reset(ctx context.Context, session string) (State, error) {
	unlock := s.locks.Lock(session)
	defer unlock()

	st := InitialState()
	if err := s.save(ctx, session, st); err != nil {
		return State{}, err
	}
	return st, nil
}

func (s *Sessions) ensureConversation(ctx context.Context, st *State) error {
	if st.ConversationID != "" {
		return nil
	}
	id, err := s.bridge.OpenConversation(ctx)
	if err != nil {
		return err
	}
	st.ConversationID = id
	return nil
}

func (s *Sessions) load(ctx context.Context, session string) (State, error) {
	st, err := s.repo.Load(ctx, session)
	switch {
	case errors.Is(err, ErrCorruptState):
		zctx.From(ctx).Warn("Discarding corrupt chat state",
			zap.String("session", session),
			zap.Error(err),
		)
		return InitialState(), nil
	case err != nil:
		return State{}, errors.Wrap(err, "load chat")
	case st == nil:
		return InitialState(), nil
	}
	return *st, nil
}

func (s *Sessions) save(ctx context.Context, session string, st State) error {
	if err := s.repo.Save(ctx, session, st); err != nil {
		return errors.Wrap(err, "save chat")
	}
	return nil
}
