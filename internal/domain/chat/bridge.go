// Package chat bridges storefront visitors to the hosted support assistant
// and keeps each visitor's conversation across requests.
package chat

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/molino-storefront/internal/domain/failure"
)

// ErrUnavailable is matched by every assistant failure.
var ErrUnavailable = errors.New("chat unavailable")

// UnavailableError wraps the cause of an assistant failure.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return ErrUnavailable.Error() + ": " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Assistant is the hosted conversational API.
type Assistant interface {
	// CreateConversation starts a conversation and returns its id.
	CreateConversation(ctx context.Context) (string, error)
	// SendMessage posts text and returns the streamed reply body.
	SendMessage(ctx context.Context, conversationID, text string) (io.ReadCloser, error)
}

// Bridge opens conversations and turns streamed replies into text.
type Bridge struct {
	assistant Assistant
}

// NewBridge creates a Bridge over assistant.
func NewBridge(assistant Assistant) *Bridge {
	return &Bridge{assistant: assistant}
}

// OpenConversation creates a new conversation.
func (b *Bridge) OpenConversation(ctx context.Context) (string, error) {
	id, err := b.assistant.CreateConversation(ctx)
	if err != nil {
		return "", &UnavailableError{Err: errors.Wrap(err, "create conversation")}
	}
	if id == "" {
		return "", &UnavailableError{Err: errors.New("empty conversation id")}
	}
	return id, nil
}

// Send posts text to conversation id and returns the assistant's full reply.
func (b *Bridge) Send(ctx context.Context, id, text string) (string, error) {
	if id == "" || text == "" {
		return "", failure.Invalid("message", "Missing required parameters")
	}

	body, err := b.assistant.SendMessage(ctx, id, text)
	if err != nil {
		return "", &UnavailableError{Err: errors.Wrap(err, "send message")}
	}
	defer func() {
		if cerr := body.Close(); cerr != nil {
			zctx.From(ctx).Debug("Close reply stream", zap.Error(cerr))
		}
	}()

	reply, err := ReadReply(body)
	if err != nil {
		return "", &UnavailableError{Err: err}
	}
	return reply, nil
}
