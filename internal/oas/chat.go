package oas

import (
	"github.com/go-faster/jx"
)

// Conversation is the POST /api/chat/create-conversation response.
type Conversation struct {
	ConversationID string
}

// Encode implements Encoder.
func (s Conversation) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("conversationId")
	e.Str(s.ConversationID)
	e.ObjEnd()
}

// SendMessage is the POST /api/chat/send-message body.
type SendMessage struct {
	ConversationID string
	Message        string
}

// Decode implements Decoder.
func (s *SendMessage) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "conversationId":
			s.ConversationID, err = optStr(d)
		case "message":
			s.Message, err = optStr(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
}

// Reply is the POST /api/chat/send-message response.
type Reply struct {
	Response string
}

// Encode implements Encoder.
func (s Reply) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("response")
	e.Str(s.Response)
	e.ObjEnd()
}

// ChatMessage is the POST /api/chat/session/messages body.
type ChatMessage struct {
	Message string
}

// Decode implements Decoder.
func (s *ChatMessage) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "message" {
			return d.Skip()
		}
		var err error
		s.Message, err = optStr(d)
		return fieldErr(err, key)
	})
}

// ChatView is the PATCH /api/chat/session body. Absent flags keep their
// current value.
type ChatView struct {
	Open         bool
	OpenSet      bool
	Minimized    bool
	MinimizedSet bool
}

// Decode implements Decoder.
func (s *ChatView) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "isOpen":
			s.Open, err = optBool(d)
			s.OpenSet = err == nil
		case "isMinimized":
			s.Minimized, err = optBool(d)
			s.MinimizedSet = err == nil
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
}
