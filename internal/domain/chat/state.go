package chat

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Welcome opens every new chat.
const Welcome = "Welcome to El Molino Tortilleria & Restaurant! I'm here to answer questions about our menu, hours, location, or ordering options. How can I help you today?"

// Apology replaces the reply when the assistant cannot be reached.
const Apology = "Sorry, I encountered an error. Please try again."

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// State is a visitor's persisted chat.
type State struct {
	Messages       []Message
	ConversationID string
	Open           bool
	Minimized      bool
}

// InitialState is a closed chat holding only the welcome message.
func InitialState() State {
	return State{Messages: []Message{{Role: RoleAssistant, Content: Welcome}}}
}

// ErrCorruptState is returned by repositories when stored chat state cannot
// be decoded.
var ErrCorruptState = errors.New("corrupt chat state")

// Marshal encodes s for persistence.
func Marshal(s State) []byte {
	e := jx.Encoder{}
	s.Encode(&e)
	return e.Bytes()
}

// Unmarshal decodes persisted state. Failures match ErrCorruptState.
func Unmarshal(data []byte) (State, error) {
	var s State
	if err := s.Decode(jx.DecodeBytes(data)); err != nil {
		return State{}, errors.Wrap(ErrCorruptState, err.Error())
	}
	return s, nil
}

// Encode writes s as the wire and storage form.
func (s State) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("messages")
	e.ArrStart()
	for _, m := range s.Messages {
		e.ObjStart()
		e.FieldStart("role")
		e.Str(string(m.Role))
		e.FieldStart("content")
		e.Str(m.Content)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("conversationId")
	if s.ConversationID == "" {
		e.Null()
	} else {
		e.Str(s.ConversationID)
	}
	e.FieldStart("isOpen")
	e.Bool(s.Open)
	e.FieldStart("isMinimized")
	e.Bool(s.Minimized)
	e.ObjEnd()
}

// Decode reads s, rejecting unknown roles.
func (s *State) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "messages":
			s.Messages = s.Messages[:0]
			err = d.Arr(func(d *jx.Decoder) error {
				m, err := decodeMessage(d)
				if err != nil {
					return err
				}
				s.Messages = append(s.Messages, m)
				return nil
			})
		case "conversationId":
			if d.Next() == jx.Null {
				err = d.Null()
				s.ConversationID = ""
				break
			}
			s.ConversationID, err = d.Str()
		case "isOpen":
			s.Open, err = d.Bool()
		case "isMinimized":
			s.Minimized, err = d.Bool()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode field %q", key)
		}
		return nil
	})
}

func decodeMessage(d *jx.Decoder) (Message, error) {
	var m Message
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "role":
			r, err := d.Str()
			if err != nil {
				return err
			}
			m.Role = Role(r)
		case "content":
			c, err := d.Str()
			if err != nil {
				return err
			}
			m.Content = c
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return Message{}, err
	}
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return Message{}, errors.Errorf("unknown role %q", m.Role)
	}
	return m, nil
}
