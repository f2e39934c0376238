package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/npezzotti/go-codecollab/internal/types"
)

const (
	TypeJoin        = "join"
	TypeCodeChange  = "code-change"
	TypeTitleChange = "title-change"
	TypeChat        = "chat"
	TypeCursor      = "cursor"

	TypeInit       = "init"
	TypeHistory    = "history"
	TypePresence   = "presence"
	TypeUserJoined = "user-joined"
	TypeUserLeft   = "user-left"
	TypeError      = "error"
	TypeRoomClosed = "room-closed"

	// typeLeave is only produced by the hub itself.
	typeLeave = "leave"
)

var ErrInvalidMessage = errors.New("invalid message")

// ClientMessage is a validated inbound envelope. Exactly one payload field
// is set, matching Type.
type ClientMessage struct {
	Type        string
	DocId       string
	Join        *Join
	CodeChange  *CodeChange
	TitleChange *TitleChange
	Chat        *Chat
	Cursor      *Cursor
	Leave       *Leave
	client      *Client
}

type Join struct {
	UserId string
	Name   string
	Color  string
}

type CodeChange struct {
	Code string
}

type TitleChange struct {
	Title string
}

type Chat struct {
	User string
	Text string
}

type Cursor struct {
	Pos int64
}

type Leave struct{}

type rawClientMessage struct {
	Type    string          `json:"type"`
	DocId   string          `json:"docId"`
	UserId  string          `json:"userId"`
	Name    string          `json:"name"`
	Color   string          `json:"color"`
	Code    *string         `json:"code"`
	Title   *string         `json:"title"`
	Message *rawChat        `json:"message"`
	Pos     json.RawMessage `json:"pos"`
}

type rawChat struct {
	User string `json:"user"`
	Text string `json:"text"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, fmt.Sprintf(format, args...))
}

// ParseClientMessage decodes one inbound frame and validates the fields
// required by its type.
func ParseClientMessage(raw []byte) (*ClientMessage, error) {
	var in rawClientMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, invalid("decode: %v", err)
	}

	if in.DocId == "" {
		return nil, invalid("%q message without docId", in.Type)
	}

	msg := &ClientMessage{Type: in.Type, DocId: in.DocId}
	switch in.Type {
	case TypeJoin:
		msg.Join = &Join{UserId: in.UserId, Name: in.Name, Color: in.Color}
	case TypeCodeChange:
		if in.Code == nil {
			return nil, invalid("code-change without code")
		}
		msg.CodeChange = &CodeChange{Code: *in.Code}
	case TypeTitleChange:
		if in.Title == nil {
			return nil, invalid("title-change without title")
		}
		msg.TitleChange = &TitleChange{Title: *in.Title}
	case TypeChat:
		if in.Message == nil || in.Message.Text == "" {
			return nil, invalid("chat without text")
		}
		msg.Chat = &Chat{User: in.Message.User, Text: in.Message.Text}
	case TypeCursor:
		pos, err := parsePos(in.Pos)
		if err != nil {
			return nil, err
		}
		msg.Cursor = &Cursor{Pos: pos}
	default:
		return nil, invalid("unknown type %q", in.Type)
	}

	return msg, nil
}

// parsePos accepts only a JSON number holding a non-negative integer.
func parsePos(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, invalid("cursor without pos")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, invalid("cursor pos: %v", err)
	}

	n, ok := v.(json.Number)
	if !ok {
		return 0, invalid("cursor pos is not a number")
	}

	pos, err := n.Int64()
	if err != nil || pos < 0 {
		return 0, invalid("cursor pos %s is not a non-negative integer", n)
	}

	return pos, nil
}

type BaseMessage struct {
	Timestamp time.Time `json:"timestamp"`
}

// ServerMessage is an outbound envelope. Only the fields belonging to Type
// are populated.
type ServerMessage struct {
	Type  string `json:"type"`
	DocId string `json:"docId,omitempty"`
	BaseMessage
	Title    *string            `json:"title,omitempty"`
	Code     *string            `json:"code,omitempty"`
	ReadOnly bool               `json:"readOnly,omitempty"`
	Message  *types.ChatRecord  `json:"message,omitempty"`
	Messages []types.ChatRecord `json:"messages,omitempty"`
	Users    []types.Identity   `json:"users,omitempty"`
	User     *types.Identity    `json:"user,omitempty"`
	UserId   string             `json:"userId,omitempty"`
	Name     string             `json:"name,omitempty"`
	Color    string             `json:"color,omitempty"`
	Pos      *int64             `json:"pos,omitempty"`
	Status   int                `json:"status,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func newServerMessage(typ, docId string) *ServerMessage {
	return &ServerMessage{
		Type:        typ,
		DocId:       docId,
		BaseMessage: BaseMessage{Timestamp: Now()},
	}
}

func NewInitMessage(doc types.Document, readOnly bool) *ServerMessage {
	msg := newServerMessage(TypeInit, doc.DocId)
	msg.Title = &doc.Title
	msg.Code = &doc.Content
	msg.ReadOnly = readOnly
	return msg
}

func NewHistoryMessage(docId string, records []types.ChatRecord) *ServerMessage {
	msg := newServerMessage(TypeHistory, docId)
	msg.Messages = records
	return msg
}

func NewPresenceMessage(docId string, users []types.Identity) *ServerMessage {
	msg := newServerMessage(TypePresence, docId)
	msg.Users = users
	return msg
}

func NewUserJoinedMessage(docId string, user types.Identity) *ServerMessage {
	msg := newServerMessage(TypeUserJoined, docId)
	msg.User = &user
	return msg
}

func NewUserLeftMessage(docId string, user types.Identity) *ServerMessage {
	msg := newServerMessage(TypeUserLeft, docId)
	msg.UserId = user.UserId
	msg.Name = user.Name
	return msg
}

func NewCodeChangeMessage(docId, code string) *ServerMessage {
	msg := newServerMessage(TypeCodeChange, docId)
	msg.Code = &code
	return msg
}

func NewTitleChangeMessage(docId, title string) *ServerMessage {
	msg := newServerMessage(TypeTitleChange, docId)
	msg.Title = &title
	return msg
}

func NewChatMessage(docId string, record types.ChatRecord) *ServerMessage {
	msg := newServerMessage(TypeChat, docId)
	msg.Message = &record
	return msg
}

func NewCursorMessage(docId string, user types.Identity, pos int64) *ServerMessage {
	msg := newServerMessage(TypeCursor, docId)
	msg.UserId = user.UserId
	msg.Name = user.Name
	msg.Color = user.Color
	msg.Pos = &pos
	return msg
}

func NewRoomClosedMessage(docId string) *ServerMessage {
	return newServerMessage(TypeRoomClosed, docId)
}

func newErrorMessage(docId string, status int, text string) *ServerMessage {
	msg := newServerMessage(TypeError, docId)
	msg.Status = status
	msg.Error = text
	return msg
}

func ErrForbidden(docId string) *ServerMessage {
	return newErrorMessage(docId, http.StatusForbidden, "read-only access")
}

func ErrInternalError(docId, text string) *ServerMessage {
	return newErrorMessage(docId, http.StatusInternalServerError, text)
}

func ErrServiceUnavailable(docId string) *ServerMessage {
	return newErrorMessage(docId, http.StatusServiceUnavailable, "service unavailable")
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
