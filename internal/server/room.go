package server

import (
	"context"
	"log"
	"sync"

	"github.com/npezzotti/go-codecollab/internal/types"
)

type member struct {
	mayMutate bool
}

// Room serializes every change to one document's membership on a single
// goroutine. members is written only by that goroutine, under membersLock.
type Room struct {
	id          string
	hub         *Hub
	log         *log.Logger
	inbox       chan *ClientMessage
	members     map[*Client]*member
	membersLock sync.RWMutex
	exit        chan struct{}
	done        chan struct{}
}

func newRoom(id string, h *Hub) *Room {
	return &Room{
		id:      id,
		hub:     h,
		log:     h.log,
		inbox:   make(chan *ClientMessage, h.inboxSize),
		members: make(map[*Client]*member),
		exit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (r *Room) start() {
	defer r.hub.roomsWg.Done()
	defer close(r.done)

	r.log.Printf("starting room %q", r.id)
	for {
		select {
		case msg := <-r.inbox:
			r.handle(msg)
			if len(r.members) == 0 && r.hub.unloadRoom(r) {
				return
			}
		case <-r.exit:
			r.handleRoomExit()
			return
		}
	}
}

func (r *Room) enqueue(msg *ClientMessage) bool {
	select {
	case r.inbox <- msg:
		return true
	default:
		return false
	}
}

// enqueueLeave must not be dropped, so it waits for inbox space unless the
// room has already finished.
func (r *Room) enqueueLeave(c *Client) {
	msg := &ClientMessage{Type: typeLeave, DocId: r.id, Leave: &Leave{}, client: c}
	select {
	case r.inbox <- msg:
	case <-r.done:
	}
}

func (r *Room) handle(msg *ClientMessage) {
	switch {
	case msg.Join != nil:
		r.handleJoin(msg)
	case msg.Leave != nil:
		r.handleLeave(msg.client)
	case msg.CodeChange != nil:
		r.handleCodeChange(msg)
	case msg.TitleChange != nil:
		r.handleTitleChange(msg)
	case msg.Chat != nil:
		r.handleChat(msg)
	case msg.Cursor != nil:
		r.handleCursor(msg)
	}
}

func (r *Room) addMember(c *Client, m *member) {
	r.membersLock.Lock()
	defer r.membersLock.Unlock()
	r.members[c] = m
}

func (r *Room) removeMember(c *Client) bool {
	r.membersLock.Lock()
	defer r.membersLock.Unlock()

	if _, ok := r.members[c]; !ok {
		return false
	}
	delete(r.members, c)
	return true
}

func (r *Room) handleJoin(msg *ClientMessage) {
	c := msg.client
	if c.isClosed() {
		r.log.Printf("connection %s closed before joining %q", c.id, r.id)
		return
	}

	identity, _ := c.Identity()
	ctx := context.Background()

	mayMutate, err := r.hub.authz.MayMutate(ctx, c.principal, r.id)
	if err != nil {
		r.log.Printf("permission lookup for %q in %q: %v", identity.UserId, r.id, err)
	}

	_, rejoin := r.members[c]
	r.addMember(c, &member{mayMutate: mayMutate})
	r.log.Printf("%s (%s) joined room %q", identity.Name, c.id, r.id)

	doc, err := r.hub.gw.GetOrCreateDocument(ctx, r.id)
	if err != nil {
		c.queueMessage(ErrInternalError(r.id, "failed to load document"))
	} else {
		c.queueMessage(NewInitMessage(doc, !mayMutate))
	}

	history, err := r.hub.gw.ListChat(ctx, r.id)
	if err != nil {
		c.queueMessage(ErrInternalError(r.id, "failed to load chat history"))
	} else {
		c.queueMessage(NewHistoryMessage(r.id, history))
	}

	c.queueMessage(NewPresenceMessage(r.id, r.roster()))

	if !rejoin {
		r.broadcast(NewUserJoinedMessage(r.id, identity), c)
	}
}

func (r *Room) handleLeave(c *Client) {
	if !r.removeMember(c) {
		return
	}
	c.unbindIf(r)

	identity, _ := c.Identity()
	r.log.Printf("%s (%s) left room %q", identity.Name, c.id, r.id)
	r.broadcast(NewUserLeftMessage(r.id, identity), nil)
}

// mutator returns the sending member if it may change the document,
// answering read-only members with an error notice.
func (r *Room) mutator(msg *ClientMessage) (*Client, bool) {
	c := msg.client
	m, ok := r.members[c]
	if !ok {
		r.log.Printf("dropping %q from non-member %s", msg.Type, c.id)
		return nil, false
	}

	if !m.mayMutate {
		c.queueMessage(ErrForbidden(r.id))
		return nil, false
	}

	return c, true
}

func (r *Room) handleCodeChange(msg *ClientMessage) {
	c, ok := r.mutator(msg)
	if !ok {
		return
	}

	code := msg.CodeChange.Code
	if err := r.hub.gw.OverwriteContent(context.Background(), r.id, code); err != nil {
		c.queueMessage(ErrInternalError(r.id, "failed to save document"))
	}

	r.broadcast(NewCodeChangeMessage(r.id, code), c)
}

func (r *Room) handleTitleChange(msg *ClientMessage) {
	c, ok := r.mutator(msg)
	if !ok {
		return
	}

	title := msg.TitleChange.Title
	if err := r.hub.gw.UpdateTitle(context.Background(), r.id, title); err != nil {
		c.queueMessage(ErrInternalError(r.id, "failed to save title"))
	}

	r.broadcast(NewTitleChangeMessage(r.id, title), c)
}

func (r *Room) handleChat(msg *ClientMessage) {
	c := msg.client
	if _, ok := r.members[c]; !ok {
		r.log.Printf("dropping chat from non-member %s", c.id)
		return
	}

	identity, _ := c.Identity()
	record, err := r.hub.gw.AppendChat(context.Background(), r.id, identity.Name, msg.Chat.Text)
	if err != nil {
		c.queueMessage(ErrInternalError(r.id, "failed to save chat message"))
		record = types.ChatRecord{
			DocId:     r.id,
			User:      identity.Name,
			Text:      msg.Chat.Text,
			CreatedAt: Now(),
		}
	}

	r.broadcast(NewChatMessage(r.id, record), nil)
}

func (r *Room) handleRoomExit() {
	r.log.Printf("room %q is exiting", r.id)
	r.broadcast(NewRoomClosedMessage(r.id), nil)

	r.membersLock.Lock()
	defer r.membersLock.Unlock()
	for c := range r.members {
		c.unbindIf(r)
		delete(r.members, c)
	}
}
