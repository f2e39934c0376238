package server

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/npezzotti/go-codecollab/internal/stats"
	"github.com/npezzotti/go-codecollab/internal/types"
	"github.com/teris-io/shortid"
)

var colorPalette = []string{
	"#e6194b",
	"#3cb44b",
	"#ffe119",
	"#4363d8",
	"#f58231",
	"#911eb4",
	"#46f0f0",
	"#f032e6",
	"#bcf60c",
}

func randomColor() string {
	return colorPalette[rand.Intn(len(colorPalette))]
}

func newGuestId() string {
	id, err := shortid.Generate()
	if err != nil {
		return uuid.NewString()[:8]
	}
	return id
}

func guestName(userId string) string {
	prefix := userId
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return "Guest-" + prefix
}

// Register adds a connection to the registry and assigns its connection id.
func (h *Hub) Register(c *Client) (string, error) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	if h.isClosed() {
		return "", ErrHubClosed
	}

	c.id = uuid.NewString()
	h.clients[c] = struct{}{}
	h.stats.Incr(stats.NumActiveClients)
	h.log.Printf("registered connection %s", c.id)
	return c.id, nil
}

// remove evicts a connection from its room and the registry. Calling it
// more than once is harmless.
func (h *Hub) remove(c *Client) {
	c.closed.Store(true)

	if r := c.currentRoom(); r != nil {
		r.enqueueLeave(c)
		c.unbindIf(r)
	}

	h.clientsLock.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.clientsLock.Unlock()

	if ok {
		h.stats.Decr(stats.NumActiveClients)
		h.log.Printf("removed connection %s", c.id)
	}
}

// identify assigns the connection's identity on first call and returns the
// stored identity on every later call. An authenticated principal's user id
// always wins over a claimed one.
func (c *Client) identify(claimedUserId, claimedName, claimedColor string) types.Identity {
	c.identLock.Lock()
	defer c.identLock.Unlock()

	if c.identified {
		return c.identity
	}

	userId := claimedUserId
	if c.principal.Authenticated() {
		userId = c.principal.UserId
	}
	if userId == "" {
		userId = newGuestId()
	}

	name := claimedName
	if name == "" {
		name = c.principal.Name
	}
	if name == "" {
		name = guestName(userId)
	}

	color := claimedColor
	if color == "" {
		color = randomColor()
	}

	c.identity = types.Identity{UserId: userId, Name: name, Color: color}
	c.identified = true
	return c.identity
}

func (c *Client) Identity() (types.Identity, bool) {
	c.identLock.Lock()
	defer c.identLock.Unlock()
	return c.identity, c.identified
}
