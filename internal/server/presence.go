package server

import (
	"slices"
	"strings"

	"github.com/npezzotti/go-codecollab/internal/types"
)

// Members returns a snapshot of the identities of the room's members.
func (r *Room) Members() []types.Identity {
	r.membersLock.RLock()
	defer r.membersLock.RUnlock()

	members := make([]types.Identity, 0, len(r.members))
	for c := range r.members {
		if identity, ok := c.Identity(); ok {
			members = append(members, identity)
		}
	}
	return members
}

// roster lists identified members once per user id, ordered by name.
func (r *Room) roster() []types.Identity {
	seen := make(map[string]struct{})
	users := make([]types.Identity, 0, len(r.members))
	for _, identity := range r.Members() {
		if _, ok := seen[identity.UserId]; ok {
			continue
		}
		seen[identity.UserId] = struct{}{}
		users = append(users, identity)
	}

	slices.SortFunc(users, func(a, b types.Identity) int {
		if n := strings.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return strings.Compare(a.UserId, b.UserId)
	})
	return users
}

// handleCursor relays a cursor position stamped with the sender's
// server-held identity. Cursor positions are never stored.
func (r *Room) handleCursor(msg *ClientMessage) {
	c := msg.client
	if _, ok := r.members[c]; !ok {
		return
	}

	identity, _ := c.Identity()
	r.broadcast(NewCursorMessage(r.id, identity, msg.Cursor.Pos), c)
}
