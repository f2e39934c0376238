package server

import (
	"context"
	"testing"
	"time"

	"github.com/npezzotti/go-codecollab/internal/access"
	"github.com/npezzotti/go-codecollab/internal/database"
	"github.com/npezzotti/go-codecollab/internal/persistence"
	"github.com/npezzotti/go-codecollab/internal/stats"
	"github.com/npezzotti/go-codecollab/internal/testutil"
	"github.com/npezzotti/go-codecollab/internal/types"
	"github.com/stretchr/testify/require"
)

const receiveTimeout = 2 * time.Second

func newTestHub(t *testing.T) (*Hub, *database.MemoryRepository) {
	t.Helper()

	repo := database.NewMemoryRepository()
	logger := testutil.TestLogger(t)
	su := stats.NewPermissiveMock()
	gw := persistence.NewStoreGateway(repo, logger, su, time.Second)

	h, err := NewHub(logger, gw, access.NewChecker(repo, true), su)
	require.NoError(t, err)
	t.Cleanup(func() { h.Shutdown(context.Background()) })

	return h, repo
}

// newTestClient registers a connection with no socket; tests read what the
// hub queues for it straight from its send channel.
func newTestClient(t *testing.T, h *Hub, p types.Principal) *Client {
	t.Helper()

	c := NewClient(p, nil, h, h.log)
	_, err := h.Register(c)
	require.NoError(t, err)
	return c
}

func receive(t *testing.T, c *Client) *ServerMessage {
	t.Helper()

	select {
	case msg := <-c.send:
		return msg
	case <-time.After(receiveTimeout):
		t.Fatalf("timed out waiting for a message on %s", c.id)
		return nil
	}
}

func expectType(t *testing.T, c *Client, typ string) *ServerMessage {
	t.Helper()

	msg := receive(t, c)
	require.Equal(t, typ, msg.Type, "unexpected message: %+v", msg)
	return msg
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()

	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message on %s: %+v", c.id, msg)
	case <-time.After(100 * time.Millisecond):
	}
}

// joinAndDrain joins c to docId and consumes its init, history and presence.
func joinAndDrain(t *testing.T, c *Client, docId, name string) *ServerMessage {
	t.Helper()

	c.route([]byte(`{"type":"join","docId":"` + docId + `","name":"` + name + `"}`))
	snapshot := expectType(t, c, TypeInit)
	expectType(t, c, TypeHistory)
	expectType(t, c, TypePresence)
	return snapshot
}
