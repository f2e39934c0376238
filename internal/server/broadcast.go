package server

import "github.com/npezzotti/go-codecollab/internal/stats"

// broadcast queues msg for every open member except skip. A member whose
// queue is full is skipped and counted; delivery to the rest continues.
// It runs on the room goroutine, so the member set is the post-mutation one.
func (r *Room) broadcast(msg *ServerMessage, skip *Client) {
	for c := range r.members {
		if c == skip || c.isClosed() {
			continue
		}

		if !c.queueMessage(msg) {
			r.hub.stats.Incr(stats.NumBroadcastFailures)
		}
	}
}
