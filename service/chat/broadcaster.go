package chat

import (
	"encoding/json"

	"PPGate/logger"
	"PPGate/metrics"
)

// Broadcaster is the delivery layer over the Registry. Every send
// first snapshots the recipient set under the registry's read lock,
// then serializes the frame once and offers it to each connection
// outside any lock, so a slow recipient never stalls connect or
// disconnect of unrelated connections.
type Broadcaster struct {
	reg   *Registry
	evict func(*Client) // invoked async when a recipient cannot take the frame
}

func NewBroadcaster(reg *Registry, evict func(*Client)) *Broadcaster {
	return &Broadcaster{reg: reg, evict: evict}
}

// SendToUser delivers f to every connection of the user. false means
// the user is offline; that is a miss, not an error.
func (b *Broadcaster) SendToUser(userID string, f Frame) bool {
	conns := b.reg.LookupUser(userID)
	if len(conns) == 0 {
		logger.Debugf("[broadcast] user offline user=%s", userID)
		return false
	}
	b.deliver(conns, f)
	return true
}

// SendToRoom delivers f to every connection currently in the room.
// Joins racing the call may miss the frame; the snapshot is the
// recipient set of record.
func (b *Broadcaster) SendToRoom(roomID string, f Frame) bool {
	conns := b.reg.LookupRoom(roomID)
	if len(conns) == 0 {
		logger.Debugf("[broadcast] room empty room=%s", roomID)
		return false
	}
	b.deliver(conns, f)
	return true
}

// SendToAll offers f to every registered connection, best effort.
func (b *Broadcaster) SendToAll(f Frame) {
	b.deliver(b.reg.All(), f)
}

func (b *Broadcaster) deliver(conns []*Client, f Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		logger.Errorf("[broadcast] marshal frame type=%s err=%v", f.Type, err)
		return
	}
	for _, c := range conns {
		if c.Deliver(payload) {
			metrics.FramesDelivered.Inc()
			continue
		}
		// Failed enqueue means the queue is closed or has been full
		// for a while; treat it as a disconnect signal instead of
		// letting the stale entry accumulate.
		metrics.SendFailures.Inc()
		logger.Warnf("[broadcast] drop recipient conn=%s user=%s type=%s", c.ConnID, c.UserID, f.Type)
		if b.evict != nil {
			go b.evict(c)
		}
	}
}
