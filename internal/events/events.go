// Package events implements the lifecycle event stream the gateway relays
// to clients. Events are emitted after the originating mutation commits,
// so subscribers only ever observe durable state.
package events

import (
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/zeebo/blake3"

	"nwuledger/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Type identifies a lifecycle event.
type Type string

// Lifecycle events.
const (
	ContributionSubmitted  Type = "ContributionSubmitted"
	ContributionVerified   Type = "ContributionVerified"
	VerificationRecorded   Type = "VerificationRecorded"
	CertificateMinted      Type = "CertificateMinted"
	CertificateTransferred Type = "CertificateTransferred"
	CertificateBurned      Type = "CertificateBurned"
	RewardAllocated        Type = "RewardAllocated"
	RewardClaimed          Type = "RewardClaimed"
	TokensReleased         Type = "TokensReleased"
	VestingScheduleCreated Type = "VestingScheduleCreated"
	VestingRevoked         Type = "VestingRevoked"
	RoleGranted            Type = "RoleGranted"
	RoleRevoked            Type = "RoleRevoked"
	TreasuryUpdated        Type = "TreasuryUpdated"
	ProtocolPaused         Type = "ProtocolPaused"
	ProtocolUnpaused       Type = "ProtocolUnpaused"
)

// Event is one emitted lifecycle event.
type Event struct {
	ID        string         `json:"id"`
	Seq       uint64         `json:"seq"`
	Type      Type           `json:"type"`
	Timestamp int64          `json:"timestamp"`
	Fields    map[string]any `json:"fields"`
}

// JSON returns the event encoded for relay.
func (e Event) JSON() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		// Fields only hold strings and integers; this should be unreachable.
		logger.Error("encode event", "type", e.Type, "err", err)
		return nil
	}
	return data
}

// Emitter fans events out to subscribers over buffered channels.
// A slow subscriber drops events rather than blocking the ledger.
type Emitter struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	nextSub uint64
	seq     uint64
	dropped uint64
}

// NewEmitter returns an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{
		subs: make(map[uint64]chan Event),
	}
}

// Emit assigns a sequence number and id, then fans out to subscribers.
// Returns the stamped event.
func (m *Emitter) Emit(t Type, fields map[string]any) Event {
	m.mu.Lock()

	m.seq++
	e := Event{
		Seq:       m.seq,
		Type:      t,
		Timestamp: time.Now().Unix(),
		Fields:    fields,
	}
	e.ID = eventID(e.Seq, t)

	for _, ch := range m.subs {
		select {
		case ch <- e:
		default:
			m.dropped++
		}
	}

	m.mu.Unlock()

	logger.Debug("event emitted", "type", t, "seq", e.Seq)

	return e
}

// Subscribe registers a subscriber with the given channel buffer.
// The returned cancel function unregisters and closes the channel.
func (m *Emitter) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
		m.mu.Unlock()
	}

	return ch, cancel
}

// Dropped returns how many events were dropped on full subscriber buffers.
func (m *Emitter) Dropped() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dropped
}

// eventID derives a stable identifier from the sequence number and type.
func eventID(seq uint64, t Type) string {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seq)

	h := blake3.New()
	h.Write(buf[:])
	h.Write([]byte(t))

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}
