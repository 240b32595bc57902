// Package outbox implements the transactional outbox pattern: a domain
// event is written as an outbox.Message row in the same transaction as
// its triggering state change, so a relay (out of scope for this core,
// spec §1) can later dispatch it at least once without ever losing or
// duplicating the state change it describes (spec §4.6).
package outbox

import (
	"encoding/json"
	"time"

	"github.com/rideledger/core/id"
)

// Message is one outbox row: a deterministic serialization of a domain
// event, including the tenant id, awaiting relay dispatch.
type Message struct {
	ID            id.OutboxID
	TenantID      string
	EventType     string
	Payload       json.RawMessage
	OccurredAtUTC time.Time

	// ProcessedAtUTC is nil until a relay marks this message dispatched.
	// Domain code never sets it — only store.OutboxRepository.MarkProcessed
	// does, which is why it has no exported setter here.
	ProcessedAtUTC *time.Time
	RetryCount     int
}

// NewMessage constructs a Message ready for insertion. payload must
// already be a deterministic JSON serialization of the triggering event,
// including the tenant id, per spec §4.6.
func NewMessage(tenantID, eventType string, payload json.RawMessage) *Message {
	return &Message{
		ID:            id.NewOutboxID(),
		TenantID:      tenantID,
		EventType:     eventType,
		Payload:       payload,
		OccurredAtUTC: time.Now().UTC(),
	}
}

// IsProcessed reports whether a relay has already dispatched this
// message.
func (m *Message) IsProcessed() bool { return m.ProcessedAtUTC != nil }
