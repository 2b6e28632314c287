// Package amqp publishes and consumes ledger export events over RabbitMQ.
package amqp

import (
	"encoding/json"
	"time"

	"tally/internal/core"
)

// ExportEventMessage tells the export worker that a ledger row needs to
// go to the spreadsheet. It carries only the kind and ID; the worker
// fetches the full row from the database.
type ExportEventMessage struct {
	Kind      core.Kind `json:"kind"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExportEventMessage builds an export event for a single ledger row.
func NewExportEventMessage(kind core.Kind, id int64) *ExportEventMessage {
	return &ExportEventMessage{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the message for the wire.
func (m *ExportEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportEventMessageFromJSON parses a wire message and validates its kind.
func ExportEventMessageFromJSON(data []byte) (*ExportEventMessage, error) {
	var msg ExportEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Kind.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
