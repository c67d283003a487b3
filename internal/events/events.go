package events

import "time"

const (
	TypeInventoryReconciled = "inventory.reconciled"
	TypeVariantsEvicted     = "variants.evicted"
)

// Envelope is the wire shape of every lifecycle event on the topic.
type Envelope struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// TypeInventoryReconciled
	OrderID       int64 `json:"order_id,omitempty"`
	ItemsDeducted int   `json:"items_deducted,omitempty"`

	// TypeVariantsEvicted
	VariantsDeleted int `json:"variants_deleted,omitempty"`
}
