package schema

import "time"

// ProcessedEvent is the idempotency ledger. A row exists for every event
// that has been fully applied, keyed by transaction hash and log index,
// so redelivered messages never mutate derived state twice.
type ProcessedEvent struct {
	TxHash      string    `gorm:"column:tx_hash;primaryKey;type:text"`
	LogIndex    uint      `gorm:"column:log_index;primaryKey"`
	Kind        string    `gorm:"column:kind;not null;type:text"`
	BlockNumber uint64    `gorm:"column:block_number;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

func (ProcessedEvent) TableName() string {
	return "processed_events"
}
