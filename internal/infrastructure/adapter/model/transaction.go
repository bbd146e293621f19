package model

import (
	"time"
)

// Transaction represents the database model for transactions. The composite
// indexes back the poller's due scan and the sweeper's staleness scan.
type Transaction struct {
	ID                    uint64     `gorm:"primaryKey;autoIncrement"`
	Reference             string     `gorm:"uniqueIndex;not null;size:64"`
	ProviderTransactionID string     `gorm:"index;size:128"`
	Amount                string     `gorm:"not null;size:50"`
	AmountInCents         int64      `gorm:"not null"`
	Currency              string     `gorm:"not null;size:8"`
	Phone                 string     `gorm:"not null;size:32"`
	Status                string     `gorm:"not null;size:16;index:idx_status_created,priority:1;index:idx_status_next_poll,priority:1"`
	Attempts              int        `gorm:"not null;default:0"`
	NextPollAt            *time.Time `gorm:"index:idx_status_next_poll,priority:2"`
	CreatedAt             time.Time  `gorm:"not null;index:idx_status_created,priority:2"`
	UpdatedAt             time.Time  `gorm:"not null"`
	RawEvidence           string     `gorm:"type:text"`
	FailureReason         string     `gorm:"type:text"`
}

// TableName specifies the table name for Transaction
func (Transaction) TableName() string {
	return "transactions"
}
