package amqp

import (
	"encoding/json"
	"time"
)

// Budget change actions carried on the wire.
const (
	ActionUpsert = "upsert"
	ActionDelete = "delete"
)

// BudgetChangedMessage announces that a budget line was written or removed.
// Consumers that need the full line fetch it from the database by period and
// category.
type BudgetChangedMessage struct {
	PeriodID   int64     `json:"period_id"`
	CategoryID int64     `json:"category_id"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewBudgetChangedMessage creates a budget change message for the given line.
func NewBudgetChangedMessage(periodID, categoryID int64, action string) *BudgetChangedMessage {
	return &BudgetChangedMessage{
		PeriodID:   periodID,
		CategoryID: categoryID,
		Action:     action,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetChangedMessageFromJSON creates a message from JSON bytes
func BudgetChangedMessageFromJSON(data []byte) (*BudgetChangedMessage, error) {
	var msg BudgetChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ActualRecordedMessage carries one actual amount reported by an external
// feed, typically a practice management system export.
type ActualRecordedMessage struct {
	PeriodID   int64     `json:"period_id"`
	CategoryID int64     `json:"category_id"`
	Amount     string    `json:"amount"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewActualRecordedMessage creates an actuals message.
func NewActualRecordedMessage(periodID, categoryID int64, amount, source string) *ActualRecordedMessage {
	return &ActualRecordedMessage{
		PeriodID:   periodID,
		CategoryID: categoryID,
		Amount:     amount,
		Source:     source,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ActualRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActualRecordedMessageFromJSON creates a message from JSON bytes
func ActualRecordedMessageFromJSON(data []byte) (*ActualRecordedMessage, error) {
	var msg ActualRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
