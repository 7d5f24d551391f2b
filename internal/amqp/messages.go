package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// PointMessage carries a created transaction to the point writer. It holds
// the full record so the consumer never reads the document store.
type PointMessage struct {
	TransactionID string          `json:"transaction_id"`
	Type          string          `json:"type"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Date          time.Time       `json:"date"`
	Tags          []string        `json:"tags,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

func NewPointMessage(tx core.Transaction) *PointMessage {
	return &PointMessage{
		TransactionID: tx.ID,
		Type:          string(tx.Type),
		Category:      string(tx.Category),
		Amount:        tx.Amount,
		Description:   tx.Description,
		Date:          tx.Date.UTC(),
		Tags:          tx.Tags,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *PointMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func PointMessageFromJSON(data []byte) (*PointMessage, error) {
	var msg PointMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.TransactionID == "" {
		return nil, fmt.Errorf("point message without transaction id")
	}
	return &msg, nil
}

// Transaction rebuilds the domain record and checks it.
func (m *PointMessage) Transaction() (core.Transaction, error) {
	tx := core.Transaction{
		ID:          m.TransactionID,
		Amount:      m.Amount,
		Type:        core.TransactionType(m.Type),
		Category:    core.Category(m.Category),
		Description: m.Description,
		Date:        m.Date.UTC(),
		Tags:        m.Tags,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("point message %s: %w", m.TransactionID, err)
	}
	return tx, nil
}
