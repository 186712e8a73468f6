package domain

import (
	"errors"
	"strconv"
)

// Memo is the JSON document written into the memo instruction of every
// checkout transaction and read back when the indexer reports it.
type Memo struct {
	SessionID string `json:"sessionId"`
	Amount    string `json:"amount"`
	Token     string `json:"token"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	ProjectID string `json:"projectId"`
}

// Validate checks the fields the confirmation path depends on.
func (m *Memo) Validate() error {
	if m.SessionID == "" {
		return errors.New("memo has no sessionId")
	}
	if _, err := m.AmountValue(); err != nil {
		return err
	}
	return nil
}

// AmountValue parses the declared decimal amount.
func (m *Memo) AmountValue() (float64, error) {
	v, err := strconv.ParseFloat(m.Amount, 64)
	if err != nil {
		return 0, errors.New("memo amount is not a number")
	}
	return v, nil
}
