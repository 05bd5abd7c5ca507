package session

import (
	"github.com/Klingon-tech/splwallet/internal/token"
)

// State is a snapshot of the controller.
type State struct {
	Account   string          `json:"account,omitempty"`
	Connected bool            `json:"connected"`
	Pending   bool            `json:"pending"`
	Lamports  uint64          `json:"lamports"`
	Balance   string          `json:"balance"` // SOL, 4 decimals
	Holdings  []token.Holding `json:"holdings"`
	Error     string          `json:"error,omitempty"`
}

// Acknowledgement is the success notice of a mint or transfer.
type Acknowledgement struct {
	Operation string `json:"operation"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Account   string `json:"account"`
}

// EventType tells state changes and acknowledgements apart.
type EventType string

const (
	StateChanged EventType = "state"
	Acknowledged EventType = "ack"
)

// Event is delivered to subscribers.
type Event struct {
	Type  EventType        `json:"type"`
	State State            `json:"state"`
	Ack   *Acknowledgement `json:"ack,omitempty"`
}

// Listener receives controller events. It runs on the goroutine that caused
// the change and must not block for long.
type Listener func(Event)
