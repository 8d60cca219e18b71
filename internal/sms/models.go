package sms

import "time"

// Message is one inbound or outbound SMS.
type Message struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// ExternalMessageID is the provider message identifier.
	ExternalMessageID string `json:"external_message_id" db:"external_message_id"`

	Direction Direction `json:"direction" db:"direction"`

	From string `json:"from" db:"from_number"`
	To   string `json:"to" db:"to_number"`
	Text string `json:"text" db:"text"`

	Status Status `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusReceived  Status = "received"
	StatusQueued    Status = "queued"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)
