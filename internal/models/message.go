package models

import "time"

// Message is a direct message between two users.
type Message struct {
	ID          string     `db:"id" json:"id"`
	SenderID    string     `db:"sender_id" json:"sender_id"`
	RecipientID string     `db:"recipient_id" json:"recipient_id"`
	Body        string     `db:"body" json:"body"`
	ReadAt      *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Conversation summarises the latest exchange with a peer.
type Conversation struct {
	PeerID        string    `db:"peer_id" json:"peer_id"`
	PeerFirstName string    `db:"peer_first_name" json:"peer_first_name"`
	PeerLastName  string    `db:"peer_last_name" json:"peer_last_name"`
	LastBody      string    `db:"last_body" json:"last_body"`
	LastAt        time.Time `db:"last_at" json:"last_at"`
	UnreadCount   int       `db:"unread_count" json:"unread_count"`
}

// MessageFilter scopes message history queries.
type MessageFilter struct {
	UserID   string
	PeerID   string
	Page     int
	PageSize int
}
