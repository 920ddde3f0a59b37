package mq

import "time"

const (
	RoutingKeyBidSubmitted = "bid.submitted"
	RoutingKeyBidAccepted  = "bid.accepted"
)

// BidSubmittedPayload is published after a freelancer's bid is persisted.
type BidSubmittedPayload struct {
	BidID        int       `json:"bid_id"`
	TaskID       int       `json:"task_id"`
	TaskTitle    string    `json:"task_title"`
	ClientID     int       `json:"client_id"`
	FreelancerID int       `json:"freelancer_id"`
	Amount       float64   `json:"amount"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// BidAcceptedPayload is written to the outbox inside the acceptance
// transaction and published after commit.
type BidAcceptedPayload struct {
	BidID        int       `json:"bid_id"`
	TaskID       int       `json:"task_id"`
	TaskTitle    string    `json:"task_title"`
	ClientID     int       `json:"client_id"`
	FreelancerID int       `json:"freelancer_id"`
	Amount       float64   `json:"amount"`
	AcceptedAt   time.Time `json:"accepted_at"`
}
