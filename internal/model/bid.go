package model

import "time"

const (
	BidStatusPending   = "pending"
	BidStatusAccepted  = "accepted"
	BidStatusRejected  = "rejected"
	BidStatusWithdrawn = "withdrawn"
)

// Bid is a freelancer's proposal on a task. At most one bid exists per
// (task, freelancer), and at most one bid per task is accepted.
type Bid struct {
	ID           int       `json:"id"`
	TaskID       int       `json:"task_id"`
	FreelancerID int       `json:"freelancer_id"`
	Amount       float64   `json:"amount"`
	Proposal     string    `json:"proposal"`
	Timeline     string    `json:"timeline"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
