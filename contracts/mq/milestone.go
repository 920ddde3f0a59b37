package mq

import "time"

const (
	RoutingKeyMilestoneCreated   = "milestone.created"
	RoutingKeyMilestoneCompleted = "milestone.completed"
	RoutingKeyMilestonePaid      = "milestone.paid"
)

// MilestoneCreatedPayload is published when a client adds a milestone to a
// task that already has an assigned freelancer.
type MilestoneCreatedPayload struct {
	MilestoneID  int     `json:"milestone_id"`
	TaskID       int     `json:"task_id"`
	TaskTitle    string  `json:"task_title"`
	Title        string  `json:"title"`
	Amount       float64 `json:"amount"`
	FreelancerID int     `json:"freelancer_id"`
}

// MilestoneCompletedPayload is published when the assigned freelancer
// requests completion review.
type MilestoneCompletedPayload struct {
	MilestoneID int    `json:"milestone_id"`
	TaskID      int    `json:"task_id"`
	TaskTitle   string `json:"task_title"`
	Title       string `json:"title"`
	ClientID    int    `json:"client_id"`
}

// MilestonePaidPayload is published after the payment-release transaction
// commits. TaskCompleted reports whether the rollup marked the whole task
// as completed.
type MilestonePaidPayload struct {
	MilestoneID   int       `json:"milestone_id"`
	TaskID        int       `json:"task_id"`
	TaskTitle     string    `json:"task_title"`
	Title         string    `json:"title"`
	Amount        float64   `json:"amount"`
	FreelancerID  int       `json:"freelancer_id"`
	TaskCompleted bool      `json:"task_completed"`
	PaidAt        time.Time `json:"paid_at"`
}
