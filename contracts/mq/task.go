package mq

const (
	RoutingKeyTaskCancelled = "task.cancelled"
)

// TaskCancelledPayload is published when a client cancels an open task.
// BidderIDs lists freelancers whose pending bids were rejected.
type TaskCancelledPayload struct {
	TaskID    int    `json:"task_id"`
	TaskTitle string `json:"task_title"`
	ClientID  int    `json:"client_id"`
	BidderIDs []int  `json:"bidder_ids"`
}
