package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/service"
	"freelancehub/pkg/apperror"
)

type BidHandler struct {
	bids   *service.BidService
	logger *zap.Logger
}

func NewBidHandler(bids *service.BidService, logger *zap.Logger) *BidHandler {
	return &BidHandler{bids: bids, logger: logger}
}

// SubmitBid handles POST /api/tasks/:id/bids
func (h *BidHandler) SubmitBid(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Amount   float64 `json:"amount" binding:"required,gt=0"`
		Proposal string  `json:"proposal" binding:"required"`
		Timeline string  `json:"timeline" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	bid, err := h.bids.SubmitBid(c.Request.Context(), actor, taskID, req.Amount, req.Proposal, req.Timeline)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Bid submitted",
		zap.Int("bid_id", bid.ID),
		zap.Int("task_id", taskID),
		zap.Int("freelancer_id", actor.ID),
	)
	respondCreated(c, gin.H{"bid": bid})
}

// ListBids handles GET /api/tasks/:id/bids
func (h *BidHandler) ListBids(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	bids, err := h.bids.ListByTask(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"bids": bids})
}

// AcceptBid handles POST /api/bids/:id/accept
func (h *BidHandler) AcceptBid(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	bidID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, apperror.ValidationFailed(map[string]string{"id": "must be an integer"}))
		return
	}

	if err := h.bids.AcceptBid(c.Request.Context(), actor, bidID); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Bid accepted",
		zap.Int("bid_id", bidID),
		zap.Int("client_id", actor.ID),
	)
	respondOK(c, gin.H{"status": "accepted"})
}
