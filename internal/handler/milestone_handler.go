package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/service"
	"freelancehub/pkg/apperror"
)

type MilestoneHandler struct {
	milestones *service.MilestoneService
	logger     *zap.Logger
}

func NewMilestoneHandler(milestones *service.MilestoneService, logger *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{milestones: milestones, logger: logger}
}

func milestoneIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, apperror.ValidationFailed(map[string]string{"id": "must be an integer"}))
		return 0, false
	}
	return id, true
}

// CreateMilestone handles POST /api/tasks/:id/milestones
func (h *MilestoneHandler) CreateMilestone(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req struct {
		Title       string    `json:"title" binding:"required"`
		Description string    `json:"description"`
		Amount      float64   `json:"amount" binding:"required,gt=0"`
		DueDate     time.Time `json:"due_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	m, err := h.milestones.CreateMilestone(c.Request.Context(), actor, taskID, req.Title, req.Description, req.Amount, req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Milestone created",
		zap.Int("milestone_id", m.ID),
		zap.Int("task_id", taskID),
	)
	respondCreated(c, gin.H{"milestone": m})
}

// ListMilestones handles GET /api/tasks/:id/milestones
func (h *MilestoneHandler) ListMilestones(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	milestones, err := h.milestones.ListByTask(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"milestones": milestones})
}

// RequestCompletion handles POST /api/milestones/:id/complete
func (h *MilestoneHandler) RequestCompletion(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	milestoneID, ok := milestoneIDParam(c)
	if !ok {
		return
	}

	m, err := h.milestones.RequestCompletion(c.Request.Context(), actor, milestoneID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Milestone completion requested",
		zap.Int("milestone_id", milestoneID),
		zap.Int("freelancer_id", actor.ID),
	)
	respondOK(c, gin.H{"milestone": m})
}

// ReleasePayment handles POST /api/milestones/:id/pay
func (h *MilestoneHandler) ReleasePayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	milestoneID, ok := milestoneIDParam(c)
	if !ok {
		return
	}

	m, err := h.milestones.ReleasePayment(c.Request.Context(), actor, milestoneID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Milestone payment released",
		zap.Int("milestone_id", milestoneID),
		zap.Int("client_id", actor.ID),
	)
	respondOK(c, gin.H{"milestone": m})
}
