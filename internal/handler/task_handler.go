package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/service"
	"freelancehub/pkg/apperror"
)

type TaskHandler struct {
	tasks  *service.TaskService
	logger *zap.Logger
}

func NewTaskHandler(tasks *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

func taskIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, apperror.ValidationFailed(map[string]string{"id": "must be an integer"}))
		return 0, false
	}
	return id, true
}

// CreateTask handles POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req struct {
		Title       string    `json:"title" binding:"required"`
		Description string    `json:"description" binding:"required"`
		Category    string    `json:"category" binding:"required"`
		Budget      float64   `json:"budget" binding:"required,gt=0"`
		BudgetType  string    `json:"budget_type" binding:"required"`
		Deadline    time.Time `json:"deadline" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), actor, req.Title, req.Description, req.Category, req.Budget, req.BudgetType, req.Deadline)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Task created",
		zap.Int("task_id", task.ID),
		zap.Int("client_id", actor.ID),
	)
	respondCreated(c, gin.H{"task": task})
}

// ListTasks handles GET /api/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.tasks.ListOpenTasks(c.Request.Context())
	if err != nil {
		h.logger.Error("ListTasks: failed to fetch tasks", zap.Error(err))
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"tasks": tasks})
}

// GetTask handles GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"task": task})
}

// CancelTask handles POST /api/tasks/:id/cancel
func (h *TaskHandler) CancelTask(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := h.tasks.CancelTask(c.Request.Context(), actor, taskID); err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Task cancelled",
		zap.Int("task_id", taskID),
		zap.Int("client_id", actor.ID),
	)
	respondOK(c, gin.H{"status": "cancelled"})
}
