package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"freelancehub/internal/service"
	"freelancehub/pkg/apperror"
)

func respondOK(c *gin.Context, data gin.H) {
	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func respondCreated(c *gin.Context, data gin.H) {
	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(http.StatusCreated, body)
}

// respondError maps domain errors onto the stable error envelope. Errors
// without a domain kind are reported as internal without leaking details.
func respondError(c *gin.Context, err error) {
	appErr := apperror.AsError(err)
	if appErr == nil {
		appErr = apperror.New(apperror.KindInternal, "internal server error")
	}

	body := gin.H{
		"kind":    string(appErr.Kind),
		"message": appErr.Message,
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	c.JSON(apperror.HTTPStatus(appErr.Kind), gin.H{
		"success": false,
		"error":   body,
	})
}

// respondBindingError turns gin/validator binding failures into a
// validation_failed envelope with per-field messages.
func respondBindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = "failed on " + fe.Tag()
		}
		respondError(c, apperror.ValidationFailed(fields))
		return
	}
	respondError(c, apperror.ValidationFailed(map[string]string{"body": "malformed request body"}))
}

// currentActor reads the identity the auth middleware placed on the context.
func currentActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := c.Get("user_id")
	if !ok {
		respondError(c, apperror.Unauthenticated("user not authenticated"))
		return service.Actor{}, false
	}
	role, _ := c.Get("role")
	roleStr, _ := role.(string)
	return service.Actor{ID: userID.(int), Role: roleStr}, true
}
