package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"desyn-backend/internal/apperrors"
	"desyn-backend/internal/logger"
	"desyn-backend/internal/middleware"
	"desyn-backend/internal/models"
)

// respondError maps a service error onto its HTTP status.
func respondError(c *gin.Context, err error) {
	status := apperrors.StatusCode(err)
	body := models.ErrorResponse{Error: http.StatusText(status), Message: err.Error()}

	var validation *apperrors.ValidationError
	switch {
	case errors.As(err, &validation):
		body.Error = "validation failed"
	case status == http.StatusInternalServerError:
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		body.Message = "internal error"
	}
	c.JSON(status, body)
}

func currentUser(c *gin.Context) (string, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return "", false
	}
	return uid, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request",
			Message: err.Error(),
		})
		return false
	}
	return true
}
