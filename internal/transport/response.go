package transport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ds124wfegd/confhub/internal/entity"
)

// SuccessResponse представляет успешный ответ
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// handleError преобразует доменные ошибки в HTTP статусы
func handleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, entity.ErrEventNotFound),
		errors.Is(err, entity.ErrTicketNotFound),
		errors.Is(err, entity.ErrRegistrationNotFound),
		errors.Is(err, entity.ErrSessionNotFound),
		errors.Is(err, entity.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrAlreadyRegistered),
		errors.Is(err, entity.ErrAlreadyJoined),
		errors.Is(err, entity.ErrUserAlreadyExists),
		errors.Is(err, entity.ErrScheduleConflict):
		status = http.StatusConflict
	case errors.Is(err, entity.ErrInvalidTransition),
		errors.Is(err, entity.ErrSessionTimeOrder),
		errors.Is(err, entity.ErrTicketInactive),
		errors.Is(err, entity.ErrEventDatePast),
		errors.Is(err, entity.ErrInvalidEmail),
		errors.Is(err, entity.ErrInvalidInput):
		status = http.StatusBadRequest
	}

	c.JSON(status, ErrorResponse{Success: false, Error: err.Error()})
}
