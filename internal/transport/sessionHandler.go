package transport

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ds124wfegd/confhub/internal/service"
)

type SessionHandler struct {
	sessionService service.SessionService
}

func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// JoinSessionRequest представляет запрос на участие в сессии
type JoinSessionRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	session, conflicts, err := h.sessionService.CreateSession(c.Request.Context(), &req)
	if err != nil {
		if len(conflicts) > 0 {
			c.JSON(http.StatusConflict, gin.H{
				"success":   false,
				"error":     err.Error(),
				"conflicts": conflicts,
			})
			return
		}
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Success: true,
		Message: "сессия создана",
		Data:    session,
	})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid session id"})
		return
	}

	session, err := h.sessionService.GetSession(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) GetEventSessions(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid event id"})
		return
	}

	sessions, err := h.sessionService.GetEventSessions(c.Request.Context(), eventID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

func (h *SessionHandler) UpdateSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid session id"})
		return
	}

	var req service.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	session, conflicts, err := h.sessionService.UpdateSession(c.Request.Context(), id, &req)
	if err != nil {
		if len(conflicts) > 0 {
			c.JSON(http.StatusConflict, gin.H{
				"success":   false,
				"error":     err.Error(),
				"conflicts": conflicts,
			})
			return
		}
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid session id"})
		return
	}

	if err := h.sessionService.DeleteSession(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "сессия удалена"})
}

// JoinSession добавляет участника; при заполненной сессии - в лист ожидания
func (h *SessionHandler) JoinSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid session id"})
		return
	}

	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	session, seated, err := h.sessionService.JoinSession(c.Request.Context(), id, req.UserID)
	if err != nil {
		handleError(c, err)
		return
	}

	message := "место в сессии получено"
	if !seated {
		message = "сессия заполнена, вы добавлены в лист ожидания"
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: message,
		Data:    session,
	})
}

func (h *SessionHandler) LeaveSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid session id"})
		return
	}

	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	session, err := h.sessionService.LeaveSession(c.Request.Context(), id, req.UserID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "вы покинули сессию",
		Data:    session,
	})
}

// CheckConflicts проверяет окно расписания, ничего не изменяя
func (h *SessionHandler) CheckConflicts(c *gin.Context) {
	var req service.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	conflicts, err := h.sessionService.CheckConflicts(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"conflicts":     conflicts,
		"has_conflicts": len(conflicts) > 0,
	})
}
