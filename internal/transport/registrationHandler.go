package transport

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ds124wfegd/confhub/internal/entity"
	"github.com/ds124wfegd/confhub/internal/service"
)

type RegistrationHandler struct {
	registrationService service.RegistrationService
}

func NewRegistrationHandler(registrationService service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// CheckinRequest представляет запрос на отметку посещения
type CheckinRequest struct {
	QRCode string `json:"qr_code" binding:"required"`
}

// Register создает регистрацию. Попадание в лист ожидания - тоже успех:
// клиент узнает об этом из поля status.
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	registration, err := h.registrationService.Register(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}

	message := "регистрация создана"
	if registration.Status == entity.RegistrationStatusWaitlisted {
		message = "билеты распроданы, вы добавлены в лист ожидания"
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Success: true,
		Message: message,
		Data:    registration,
	})
}

func (h *RegistrationHandler) GetRegistration(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid registration id"})
		return
	}

	registration, err := h.registrationService.GetRegistration(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, registration)
}

// CancelRegistration отменяет регистрацию. Повторная отмена возвращает 200.
func (h *RegistrationHandler) CancelRegistration(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid registration id"})
		return
	}

	registration, err := h.registrationService.CancelRegistration(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "регистрация отменена",
		Data:    registration,
	})
}

// ConfirmPayment - вебхук платежного провайдера
func (h *RegistrationHandler) ConfirmPayment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid registration id"})
		return
	}

	registration, err := h.registrationService.ConfirmPayment(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "оплата подтверждена",
		Data:    registration,
	})
}

// Checkin отмечает посещение по идентификатору регистрации
func (h *RegistrationHandler) Checkin(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid registration id"})
		return
	}

	registration, err := h.registrationService.Checkin(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "посещение отмечено",
		Data:    registration,
	})
}

// CheckinByQR отмечает посещение по отсканированному QR-коду
func (h *RegistrationHandler) CheckinByQR(c *gin.Context) {
	var req CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	registration, err := h.registrationService.CheckinByQR(c.Request.Context(), req.QRCode)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: "посещение отмечено",
		Data:    registration,
	})
}

// GetEventRegistrations возвращает регистрации мероприятия с пагинацией
func (h *RegistrationHandler) GetEventRegistrations(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid event id"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	status := entity.RegistrationStatus(c.Query("status"))

	registrations, total, err := h.registrationService.GetEventRegistrations(c.Request.Context(), eventID, status, limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    registrations,
		Meta: gin.H{
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

func (h *RegistrationHandler) GetUserRegistrations(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Success: false, Error: "invalid user id"})
		return
	}

	registrations, err := h.registrationService.GetUserRegistrations(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, registrations)
}
