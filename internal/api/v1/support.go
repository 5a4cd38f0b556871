package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hallmail/hallmail/internal/api/dto"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/service"
	"github.com/hallmail/hallmail/internal/types"
)

type SupportHandler struct {
	service service.SupportService
	logger  *logger.Logger
}

func NewSupportHandler(service service.SupportService, logger *logger.Logger) *SupportHandler {
	return &SupportHandler{
		service: service,
		logger:  logger,
	}
}

// CreateTicket godoc
// @Summary Send a support request
// @Tags Support
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateSupportTicketRequest true "Ticket"
// @Success 201 {object} dto.SupportTicketResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /v1/support [post]
func (h *SupportHandler) CreateTicket(c *gin.Context) {
	var req dto.CreateSupportTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.service.Submit(ctx, types.GetUserID(ctx), types.GetUserEmail(ctx), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
