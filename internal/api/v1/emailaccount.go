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

type EmailAccountHandler struct {
	service service.EmailAccountService
	logger  *logger.Logger
}

func NewEmailAccountHandler(service service.EmailAccountService, logger *logger.Logger) *EmailAccountHandler {
	return &EmailAccountHandler{
		service: service,
		logger:  logger,
	}
}

// ConnectIMAP godoc
// @Summary Connect an IMAP/SMTP mailbox
// @Description The login is verified against the IMAP server before anything is stored
// @Tags EmailAccounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ConnectIMAPRequest true "Mailbox"
// @Success 201 {object} dto.EmailAccountResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /v1/email-accounts/imap [post]
func (h *EmailAccountHandler) ConnectIMAP(c *gin.Context) {
	var req dto.ConnectIMAPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.service.ConnectIMAP(ctx, types.GetUserID(ctx), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ConnectGmail godoc
// @Summary Record a Gmail mailbox authorized through OAuth
// @Tags EmailAccounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ConnectGmailRequest true "Mailbox"
// @Success 201 {object} dto.EmailAccountResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Router /v1/email-accounts/gmail [post]
func (h *EmailAccountHandler) ConnectGmail(c *gin.Context) {
	var req dto.ConnectGmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.service.ConnectGmail(ctx, types.GetUserID(ctx), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *EmailAccountHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := h.service.List(ctx, types.GetUserID(ctx))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
