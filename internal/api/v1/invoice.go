package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hallmail/hallmail/internal/logger"
	"github.com/hallmail/hallmail/internal/service"
	"github.com/hallmail/hallmail/internal/types"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
	logger         *logger.Logger
}

func NewInvoiceHandler(invoiceService service.InvoiceService, logger *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// ListInvoices godoc
// @Summary List the caller's invoices
// @Tags Invoices
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /v1/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := h.invoiceService.ListInvoices(ctx, types.GetUserID(ctx))
	if err != nil {
		h.logger.Errorw("failed to list invoices", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
