package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openretail/pos_backoffice/internal/apperrors"
	"github.com/openretail/pos_backoffice/internal/core/domain"
	portssvc "github.com/openretail/pos_backoffice/internal/core/ports/services"
	"github.com/openretail/pos_backoffice/internal/core/services"
	"github.com/openretail/pos_backoffice/internal/dto"
	"github.com/openretail/pos_backoffice/internal/gateways"
	"github.com/openretail/pos_backoffice/internal/middleware"
)

// paymentHandler handles HTTP requests for the payment ledger.
type paymentHandler struct {
	paymentService portssvc.PaymentSvcFacade
}

// newPaymentHandler creates a new paymentHandler.
func newPaymentHandler(paymentService portssvc.PaymentSvcFacade) *paymentHandler {
	return &paymentHandler{
		paymentService: paymentService,
	}
}

// processPayment godoc
// @Summary Charge an invoice
// @Description Dispatches a charge through the gateway for the chosen method and records the outcome as a new ledger row
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   payment body dto.ProcessPaymentRequest true "Charge request"
// @Success 201 {object} dto.ProcessPaymentResponse "The persisted ledger row plus gateway payload"
// @Failure 400 {object} map[string]string "Invalid request format or amount mismatch"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 409 {object} map[string]string "Invoice already charged or charge in progress"
// @Failure 500 {object} map[string]string "Failed to process payment"
// @Router /payments [post]
func (h *paymentHandler) processPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	req := dto.ProcessPaymentRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for ProcessPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	req.CustomerIP = c.ClientIP()

	employeeID, ok := middleware.GetEmployeeIDFromContext(c)
	if !ok {
		logger.Error("Employee ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := h.paymentService.ProcessPayment(c.Request.Context(), req, employeeID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		case errors.Is(err, services.ErrAmountMismatch), errors.Is(err, apperrors.ErrValidation):
			logger.Warn("Validation error processing payment", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrInvoiceAlreadyPaid), errors.Is(err, services.ErrPaymentInProgress):
			logger.Warn("Conflicting charge attempt", slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, gateways.ErrNoGatewayAvailable):
			logger.Error("No gateway for requested method", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No gateway available for payment method"})
		default:
			logger.Error("Failed to process payment", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process payment"})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// verifyPayment godoc
// @Summary Verify a payment against its backend
// @Description Re-queries the gateway for the transaction's current status and updates the ledger row if it changed
// @Tags payments
// @Produce  json
// @Param   gatewayTransactionID path string true "Gateway transaction ID"
// @Success 200 {object} dto.PaymentResponse "The (possibly updated) ledger row"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 500 {object} map[string]string "Failed to verify payment"
// @Router /payments/verify/{gatewayTransactionID} [post]
func (h *paymentHandler) verifyPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	gatewayTxnID := c.Param("gatewayTransactionID")

	employeeID, ok := middleware.GetEmployeeIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	row, err := h.paymentService.VerifyPayment(c.Request.Context(), gatewayTxnID, employeeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Transaction not found for verify", slog.String("gateway_transaction_id", gatewayTxnID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		logger.Error("Failed to verify payment", slog.String("error", err.Error()), slog.String("gateway_transaction_id", gatewayTxnID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify payment"})
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(row))
}

// refundPayment godoc
// @Summary Refund a completed charge
// @Description Records a new negative ledger row against the referenced charge; the original row is never modified
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   refund body dto.RefundRequest true "Refund request"
// @Success 201 {object} dto.PaymentResponse "The refund ledger row"
// @Failure 400 {object} map[string]string "Invalid request format or refund amount"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Original transaction not refundable"
// @Failure 422 {object} map[string]string "Gateway rejected the refund"
// @Failure 500 {object} map[string]string "Failed to refund payment"
// @Router /payments/refund [post]
func (h *paymentHandler) refundPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	req := dto.RefundRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for RefundPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	employeeID, ok := middleware.GetEmployeeIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	row, err := h.paymentService.RefundPayment(c.Request.Context(), req, employeeID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		case errors.Is(err, services.ErrRefundAmountInvalid):
			logger.Warn("Invalid refund amount", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrRefundNotAllowed):
			logger.Warn("Refund not allowed", slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, gateways.ErrRefundRejected):
			logger.Warn("Gateway rejected refund", slog.String("error", err.Error()))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to refund payment", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refund payment"})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.ToPaymentResponse(row))
}

// reconcilePayment godoc
// @Summary Reconcile a transaction against a settlement statement
// @Description Marks a COMPLETED or PENDING_RECONCILIATION row as RECONCILED with the outcome of manual statement matching
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Param   reconcile body dto.ReconcileRequest true "Reconciliation outcome"
// @Success 200 {object} dto.PaymentResponse "The reconciled ledger row"
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction not reconcilable from its current status"
// @Failure 500 {object} map[string]string "Failed to reconcile payment"
// @Router /payments/{transactionID}/reconcile [post]
func (h *paymentHandler) reconcilePayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")

	req := dto.ReconcileRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for ReconcilePayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	employeeID, ok := middleware.GetEmployeeIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	row, err := h.paymentService.ReconcilePayment(c.Request.Context(), transactionID, req.ReconciliationStatus, employeeID)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		case errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrReconcileNotAllowed):
			logger.Warn("Reconcile not allowed", slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.Error("Failed to reconcile payment", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile payment"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(row))
}

// getPayment godoc
// @Summary Get a ledger row
// @Description Retrieves one payment transaction by its internal id
// @Tags payments
// @Produce  json
// @Param   transactionID path string true "Transaction ID"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 500 {object} map[string]string "Failed to retrieve transaction"
// @Router /payments/{transactionID} [get]
func (h *paymentHandler) getPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("transactionID")

	row, err := h.paymentService.GetPaymentByID(c.Request.Context(), transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}
		logger.Error("Failed to get transaction", slog.String("error", err.Error()), slog.String("transaction_id", transactionID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve transaction"})
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(row))
}

// listPaymentsByInvoice godoc
// @Summary List the ledger rows of an invoice
// @Description Retrieves every payment transaction recorded against an invoice, oldest first
// @Tags payments
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.ListPaymentsResponse
// @Failure 500 {object} map[string]string "Failed to list transactions"
// @Router /invoices/{invoiceID}/payments [get]
func (h *paymentHandler) listPaymentsByInvoice(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	invoiceID := c.Param("invoiceID")

	rows, err := h.paymentService.GetPaymentsByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		logger.Error("Failed to list transactions for invoice", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, dto.ListPaymentsResponse{Payments: dto.ToPaymentResponses(rows)})
}

// getInvoiceSettlement godoc
// @Summary Get the settlement position of an invoice
// @Description Returns the signed net of all counted ledger rows against the invoice total
// @Tags payments
// @Produce  json
// @Param   invoiceID path string true "Invoice ID"
// @Success 200 {object} dto.SettlementResponse
// @Failure 404 {object} map[string]string "Invoice not found"
// @Failure 500 {object} map[string]string "Failed to compute settlement"
// @Router /invoices/{invoiceID}/settlement [get]
func (h *paymentHandler) getInvoiceSettlement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	invoiceID := c.Param("invoiceID")

	settlement, err := h.paymentService.GetInvoiceSettlement(c.Request.Context(), invoiceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
			return
		}
		logger.Error("Failed to compute settlement", slog.String("error", err.Error()), slog.String("invoice_id", invoiceID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute settlement"})
		return
	}

	c.JSON(http.StatusOK, dto.ToSettlementResponse(settlement))
}

// listPayments godoc
// @Summary List ledger rows
// @Description Lists payment transactions filtered by status, or by date range with token pagination
// @Tags payments
// @Produce  json
// @Param   status query string false "Payment status filter"
// @Param   from query string false "Range start (RFC3339), inclusive"
// @Param   to query string false "Range end (RFC3339), exclusive"
// @Param   limit query int false "Page size (default 20)"
// @Param   nextToken query string false "Pagination token from the previous page"
// @Success 200 {object} dto.ListPaymentsResponse
// @Failure 400 {object} map[string]string "Invalid filter parameters"
// @Failure 500 {object} map[string]string "Failed to list transactions"
// @Router /payments [get]
func (h *paymentHandler) listPayments(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	if status := c.Query("status"); status != "" {
		rows, err := h.paymentService.GetPaymentsByStatus(c.Request.Context(), domain.PaymentStatus(status))
		if err != nil {
			logger.Error("Failed to list transactions by status", slog.String("error", err.Error()), slog.String("status", status))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
			return
		}
		c.JSON(http.StatusOK, dto.ListPaymentsResponse{Payments: dto.ToPaymentResponses(rows)})
		return
	}

	params, err := parseListParams(c)
	if err != nil {
		logger.Warn("Invalid list parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.paymentService.ListPaymentsByDateRange(c.Request.Context(), params)
	if err != nil {
		logger.Error("Failed to list transactions by date range", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, page)
}

// parseListParams extracts the date-range filters from the query string.
func parseListParams(c *gin.Context) (dto.ListPaymentsParams, error) {
	params := dto.ListPaymentsParams{}

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		// Default to the current day in UTC, the common back-office view.
		now := time.Now().UTC()
		params.From = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		params.To = params.From.Add(24 * time.Hour)
	} else {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return params, errors.New("invalid 'from' parameter, expected RFC3339")
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return params, errors.New("invalid 'to' parameter, expected RFC3339")
		}
		params.From = from
		params.To = to
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return params, errors.New("invalid 'limit' parameter")
		}
		params.Limit = limit
	}

	if token := c.Query("nextToken"); token != "" {
		params.NextToken = &token
	}

	return params, nil
}

// vnpayIPN godoc
// @Summary VNPay instant payment notification endpoint
// @Description Applies a signed VNPay callback to the referenced transaction. Responds in VNPay's RspCode convention.
// @Tags payments
// @Produce  json
// @Success 200 {object} map[string]string "RspCode 00 on success"
// @Router /payments/vnpay/ipn [get]
func (h *paymentHandler) vnpayIPN(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	_, err := h.paymentService.ConfirmVNPayCallback(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		// VNPay keeps retrying unless it gets a terminal RspCode back.
		switch {
		case errors.Is(err, services.ErrCallbackSignature):
			logger.Warn("VNPay IPN signature mismatch")
			c.JSON(http.StatusOK, gin.H{"RspCode": "97", "Message": "Invalid signature"})
		case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, services.ErrCallbackMissingTxnRef):
			logger.Warn("VNPay IPN for unknown transaction", slog.String("error", err.Error()))
			c.JSON(http.StatusOK, gin.H{"RspCode": "01", "Message": "Order not found"})
		default:
			logger.Error("Failed to apply VNPay IPN", slog.String("error", err.Error()))
			c.JSON(http.StatusOK, gin.H{"RspCode": "99", "Message": "Unknown error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"RspCode": "00", "Message": "Confirm Success"})
}
