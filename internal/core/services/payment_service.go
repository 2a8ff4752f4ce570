package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openretail/pos_backoffice/internal/apperrors"
	"github.com/openretail/pos_backoffice/internal/core/domain"
	portsrepo "github.com/openretail/pos_backoffice/internal/core/ports/repositories"
	portssvc "github.com/openretail/pos_backoffice/internal/core/ports/services"
	"github.com/openretail/pos_backoffice/internal/dto"
	"github.com/openretail/pos_backoffice/internal/gateways"
	"github.com/openretail/pos_backoffice/internal/middleware"
	"github.com/openretail/pos_backoffice/internal/utils"
)

var (
	ErrAmountMismatch         = errors.New("payment amount does not match invoice total")
	ErrInvoiceAlreadyPaid     = errors.New("invoice already has an active charge")
	ErrPaymentInProgress      = errors.New("another payment for this invoice is in progress")
	ErrRefundNotAllowed       = errors.New("only completed transactions can be refunded")
	ErrRefundAmountInvalid    = errors.New("refund amount must be positive and must not exceed the original charge")
	ErrReconcileNotAllowed    = errors.New("transaction cannot be reconciled from its current status")
	ErrCallbackSignature      = errors.New("callback signature verification failed")
	ErrCallbackMissingTxnRef  = errors.New("callback is missing the transaction reference")
	ErrCallbackNotSupported   = errors.New("routed gateway does not accept callbacks")
)

const (
	defaultGatewayTimeout = 15 * time.Second
	defaultLockTTL        = 30 * time.Second

	ledgerEntityName = "PaymentTransaction"
)

// paymentService orchestrates the payment ledger: it validates requests
// against the invoice, dispatches charges through the gateway router and
// persists the resulting ledger rows.
type paymentService struct {
	paymentRepo    portsrepo.PaymentRepositoryFacade
	invoiceRepo    portsrepo.InvoiceReader
	locker         portsrepo.PaymentLocker
	router         *gateways.Router
	auditSvc       portssvc.AuditSvc
	gatewayTimeout time.Duration
	lockTTL        time.Duration
}

// PaymentServiceOption configures optional service parameters.
type PaymentServiceOption func(*paymentService)

// WithGatewayTimeout overrides the per-call gateway timeout.
func WithGatewayTimeout(d time.Duration) PaymentServiceOption {
	return func(s *paymentService) { s.gatewayTimeout = d }
}

// WithLockTTL overrides the per-invoice lock TTL.
func WithLockTTL(d time.Duration) PaymentServiceOption {
	return func(s *paymentService) { s.lockTTL = d }
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	paymentRepo portsrepo.PaymentRepositoryFacade,
	invoiceRepo portsrepo.InvoiceReader,
	locker portsrepo.PaymentLocker,
	router *gateways.Router,
	auditSvc portssvc.AuditSvc,
	opts ...PaymentServiceOption,
) portssvc.PaymentSvcFacade {
	s := &paymentService{
		paymentRepo:    paymentRepo,
		invoiceRepo:    invoiceRepo,
		locker:         locker,
		router:         router,
		auditSvc:       auditSvc,
		gatewayTimeout: defaultGatewayTimeout,
		lockTTL:        defaultLockTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ensure paymentService implements the facade.
var _ portssvc.PaymentSvcFacade = (*paymentService)(nil)

// ProcessPayment charges an invoice and records the outcome as a new ledger
// row. Gateway failure is not an error: it becomes a FAILED row so the
// attempt is never silently dropped.
func (s *paymentService) ProcessPayment(ctx context.Context, req dto.ProcessPaymentRequest, actorID string) (*dto.ProcessPaymentResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	// Per-invoice mutual exclusion: two concurrent charges for the same
	// invoice must not both pass the checks below. The DB partial unique
	// index is the durable backstop if the lock service is unavailable.
	acquired, err := s.locker.AcquireInvoiceLock(ctx, req.InvoiceID, s.lockTTL)
	if err != nil {
		logger.Error("Failed to acquire invoice lock", slog.String("invoice_id", req.InvoiceID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to acquire invoice lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: invoice %s", ErrPaymentInProgress, req.InvoiceID)
	}
	defer func() {
		if err := s.locker.ReleaseInvoiceLock(ctx, req.InvoiceID); err != nil {
			logger.Warn("Failed to release invoice lock", slog.String("invoice_id", req.InvoiceID), slog.String("error", err.Error()))
		}
	}()

	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, req.InvoiceID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to load invoice", slog.String("invoice_id", req.InvoiceID), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("failed to load invoice %s: %w", req.InvoiceID, err)
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	// Exact decimal equality: partial payment is not supported.
	if !req.Amount.Equal(invoice.TotalOwed) {
		return nil, fmt.Errorf("%w: invoice %s owes %s, got %s", ErrAmountMismatch, invoice.InvoiceID, invoice.TotalOwed.String(), req.Amount.String())
	}

	active, err := s.paymentRepo.HasActiveCharge(ctx, req.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing charges for invoice %s: %w", req.InvoiceID, err)
	}
	if active {
		return nil, fmt.Errorf("%w: invoice %s", ErrInvoiceAlreadyPaid, req.InvoiceID)
	}

	gateway, err := s.router.Route(req.Method)
	if err != nil {
		logger.Error("No gateway for payment method", slog.String("method", string(req.Method)))
		return nil, err
	}

	now := time.Now().UTC()
	transactionCode := utils.GenerateTransactionCode()

	chargeReq := gateways.ChargeRequest{
		TransactionCode: transactionCode,
		InvoiceID:       invoice.InvoiceID,
		Method:          req.Method,
		Amount:          req.Amount,
		CurrencyCode:    invoice.CurrencyCode,
		OrderInfo:       req.OrderInfo,
		CustomerIP:      req.CustomerIP,
		CardLast4:       req.CardLast4,
		CardType:        req.CardType,
		BankReference:   req.BankReference,
	}

	// The gateway call runs under its own timeout and outside any DB
	// transaction; only the insert below needs durability ordering.
	result := s.callGateway(ctx, logger, func(callCtx context.Context) (*gateways.Result, error) {
		return gateway.Charge(callCtx, chargeReq)
	})

	row := domain.PaymentTransaction{
		TransactionID:        uuid.NewString(),
		TransactionCode:      transactionCode,
		InvoiceID:            invoice.InvoiceID,
		Method:               req.Method,
		Status:               result.Status,
		Amount:               req.Amount,
		CurrencyCode:         invoice.CurrencyCode,
		TransactionDate:      now,
		GatewayTransactionID: result.GatewayTransactionID,
		GatewayResponse:      result.Raw,
		CardLast4:            req.CardLast4,
		CardType:             req.CardType,
		QRCode:               result.QRCode,
		ErrorMessage:         result.ErrorMessage,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	if err := s.savePaymentWithRetry(ctx, row); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: invoice %s", ErrInvoiceAlreadyPaid, req.InvoiceID)
		}
		logger.Error("Failed to persist ledger row after gateway call",
			slog.String("transaction_code", transactionCode),
			slog.String("gateway_status", string(result.Status)),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to persist transaction %s (gateway returned %s): %w", transactionCode, result.Status, err)
	}

	s.auditSvc.Record(ctx, ledgerEntityName, row.TransactionID, "PROCESS_PAYMENT", actorID, "", string(row.Status))

	logger.Info("Payment processed",
		slog.String("transaction_code", transactionCode),
		slog.String("invoice_id", invoice.InvoiceID),
		slog.String("method", string(req.Method)),
		slog.String("status", string(row.Status)))

	resp := dto.ToProcessPaymentResponse(&row, result)
	return &resp, nil
}

// VerifyPayment re-queries the backend for the current status of a ledger
// row and stores the new status only if it changed. Idempotent.
func (s *paymentService) VerifyPayment(ctx context.Context, gatewayTransactionID string, actorID string) (*domain.PaymentTransaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	row, err := s.paymentRepo.FindPaymentByGatewayTransactionID(ctx, gatewayTransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction by gateway id %s: %w", gatewayTransactionID, err)
	}

	gateway, err := s.router.Route(row.Method)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, err := gateway.Verify(callCtx, gatewayTransactionID)
	if err != nil {
		// Verify is a read; a backend outage must not corrupt the row.
		logger.Warn("Gateway verify failed", slog.String("gateway_transaction_id", gatewayTransactionID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("gateway verify failed for %s: %w", gatewayTransactionID, err)
	}

	if result.Status != row.Status {
		if err := s.applyStatusChange(ctx, row, result.Status, result.ErrorMessage, actorID); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// RefundPayment creates a new negative ledger row against a completed
// charge. The original row is never modified.
func (s *paymentService) RefundPayment(ctx context.Context, req dto.RefundRequest, actorID string) (*domain.PaymentTransaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	original, err := s.paymentRepo.FindPaymentByGatewayTransactionID(ctx, req.GatewayTransactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction by gateway id %s: %w", req.GatewayTransactionID, err)
	}

	if original.Status != domain.StatusCompleted {
		return nil, fmt.Errorf("%w: transaction %s is %s", ErrRefundNotAllowed, original.TransactionCode, original.Status)
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) || req.Amount.GreaterThan(original.Amount) {
		return nil, fmt.Errorf("%w: requested %s against charge of %s", ErrRefundAmountInvalid, req.Amount.String(), original.Amount.String())
	}

	gateway, err := s.router.Route(original.Method)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, err := gateway.Refund(callCtx, req.GatewayTransactionID, req.Amount)
	if err != nil {
		if errors.Is(err, gateways.ErrRefundRejected) {
			return nil, err
		}
		// Transport failure: record the attempt as a FAILED refund row so
		// the operator can see and retry it.
		logger.Warn("Gateway refund call failed", slog.String("gateway_transaction_id", req.GatewayTransactionID), slog.String("error", err.Error()))
		result = &gateways.Result{Status: domain.StatusFailed, ErrorMessage: err.Error()}
	}

	now := time.Now().UTC()
	notes := fmt.Sprintf("Refund of %s", original.TransactionCode)
	if req.Reason != "" {
		notes = fmt.Sprintf("%s: %s", notes, req.Reason)
	}

	refundRow := domain.PaymentTransaction{
		TransactionID:        uuid.NewString(),
		TransactionCode:      utils.GenerateTransactionCode(),
		InvoiceID:            original.InvoiceID,
		Method:               original.Method,
		Status:               result.Status,
		Amount:               req.Amount.Neg(),
		CurrencyCode:         original.CurrencyCode,
		TransactionDate:      now,
		GatewayTransactionID: result.GatewayTransactionID,
		GatewayResponse:      result.Raw,
		ErrorMessage:         result.ErrorMessage,
		Notes:                notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	if err := s.savePaymentWithRetry(ctx, refundRow); err != nil {
		logger.Error("Failed to persist refund row", slog.String("transaction_code", refundRow.TransactionCode), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to persist refund %s: %w", refundRow.TransactionCode, err)
	}

	s.auditSvc.Record(ctx, ledgerEntityName, refundRow.TransactionID, "REFUND_PAYMENT", actorID, original.TransactionCode, string(refundRow.Status))

	logger.Info("Refund recorded",
		slog.String("transaction_code", refundRow.TransactionCode),
		slog.String("original_code", original.TransactionCode),
		slog.String("amount", refundRow.Amount.String()))

	return &refundRow, nil
}

// ReconcilePayment marks a row reconciled after manual statement matching.
// Only COMPLETED and PENDING_RECONCILIATION rows may be reconciled; forcing
// RECONCILED onto a FAILED or PENDING row would silently rewrite its meaning.
func (s *paymentService) ReconcilePayment(ctx context.Context, transactionID string, reconciliationStatus string, actorID string) (*domain.PaymentTransaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if reconciliationStatus == "" {
		return nil, fmt.Errorf("%w: reconciliation status is required", apperrors.ErrValidation)
	}

	row, err := s.paymentRepo.FindPaymentByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}

	if row.Status != domain.StatusCompleted && row.Status != domain.StatusPendingReconciliation {
		return nil, fmt.Errorf("%w: transaction %s is %s", ErrReconcileNotAllowed, row.TransactionCode, row.Status)
	}

	now := time.Now().UTC()
	if err := s.paymentRepo.UpdateReconciliation(ctx, transactionID, reconciliationStatus, now, actorID); err != nil {
		logger.Error("Failed to update reconciliation", slog.String("transaction_id", transactionID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to reconcile transaction %s: %w", transactionID, err)
	}

	oldStatus := row.Status
	row.Status = domain.StatusReconciled
	row.ReconciliationStatus = reconciliationStatus
	row.ReconciliationDate = &now
	row.LastUpdatedAt = now
	row.LastUpdatedBy = actorID

	s.auditSvc.Record(ctx, ledgerEntityName, row.TransactionID, "RECONCILE_PAYMENT", actorID, string(oldStatus), string(domain.StatusReconciled))

	logger.Info("Payment reconciled",
		slog.String("transaction_code", row.TransactionCode),
		slog.String("reconciliation_status", reconciliationStatus))

	return row, nil
}

// ConfirmVNPayCallback applies a signed IPN callback. Completion of a
// redirect-based payment arrives here as a later, independent call.
func (s *paymentService) ConfirmVNPayCallback(ctx context.Context, params url.Values) (*domain.PaymentTransaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	gateway, err := s.router.Route(domain.MethodVNPay)
	if err != nil {
		return nil, err
	}
	verifier, ok := gateway.(gateways.CallbackVerifier)
	if !ok {
		return nil, ErrCallbackNotSupported
	}
	if !verifier.VerifyCallbackSignature(params) {
		logger.Warn("Rejected callback with bad signature")
		return nil, ErrCallbackSignature
	}

	txnRef := params.Get("vnp_TxnRef")
	if txnRef == "" {
		return nil, ErrCallbackMissingTxnRef
	}

	row, err := s.paymentRepo.FindPaymentByGatewayTransactionID(ctx, txnRef)
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction for callback ref %s: %w", txnRef, err)
	}

	newStatus := gateways.CallbackStatus(params.Get("vnp_ResponseCode"))
	if newStatus != row.Status {
		errMsg := ""
		if newStatus == domain.StatusFailed {
			errMsg = "vnpay reported response code " + params.Get("vnp_ResponseCode")
		}
		if err := s.applyStatusChange(ctx, row, newStatus, errMsg, "vnpay-ipn"); err != nil {
			return nil, err
		}
	}

	logger.Info("Callback applied", slog.String("transaction_code", row.TransactionCode), slog.String("status", string(row.Status)))
	return row, nil
}

// GetPaymentByID retrieves a ledger row by internal id.
func (s *paymentService) GetPaymentByID(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	row, err := s.paymentRepo.FindPaymentByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}
	return row, nil
}

// GetPaymentsByInvoice retrieves every ledger row for an invoice.
func (s *paymentService) GetPaymentsByInvoice(ctx context.Context, invoiceID string) ([]domain.PaymentTransaction, error) {
	rows, err := s.paymentRepo.FindPaymentsByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for invoice %s: %w", invoiceID, err)
	}
	return rows, nil
}

// GetPaymentsByStatus retrieves ledger rows in a given status.
func (s *paymentService) GetPaymentsByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.PaymentTransaction, error) {
	rows, err := s.paymentRepo.FindPaymentsByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions with status %s: %w", status, err)
	}
	return rows, nil
}

// ListPaymentsByDateRange retrieves a token-paginated page of ledger rows.
func (s *paymentService) ListPaymentsByDateRange(ctx context.Context, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, nextToken, err := s.paymentRepo.ListPaymentsByDateRange(ctx, params.From, params.To, limit, params.NextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions by date range: %w", err)
	}

	return &dto.ListPaymentsResponse{
		Payments:  dto.ToPaymentResponses(rows),
		NextToken: nextToken,
	}, nil
}

// GetInvoiceSettlement returns the derived net settlement position of an
// invoice: the signed sum over all rows that still count.
func (s *paymentService) GetInvoiceSettlement(ctx context.Context, invoiceID string) (*domain.InvoiceSettlement, error) {
	invoice, err := s.invoiceRepo.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice %s: %w", invoiceID, err)
	}

	net, err := s.paymentRepo.SumSettledAmountByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum settled amount for invoice %s: %w", invoiceID, err)
	}

	return &domain.InvoiceSettlement{
		InvoiceID:   invoice.InvoiceID,
		TotalOwed:   invoice.TotalOwed,
		NetSettled:  net,
		Outstanding: invoice.TotalOwed.Sub(net),
	}, nil
}

// callGateway invokes fn under the configured timeout and absorbs transport
// errors into a FAILED result so the attempt always reaches the ledger.
func (s *paymentService) callGateway(ctx context.Context, logger *slog.Logger, fn func(context.Context) (*gateways.Result, error)) *gateways.Result {
	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	result, err := fn(callCtx)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("gateway call timed out after %s", s.gatewayTimeout)
		}
		logger.Warn("Gateway call failed", slog.String("error", msg))
		return &gateways.Result{Status: domain.StatusFailed, ErrorMessage: msg}
	}
	return result
}

// savePaymentWithRetry inserts a ledger row, retrying once on transient
// failure; a charge outcome must never be lost to a single hiccup.
func (s *paymentService) savePaymentWithRetry(ctx context.Context, row domain.PaymentTransaction) error {
	err := s.paymentRepo.SavePayment(ctx, row)
	if err == nil || errors.Is(err, apperrors.ErrDuplicate) {
		return err
	}
	return s.paymentRepo.SavePayment(ctx, row)
}

// applyStatusChange persists a status transition and mirrors it onto the
// in-memory row.
func (s *paymentService) applyStatusChange(ctx context.Context, row *domain.PaymentTransaction, newStatus domain.PaymentStatus, errorMessage string, actorID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now().UTC()
	if err := s.paymentRepo.UpdatePaymentStatus(ctx, row.TransactionID, newStatus, errorMessage, actorID, now); err != nil {
		logger.Error("Failed to update transaction status",
			slog.String("transaction_id", row.TransactionID),
			slog.String("new_status", string(newStatus)),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to update status of transaction %s: %w", row.TransactionID, err)
	}

	oldStatus := row.Status
	row.Status = newStatus
	if errorMessage != "" || !newStatus.IsTerminalFailure() {
		// Mirrors the repository: success statuses drop any stale failure text.
		row.ErrorMessage = errorMessage
	}
	row.LastUpdatedAt = now
	row.LastUpdatedBy = actorID

	s.auditSvc.Record(ctx, ledgerEntityName, row.TransactionID, "STATUS_CHANGE", actorID, string(oldStatus), string(newStatus))

	logger.Info("Transaction status updated",
		slog.String("transaction_code", row.TransactionCode),
		slog.String("old_status", string(oldStatus)),
		slog.String("new_status", string(newStatus)))
	return nil
}
