package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/openretail/pos_backoffice/internal/apperrors"
	"github.com/openretail/pos_backoffice/internal/core/domain"
	portsrepo "github.com/openretail/pos_backoffice/internal/core/ports/repositories"
	"github.com/openretail/pos_backoffice/internal/models"
	"github.com/openretail/pos_backoffice/internal/utils/mapping"
	"github.com/openretail/pos_backoffice/internal/utils/pagination"
)

const uniqueViolationCode = "23505"

const paymentColumns = `
	transaction_id, transaction_code, invoice_id, method, status, amount, currency_code,
	transaction_date, gateway_transaction_id, gateway_response, card_last4, card_type,
	qr_code, error_message, notes, reconciliation_date, reconciliation_status,
	created_at, created_by, last_updated_at, last_updated_by
`

type PgxPaymentRepository struct {
	BaseRepository
}

// newPgxPaymentRepository creates a new repository for payment ledger data.
func newPgxPaymentRepository(pool *pgxpool.Pool) portsrepo.PaymentRepositoryFacade {
	return &PgxPaymentRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxPaymentRepository implements portsrepo.PaymentRepositoryFacade
var _ portsrepo.PaymentRepositoryFacade = (*PgxPaymentRepository)(nil)

// SavePayment inserts a new ledger row. Rows are append-only: there is no
// UPDATE statement for amount, invoice_id, transaction_code or
// transaction_date anywhere in this repository.
func (r *PgxPaymentRepository) SavePayment(ctx context.Context, payment domain.PaymentTransaction) error {
	m := mapping.ToModelPayment(payment)
	query := `
		INSERT INTO payment_transactions (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.TransactionID,
		m.TransactionCode,
		m.InvoiceID,
		m.Method,
		m.Status,
		m.Amount,
		m.CurrencyCode,
		m.TransactionDate,
		nullIfEmpty(m.GatewayTransactionID),
		nullIfEmpty(m.GatewayResponse),
		nullIfEmpty(m.CardLast4),
		nullIfEmpty(m.CardType),
		nullIfEmpty(m.QRCode),
		nullIfEmpty(m.ErrorMessage),
		nullIfEmpty(m.Notes),
		m.ReconciliationDate,
		nullIfEmpty(m.ReconciliationStatus),
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			// The partial unique index on active charges (or a duplicated
			// transaction code) fired.
			return apperrors.ErrDuplicate
		}
		return apperrors.NewAppError(500, "failed to insert payment transaction "+m.TransactionCode, err)
	}
	return nil
}

// UpdatePaymentStatus changes the lifecycle status of a row. Financial
// fields are untouched.
func (r *PgxPaymentRepository) UpdatePaymentStatus(ctx context.Context, transactionID string, status domain.PaymentStatus, errorMessage string, updatedBy string, updatedAt time.Time) error {
	// Failure statuses keep the last message unless a new one is supplied; a
	// transition into a success status clears any stale failure text.
	errClause := `error_message = $3`
	if status.IsTerminalFailure() {
		errClause = `error_message = COALESCE($3, error_message)`
	}
	query := `
		UPDATE payment_transactions
		SET status = $2, ` + errClause + `, last_updated_at = $4, last_updated_by = $5
		WHERE transaction_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query, transactionID, string(status), nullIfEmpty(errorMessage), updatedAt, updatedBy)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update status of transaction "+transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateReconciliation marks a row reconciled with the outcome of manual
// statement matching.
func (r *PgxPaymentRepository) UpdateReconciliation(ctx context.Context, transactionID string, reconciliationStatus string, reconciliationDate time.Time, updatedBy string) error {
	query := `
		UPDATE payment_transactions
		SET status = $2, reconciliation_status = $3, reconciliation_date = $4, last_updated_at = $5, last_updated_by = $6
		WHERE transaction_id = $1;
	`
	tag, err := r.Pool.Exec(ctx, query,
		transactionID,
		string(domain.StatusReconciled),
		reconciliationStatus,
		reconciliationDate,
		reconciliationDate,
		updatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update reconciliation of transaction "+transactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindPaymentByID retrieves a ledger row by its internal identifier.
func (r *PgxPaymentRepository) FindPaymentByID(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE transaction_id = $1;`
	row := r.Pool.QueryRow(ctx, query, transactionID)
	m, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find transaction by ID "+transactionID, err)
	}
	t := mapping.ToDomainPayment(*m)
	return &t, nil
}

// FindPaymentByGatewayTransactionID retrieves a ledger row by the
// backend-assigned correlation id.
func (r *PgxPaymentRepository) FindPaymentByGatewayTransactionID(ctx context.Context, gatewayTransactionID string) (*domain.PaymentTransaction, error) {
	query := `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE gateway_transaction_id = $1;`
	row := r.Pool.QueryRow(ctx, query, gatewayTransactionID)
	m, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find transaction by gateway ID "+gatewayTransactionID, err)
	}
	t := mapping.ToDomainPayment(*m)
	return &t, nil
}

// FindPaymentsByInvoice retrieves every ledger row for an invoice, oldest
// first, so the invoice history reads as a journal.
func (r *PgxPaymentRepository) FindPaymentsByInvoice(ctx context.Context, invoiceID string) ([]domain.PaymentTransaction, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_transactions
		WHERE invoice_id = $1
		ORDER BY transaction_date ASC, created_at ASC;
	`
	rows, err := r.Pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query transactions for invoice "+invoiceID, err)
	}
	defer rows.Close()

	ms, err := scanPayments(rows)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan transaction rows for invoice "+invoiceID, err)
	}
	return mapping.ToDomainPaymentSlice(ms), nil
}

// FindPaymentsByStatus retrieves ledger rows in a given status, oldest first.
func (r *PgxPaymentRepository) FindPaymentsByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.PaymentTransaction, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payment_transactions
		WHERE status = $1
		ORDER BY transaction_date ASC, created_at ASC;
	`
	rows, err := r.Pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query transactions with status "+string(status), err)
	}
	defer rows.Close()

	ms, err := scanPayments(rows)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to scan transaction rows with status "+string(status), err)
	}
	return mapping.ToDomainPaymentSlice(ms), nil
}

// ListPaymentsByDateRange retrieves a token-paginated page of ledger rows
// whose transaction date falls inside [from, to).
func (r *PgxPaymentRepository) ListPaymentsByDateRange(ctx context.Context, from, to time.Time, limit int, nextToken *string) ([]domain.PaymentTransaction, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	baseQuery := `
		SELECT ` + paymentColumns + `
		FROM payment_transactions
		WHERE transaction_date >= $1 AND transaction_date < $2
	`
	// Ordering must be stable: transaction_date DESC with created_at DESC as
	// the tie-breaker.
	orderByClause := `ORDER BY transaction_date DESC, created_at DESC`

	var rows pgx.Rows
	var err error
	args := []interface{}{from, to}

	if nextToken != nil && *nextToken != "" {
		lastDate, lastCreatedAt, decodeErr := pagination.DecodeToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}

		cursorClause := `AND (transaction_date, created_at) < ($3, $4)`
		args = append(args, lastDate, lastCreatedAt)

		query := baseQuery + " " + cursorClause + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	} else {
		query := baseQuery + " " + orderByClause + " LIMIT $" + strconv.Itoa(len(args)+1) + ";"
		args = append(args, fetchLimit)
		rows, err = r.Pool.Query(ctx, query, args...)
	}

	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query transactions by date range", err)
	}
	defer rows.Close()

	ms, err := scanPayments(rows)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to scan transaction rows by date range", err)
	}

	var nextTokenVal *string
	if len(ms) > limit {
		last := ms[limit-1] // The actual last item of the current page
		token := pagination.EncodeToken(last.TransactionDate, last.CreatedAt)
		nextTokenVal = &token
		ms = ms[:limit]
	}

	return mapping.ToDomainPaymentSlice(ms), nextTokenVal, nil
}

// HasActiveCharge reports whether the invoice already has a positive row
// that is not FAILED or CANCELLED. Mirrors the partial unique index.
func (r *PgxPaymentRepository) HasActiveCharge(ctx context.Context, invoiceID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payment_transactions
			WHERE invoice_id = $1 AND amount > 0 AND status NOT IN ('FAILED', 'CANCELLED')
		);
	`
	var exists bool
	if err := r.Pool.QueryRow(ctx, query, invoiceID).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed to check active charge for invoice "+invoiceID, err)
	}
	return exists, nil
}

// SumSettledAmountByInvoice returns the signed amount total over all rows of
// an invoice that still count toward settlement.
func (r *PgxPaymentRepository) SumSettledAmountByInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payment_transactions
		WHERE invoice_id = $1 AND status NOT IN ('FAILED', 'CANCELLED');
	`
	var sum decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, invoiceID).Scan(&sum); err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum settled amount for invoice "+invoiceID, err)
	}
	return sum, nil
}

// scanPayment scans one ledger row, lifting nullable text columns out of
// sql.NullString.
func scanPayment(row pgx.Row) (*models.PaymentTransaction, error) {
	var m models.PaymentTransaction
	var gatewayTxnID, gatewayResponse, cardLast4, cardType sql.NullString
	var qrCode, errorMessage, notes, reconciliationStatus sql.NullString
	var reconciliationDate sql.NullTime

	err := row.Scan(
		&m.TransactionID,
		&m.TransactionCode,
		&m.InvoiceID,
		&m.Method,
		&m.Status,
		&m.Amount,
		&m.CurrencyCode,
		&m.TransactionDate,
		&gatewayTxnID,
		&gatewayResponse,
		&cardLast4,
		&cardType,
		&qrCode,
		&errorMessage,
		&notes,
		&reconciliationDate,
		&reconciliationStatus,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	m.GatewayTransactionID = gatewayTxnID.String
	m.GatewayResponse = gatewayResponse.String
	m.CardLast4 = cardLast4.String
	m.CardType = cardType.String
	m.QRCode = qrCode.String
	m.ErrorMessage = errorMessage.String
	m.Notes = notes.String
	m.ReconciliationStatus = reconciliationStatus.String
	if reconciliationDate.Valid {
		m.ReconciliationDate = &reconciliationDate.Time
	}
	return &m, nil
}

// scanPayments drains a result set of ledger rows.
func scanPayments(rows pgx.Rows) ([]models.PaymentTransaction, error) {
	ms := []models.PaymentTransaction{}
	for rows.Next() {
		m, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		ms = append(ms, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ms, nil
}

// nullIfEmpty maps the empty string to NULL for nullable text columns.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
