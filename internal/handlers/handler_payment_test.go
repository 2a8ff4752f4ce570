package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openretail/pos_backoffice/internal/apperrors"
	"github.com/openretail/pos_backoffice/internal/core/domain"
	portssvc "github.com/openretail/pos_backoffice/internal/core/ports/services"
	"github.com/openretail/pos_backoffice/internal/core/services"
	"github.com/openretail/pos_backoffice/internal/dto"
	"github.com/openretail/pos_backoffice/internal/gateways"
	"github.com/openretail/pos_backoffice/internal/handlers"
	"github.com/openretail/pos_backoffice/internal/middleware"
)

// --- Mock PaymentService ---
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) ProcessPayment(ctx context.Context, req dto.ProcessPaymentRequest, actorID string) (*dto.ProcessPaymentResponse, error) {
	args := m.Called(ctx, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ProcessPaymentResponse), args.Error(1)
}
func (m *MockPaymentService) VerifyPayment(ctx context.Context, gatewayTransactionID string, actorID string) (*domain.PaymentTransaction, error) {
	args := m.Called(ctx, gatewayTransactionID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentTransaction), args.Error(1)
}
func (m *MockPaymentService) RefundPayment(ctx context.Context, req dto.RefundRequest, actorID string) (*domain.PaymentTransaction, error) {
	args := m.Called(ctx, req, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentTransaction), args.Error(1)
}
func (m *MockPaymentService) ReconcilePayment(ctx context.Context, transactionID string, reconciliationStatus string, actorID string) (*domain.PaymentTransaction, error) {
	args := m.Called(ctx, transactionID, reconciliationStatus, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentTransaction), args.Error(1)
}
func (m *MockPaymentService) ConfirmVNPayCallback(ctx context.Context, params url.Values) (*domain.PaymentTransaction, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentTransaction), args.Error(1)
}
func (m *MockPaymentService) GetPaymentByID(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentTransaction), args.Error(1)
}
func (m *MockPaymentService) GetPaymentsByInvoice(ctx context.Context, invoiceID string) ([]domain.PaymentTransaction, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentTransaction), args.Error(1)
}
func (m *MockPaymentService) GetPaymentsByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.PaymentTransaction, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PaymentTransaction), args.Error(1)
}
func (m *MockPaymentService) ListPaymentsByDateRange(ctx context.Context, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListPaymentsResponse), args.Error(1)
}
func (m *MockPaymentService) GetInvoiceSettlement(ctx context.Context, invoiceID string) (*domain.InvoiceSettlement, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvoiceSettlement), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.PaymentSvcFacade = (*MockPaymentService)(nil)

// --- Test Suite ---
type PaymentHandlerTestSuite struct {
	suite.Suite
	router             *gin.Engine
	mockPaymentService *MockPaymentService
	jwtSecret          string
	jwtIssuer          string
	employeeID         string
}

// generateTestToken creates a dummy JWT for testing.
func (suite *PaymentHandlerTestSuite) generateTestToken(employeeID string) string {
	return suite.generateTestTokenWithIssuer(employeeID, suite.jwtIssuer)
}

func (suite *PaymentHandlerTestSuite) generateTestTokenWithIssuer(employeeID string, issuer string) string {
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   employeeID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

func (suite *PaymentHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.jwtSecret = "test-secret-key-that-is-long-enough"
	suite.jwtIssuer = "pos-backoffice-test"
	suite.employeeID = uuid.NewString()

	suite.mockPaymentService = new(MockPaymentService)

	// Mimic production wiring: the IPN route is outside the authenticated group.
	handlers.RegisterVNPayIPNRoute(suite.router, suite.mockPaymentService)
	v1 := suite.router.Group("/api/v1", middleware.AuthMiddleware(suite.jwtSecret, suite.jwtIssuer))
	handlers.RegisterPaymentRoutes(v1, suite.mockPaymentService)
}

// doJSON performs an authenticated request with an optional JSON body.
func (suite *PaymentHandlerTestSuite) doJSON(method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, target, &buf)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+suite.generateTestToken(suite.employeeID))

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *PaymentHandlerTestSuite) errorBody(w *httptest.ResponseRecorder) string {
	var body map[string]string
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

// --- Test Cases ---

func (suite *PaymentHandlerTestSuite) TestProcessPayment_Success() {
	invoiceID := uuid.NewString()
	expected := &dto.ProcessPaymentResponse{
		TransactionID:   uuid.NewString(),
		TransactionCode: "PAY-20260901120000-0AF31B2C",
		InvoiceID:       invoiceID,
		Method:          string(domain.MethodCash),
		Status:          string(domain.StatusCompleted),
		Amount:          decimal.NewFromInt(50000),
	}

	suite.mockPaymentService.On("ProcessPayment",
		mock.Anything,
		mock.MatchedBy(func(req dto.ProcessPaymentRequest) bool {
			return req.InvoiceID == invoiceID &&
				req.Method == domain.MethodCash &&
				req.Amount.Equal(decimal.NewFromInt(50000)) &&
				req.CustomerIP != "" // filled from the connection by the handler
		}),
		suite.employeeID,
	).Return(expected, nil).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/payments", dto.ProcessPaymentRequest{
		InvoiceID: invoiceID,
		Method:    domain.MethodCash,
		Amount:    decimal.NewFromInt(50000),
	})

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.ProcessPaymentResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(expected.TransactionID, resp.TransactionID)
	suite.Equal(expected.TransactionCode, resp.TransactionCode)
	suite.Equal(string(domain.StatusCompleted), resp.Status)

	suite.mockPaymentService.AssertExpectations(suite.T())
}

func (suite *PaymentHandlerTestSuite) TestProcessPayment_Unauthorized() {
	body, _ := json.Marshal(dto.ProcessPaymentRequest{
		InvoiceID: uuid.NewString(),
		Method:    domain.MethodCash,
		Amount:    decimal.NewFromInt(50000),
	})
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	// No Authorization header.

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.mockPaymentService.AssertNotCalled(suite.T(), "ProcessPayment")
}

func (suite *PaymentHandlerTestSuite) TestProcessPayment_WrongIssuerRejected() {
	body, _ := json.Marshal(dto.ProcessPaymentRequest{
		InvoiceID: uuid.NewString(),
		Method:    domain.MethodCash,
		Amount:    decimal.NewFromInt(50000),
	})
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	token := suite.generateTestTokenWithIssuer(suite.employeeID, "some-other-service")
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("Token issuer not accepted", suite.errorBody(w))
	suite.mockPaymentService.AssertNotCalled(suite.T(), "ProcessPayment")
}

func (suite *PaymentHandlerTestSuite) TestProcessPayment_InvalidBody() {
	// Method outside the accepted set fails binding before the service is called.
	w := suite.doJSON(http.MethodPost, "/api/v1/payments", gin.H{
		"invoiceID": uuid.NewString(),
		"method":    "APPLE_PAY",
		"amount":    "50000",
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("Invalid request format", suite.errorBody(w))
	suite.mockPaymentService.AssertNotCalled(suite.T(), "ProcessPayment")
}

func (suite *PaymentHandlerTestSuite) TestProcessPayment_InvoiceNotFound() {
	suite.mockPaymentService.On("ProcessPayment", mock.Anything, mock.Anything, suite.employeeID).
		Return(nil, apperrors.ErrNotFound).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/payments", dto.ProcessPaymentRequest{
		InvoiceID: uuid.NewString(),
		Method:    domain.MethodVisa,
		Amount:    decimal.NewFromInt(50000),
		CardLast4: "4242",
	})

	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("Invoice not found", suite.errorBody(w))
}

func (suite *PaymentHandlerTestSuite) TestProcessPayment_AmountMismatch() {
	suite.mockPaymentService.On("ProcessPayment", mock.Anything, mock.Anything, suite.employeeID).
		Return(nil, services.ErrAmountMismatch).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/payments", dto.ProcessPaymentRequest{
		InvoiceID: uuid.NewString(),
		Method:    domain.MethodCash,
		Amount:    decimal.NewFromInt(40000),
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal(services.ErrAmountMismatch.Error(), suite.errorBody(w))
}

func (suite *PaymentHandlerTestSuite) TestProcessPayment_AlreadyPaidConflict() {
	suite.mockPaymentService.On("ProcessPayment", mock.Anything, mock.Anything, suite.employeeID).
		Return(nil, services.ErrInvoiceAlreadyPaid).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/payments", dto.ProcessPaymentRequest{
		InvoiceID: uuid.NewString(),
		Method:    domain.MethodCash,
		Amount:    decimal.NewFromInt(50000),
	})

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *PaymentHandlerTestSuite) TestProcessPayment_InProgressConflict() {
	suite.mockPaymentService.On("ProcessPayment", mock.Anything, mock.Anything, suite.employeeID).
		Return(nil, services.ErrPaymentInProgress).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/payments", dto.ProcessPaymentRequest{
		InvoiceID: uuid.NewString(),
		Method:    domain.MethodCash,
		Amount:    decimal.NewFromInt(50000),
	})

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *PaymentHandlerTestSuite) TestVerifyPayment_Success() {
	gatewayTxnID := "VNP-13863527"
	row := &domain.PaymentTransaction{
		TransactionID:        uuid.NewString(),
		TransactionCode:      "PAY-20260901120000-0AF31B2C",
		InvoiceID:            uuid.NewString(),
		Method:               domain.MethodVNPay,
		Status:               domain.StatusCompleted,
		Amount:               decimal.NewFromInt(50000),
		CurrencyCode:         "VND",
		GatewayTransactionID: gatewayTxnID,
	}

	suite.mockPaymentService.On("VerifyPayment", mock.Anything, gatewayTxnID, suite.employeeID).
		Return(row, nil).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/payments/verify/"+gatewayTxnID, nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.PaymentResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(row.TransactionID, resp.TransactionID)
	suite.Equal(string(domain.StatusCompleted), resp.Status)
}

func (suite *PaymentHandlerTestSuite) TestRefundPayment_Success() {
	refundRow := &domain.PaymentTransaction{
		TransactionID:   uuid.NewString(),
		TransactionCode: "PAY-20260901130000-1B2C3D4E",
		InvoiceID:       uuid.NewString(),
		Method:          domain.MethodVisa,
		Status:          domain.StatusCompleted,
		Amount:          decimal.NewFromInt(-20000),
		CurrencyCode:    "VND",
		Notes:           "Refund of PAY-20260901120000-0AF31B2C: damaged item",
	}

	suite.mockPaymentService.On("RefundPayment",
		mock.Anything,
		mock.MatchedBy(func(req dto.RefundRequest) bool {
			return req.GatewayTransactionID == "VIS-1234" && req.Amount.Equal(decimal.NewFromInt(20000))
		}),
		suite.employeeID,
	).Return(refundRow, nil).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/payments/refund", dto.RefundRequest{
		GatewayTransactionID: "VIS-1234",
		Amount:               decimal.NewFromInt(20000),
		Reason:               "damaged item",
	})

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.PaymentResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Amount.Equal(decimal.NewFromInt(-20000)))
}

func (suite *PaymentHandlerTestSuite) TestRefundPayment_NotAllowedConflict() {
	suite.mockPaymentService.On("RefundPayment", mock.Anything, mock.Anything, suite.employeeID).
		Return(nil, services.ErrRefundNotAllowed).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/payments/refund", dto.RefundRequest{
		GatewayTransactionID: "VIS-1234",
		Amount:               decimal.NewFromInt(20000),
	})

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *PaymentHandlerTestSuite) TestRefundPayment_GatewayRejection() {
	suite.mockPaymentService.On("RefundPayment", mock.Anything, mock.Anything, suite.employeeID).
		Return(nil, fmt.Errorf("refund VNP-123: %w", gateways.ErrRefundRejected)).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/payments/refund", dto.RefundRequest{
		GatewayTransactionID: "VNP-123",
		Amount:               decimal.NewFromInt(20000),
	})

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *PaymentHandlerTestSuite) TestReconcilePayment_Success() {
	transactionID := uuid.NewString()
	now := time.Now().UTC()
	row := &domain.PaymentTransaction{
		TransactionID:        transactionID,
		Status:               domain.StatusReconciled,
		Amount:               decimal.NewFromInt(50000),
		ReconciliationStatus: "MATCHED",
		ReconciliationDate:   &now,
	}

	suite.mockPaymentService.On("ReconcilePayment", mock.Anything, transactionID, "MATCHED", suite.employeeID).
		Return(row, nil).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/payments/"+transactionID+"/reconcile", dto.ReconcileRequest{
		ReconciliationStatus: "MATCHED",
	})

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.PaymentResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(string(domain.StatusReconciled), resp.Status)
	suite.Equal("MATCHED", resp.ReconciliationStatus)
}

func (suite *PaymentHandlerTestSuite) TestReconcilePayment_NotAllowedConflict() {
	transactionID := uuid.NewString()
	suite.mockPaymentService.On("ReconcilePayment", mock.Anything, transactionID, "MATCHED", suite.employeeID).
		Return(nil, services.ErrReconcileNotAllowed).Once()

	w := suite.doJSON(http.MethodPost, "/api/v1/payments/"+transactionID+"/reconcile", dto.ReconcileRequest{
		ReconciliationStatus: "MATCHED",
	})

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *PaymentHandlerTestSuite) TestGetPayment_NotFound() {
	transactionID := uuid.NewString()
	suite.mockPaymentService.On("GetPaymentByID", mock.Anything, transactionID).
		Return(nil, apperrors.ErrNotFound).Once()

	w := suite.doJSON(http.MethodGet, "/api/v1/payments/"+transactionID, nil)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("Transaction not found", suite.errorBody(w))
}

func (suite *PaymentHandlerTestSuite) TestListPaymentsByInvoice_Success() {
	invoiceID := uuid.NewString()
	rows := []domain.PaymentTransaction{
		{TransactionID: uuid.NewString(), InvoiceID: invoiceID, Amount: decimal.NewFromInt(50000), Status: domain.StatusCompleted},
		{TransactionID: uuid.NewString(), InvoiceID: invoiceID, Amount: decimal.NewFromInt(-20000), Status: domain.StatusCompleted},
	}

	suite.mockPaymentService.On("GetPaymentsByInvoice", mock.Anything, invoiceID).
		Return(rows, nil).Once()

	w := suite.doJSON(http.MethodGet, "/api/v1/invoices/"+invoiceID+"/payments", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListPaymentsResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Payments, 2)
	suite.Equal(rows[0].TransactionID, resp.Payments[0].TransactionID)
}

func (suite *PaymentHandlerTestSuite) TestGetInvoiceSettlement_Success() {
	invoiceID := uuid.NewString()
	settlement := &domain.InvoiceSettlement{
		InvoiceID:   invoiceID,
		TotalOwed:   decimal.NewFromInt(50000),
		NetSettled:  decimal.NewFromInt(30000),
		Outstanding: decimal.NewFromInt(20000),
	}

	suite.mockPaymentService.On("GetInvoiceSettlement", mock.Anything, invoiceID).
		Return(settlement, nil).Once()

	w := suite.doJSON(http.MethodGet, "/api/v1/invoices/"+invoiceID+"/settlement", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.SettlementResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Outstanding.Equal(decimal.NewFromInt(20000)))
}

func (suite *PaymentHandlerTestSuite) TestListPayments_StatusFilter() {
	rows := []domain.PaymentTransaction{
		{TransactionID: uuid.NewString(), Status: domain.StatusPendingReconciliation, Amount: decimal.NewFromInt(75000)},
	}

	suite.mockPaymentService.On("GetPaymentsByStatus", mock.Anything, domain.StatusPendingReconciliation).
		Return(rows, nil).Once()

	w := suite.doJSON(http.MethodGet, "/api/v1/payments?status=PENDING_RECONCILIATION", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListPaymentsResponse
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Payments, 1)
	suite.mockPaymentService.AssertNotCalled(suite.T(), "ListPaymentsByDateRange")
}

func (suite *PaymentHandlerTestSuite) TestListPayments_DateRange() {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	expected := &dto.ListPaymentsResponse{
		Payments: []dto.PaymentResponse{
			{TransactionID: uuid.NewString(), Status: string(domain.StatusCompleted), Amount: decimal.NewFromInt(50000)},
		},
	}

	suite.mockPaymentService.On("ListPaymentsByDateRange",
		mock.Anything,
		mock.MatchedBy(func(p dto.ListPaymentsParams) bool {
			return p.From.Equal(from) && p.To.Equal(to) && p.Limit == 10 && p.NextToken == nil
		}),
	).Return(expected, nil).Once()

	target := fmt.Sprintf("/api/v1/payments?from=%s&to=%s&limit=10",
		url.QueryEscape(from.Format(time.RFC3339)), url.QueryEscape(to.Format(time.RFC3339)))
	w := suite.doJSON(http.MethodGet, target, nil)

	suite.Equal(http.StatusOK, w.Code)
}

func (suite *PaymentHandlerTestSuite) TestListPayments_BadFromParam() {
	w := suite.doJSON(http.MethodGet, "/api/v1/payments?from=yesterday&to=today", nil)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockPaymentService.AssertNotCalled(suite.T(), "ListPaymentsByDateRange")
}

// --- VNPay IPN ---

func (suite *PaymentHandlerTestSuite) ipnRequest(query string) *httptest.ResponseRecorder {
	// No Authorization header: the IPN route is authenticated by its signature.
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/payments/vnpay/ipn?"+query, nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *PaymentHandlerTestSuite) ipnRspCode(w *httptest.ResponseRecorder) string {
	var body map[string]string
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body["RspCode"]
}

func (suite *PaymentHandlerTestSuite) TestVNPayIPN_Success() {
	row := &domain.PaymentTransaction{
		TransactionID: uuid.NewString(),
		Status:        domain.StatusCompleted,
		Amount:        decimal.NewFromInt(50000),
	}
	suite.mockPaymentService.On("ConfirmVNPayCallback",
		mock.Anything,
		mock.MatchedBy(func(params url.Values) bool {
			return params.Get("vnp_TxnRef") == "PAY-20260901120000-0AF31B2C"
		}),
	).Return(row, nil).Once()

	w := suite.ipnRequest("vnp_TxnRef=PAY-20260901120000-0AF31B2C&vnp_ResponseCode=00&vnp_SecureHash=abc")

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("00", suite.ipnRspCode(w))
}

func (suite *PaymentHandlerTestSuite) TestVNPayIPN_BadSignature() {
	suite.mockPaymentService.On("ConfirmVNPayCallback", mock.Anything, mock.Anything).
		Return(nil, services.ErrCallbackSignature).Once()

	w := suite.ipnRequest("vnp_TxnRef=PAY-X&vnp_SecureHash=tampered")

	suite.Equal(http.StatusOK, w.Code, "IPN replies are always HTTP 200")
	suite.Equal("97", suite.ipnRspCode(w))
}

func (suite *PaymentHandlerTestSuite) TestVNPayIPN_UnknownOrder() {
	suite.mockPaymentService.On("ConfirmVNPayCallback", mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrNotFound).Once()

	w := suite.ipnRequest("vnp_TxnRef=PAY-UNKNOWN&vnp_SecureHash=abc")

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("01", suite.ipnRspCode(w))
}

func (suite *PaymentHandlerTestSuite) TestVNPayIPN_InternalError() {
	suite.mockPaymentService.On("ConfirmVNPayCallback", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("update status: connection refused")).Once()

	w := suite.ipnRequest("vnp_TxnRef=PAY-X&vnp_SecureHash=abc")

	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("99", suite.ipnRspCode(w))
}

// --- Run Test Suite ---
func TestPaymentHandler(t *testing.T) {
	suite.Run(t, new(PaymentHandlerTestSuite))
}
