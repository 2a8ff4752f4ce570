package gateways

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openretail/pos_backoffice/internal/core/domain"
)

func testVNPayGateway(apiURL string) PaymentGateway {
	return NewVNPayGateway(VNPayConfig{
		TmnCode:    "TESTTMN",
		HashSecret: "testsecret",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		APIURL:     apiURL,
		ReturnURL:  "https://pos.example.com/payments/return",
	})
}

func TestVNPayGateway_ChargeBuildsSignedPayURL(t *testing.T) {
	gw := testVNPayGateway("")

	res, err := gw.Charge(context.Background(), ChargeRequest{
		TransactionCode: "PAY-20260115103000-ABCD1234",
		Amount:          decimal.NewFromInt(50000),
		OrderInfo:       "Invoice INV-1",
		CustomerIP:      "10.0.0.5",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, res.Status)
	assert.True(t, res.RequiresConfirmation)
	assert.Equal(t, "PAY-20260115103000-ABCD1234", res.GatewayTransactionID)

	parsed, err := url.Parse(res.PaymentURL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "PAY-20260115103000-ABCD1234", q.Get("vnp_TxnRef"))
	// Amount is sent in minor units.
	assert.Equal(t, "5000000", q.Get("vnp_Amount"))
	assert.Equal(t, "TESTTMN", q.Get("vnp_TmnCode"))
	assert.NotEmpty(t, q.Get("vnp_SecureHash"))
}

func TestVNPayGateway_CallbackSignatureRoundTrip(t *testing.T) {
	gw := testVNPayGateway("")
	verifier, ok := gw.(CallbackVerifier)
	require.True(t, ok)

	res, err := gw.Charge(context.Background(), ChargeRequest{
		TransactionCode: "PAY-20260115103000-ABCD1234",
		Amount:          decimal.NewFromInt(50000),
		OrderInfo:       "Invoice INV-1",
	})
	require.NoError(t, err)

	// The pay URL query is signed with the same scheme the IPN uses, so it
	// serves as a self-consistent signature fixture.
	parsed, err := url.Parse(res.PaymentURL)
	require.NoError(t, err)
	params := parsed.Query()

	assert.True(t, verifier.VerifyCallbackSignature(params))

	params.Set("vnp_Amount", "9900000")
	assert.False(t, verifier.VerifyCallbackSignature(params), "tampered params must fail verification")

	params.Del("vnp_SecureHash")
	assert.False(t, verifier.VerifyCallbackSignature(params), "missing hash must fail verification")
}

func TestVNPayGateway_VerifyQueriesBackend(t *testing.T) {
	var gotPayload map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"vnp_ResponseCode":      "00",
			"vnp_TransactionStatus": "00",
			"vnp_TxnRef":            gotPayload["vnp_TxnRef"],
		})
	}))
	defer server.Close()

	gw := testVNPayGateway(server.URL)
	res, err := gw.Verify(context.Background(), "PAY-20260115103000-ABCD1234")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "querydr", gotPayload["vnp_Command"])
	assert.Equal(t, "PAY-20260115103000-ABCD1234", gotPayload["vnp_TxnRef"])
	assert.NotEmpty(t, gotPayload["vnp_SecureHash"])
	assert.NotEmpty(t, res.Raw)
}

func TestVNPayGateway_VerifyMapsFailureCodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"vnp_ResponseCode":      "24",
			"vnp_TransactionStatus": "02",
		})
	}))
	defer server.Close()

	gw := testVNPayGateway(server.URL)
	res, err := gw.Verify(context.Background(), "PAY-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, res.Status)
	assert.NotEmpty(t, res.ErrorMessage)
}

func TestVNPayGateway_RefundSuccess(t *testing.T) {
	var gotPayload map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"vnp_ResponseCode":  "00",
			"vnp_TransactionNo": "14226112",
		})
	}))
	defer server.Close()

	gw := testVNPayGateway(server.URL)
	res, err := gw.Refund(context.Background(), "PAY-20260115103000-ABCD1234", decimal.NewFromInt(20000))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "14226112", res.GatewayTransactionID)
	assert.Equal(t, "refund", gotPayload["vnp_Command"])
	assert.Equal(t, "2000000", gotPayload["vnp_Amount"])
}

func TestVNPayGateway_RefundRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"vnp_ResponseCode": "91",
			"vnp_Message":      "Transaction not found",
		})
	}))
	defer server.Close()

	gw := testVNPayGateway(server.URL)
	_, err := gw.Refund(context.Background(), "PAY-1", decimal.NewFromInt(20000))
	assert.ErrorIs(t, err, ErrRefundRejected)
}

func TestCallbackStatus(t *testing.T) {
	assert.Equal(t, domain.StatusCompleted, CallbackStatus("00"))
	assert.Equal(t, domain.StatusCancelled, CallbackStatus("24"))
	assert.Equal(t, domain.StatusFailed, CallbackStatus("99"))
}
