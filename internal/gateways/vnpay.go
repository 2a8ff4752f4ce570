package gateways

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openretail/pos_backoffice/internal/core/domain"
	"github.com/openretail/pos_backoffice/internal/utils"
)

const (
	vnpVersion    = "2.1.0"
	vnpDateFormat = "20060102150405"
)

// CallbackVerifier is implemented by gateways whose completion arrives
// out-of-band through a signed callback.
type CallbackVerifier interface {
	VerifyCallbackSignature(params url.Values) bool
}

// VNPayConfig holds the merchant credentials and endpoints for the VNPay
// redirect gateway.
type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	PayURL     string // Hosted payment page, e.g. https://sandbox.vnpayment.vn/paymentv2/vpcpay.html
	APIURL     string // Merchant API for querydr/refund
	ReturnURL  string // Where the customer lands after paying
	Timeout    time.Duration
}

// vnpayGateway implements the redirect-based wallet flow: Charge only builds
// a signed payment URL, the actual outcome arrives later through Verify or
// the IPN callback.
type vnpayGateway struct {
	cfg    VNPayConfig
	client *http.Client
}

// NewVNPayGateway creates the VNPay gateway. The HTTP client carries the
// configured timeout so a hanging backend can never block a caller
// indefinitely.
func NewVNPayGateway(cfg VNPayConfig) PaymentGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &vnpayGateway{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

var _ PaymentGateway = (*vnpayGateway)(nil)

func (g *vnpayGateway) Supports(method domain.PaymentMethod) bool {
	return method == domain.MethodVNPay
}

func (g *vnpayGateway) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	now := time.Now()
	params := url.Values{}
	params.Set("vnp_Version", vnpVersion)
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", g.cfg.TmnCode)
	// VNPay expects the amount in minor units.
	params.Set("vnp_Amount", req.Amount.Mul(decimal.NewFromInt(100)).StringFixed(0))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_TxnRef", req.TransactionCode)
	params.Set("vnp_OrderInfo", req.OrderInfo)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_ReturnUrl", g.cfg.ReturnURL)
	ip := req.CustomerIP
	if ip == "" {
		ip = "127.0.0.1"
	}
	params.Set("vnp_IpAddr", ip)
	params.Set("vnp_CreateDate", now.Format(vnpDateFormat))
	params.Set("vnp_ExpireDate", now.Add(15*time.Minute).Format(vnpDateFormat))

	signed := g.signQuery(params)
	payURL := g.cfg.PayURL + "?" + signed

	raw, _ := json.Marshal(map[string]string{
		"vnp_TxnRef":     req.TransactionCode,
		"vnp_CreateDate": now.Format(vnpDateFormat),
		"paymentUrl":     payURL,
	})
	return &Result{
		Status: domain.StatusPending,
		// The TxnRef is the correlation id for querydr, refund and the IPN.
		GatewayTransactionID: req.TransactionCode,
		PaymentURL:           payURL,
		RedirectURL:          payURL,
		QRCode:               payURL,
		RequiresConfirmation: true,
		Raw:                  string(raw),
	}, nil
}

func (g *vnpayGateway) Verify(ctx context.Context, gatewayTransactionID string) (*Result, error) {
	now := time.Now()
	requestID := utils.RandomHex(16)
	orderInfo := "Query transaction " + gatewayTransactionID

	payload := map[string]string{
		"vnp_RequestId":       requestID,
		"vnp_Version":         vnpVersion,
		"vnp_Command":         "querydr",
		"vnp_TmnCode":         g.cfg.TmnCode,
		"vnp_TxnRef":          gatewayTransactionID,
		"vnp_OrderInfo":       orderInfo,
		"vnp_TransactionDate": now.Format(vnpDateFormat),
		"vnp_CreateDate":      now.Format(vnpDateFormat),
		"vnp_IpAddr":          "127.0.0.1",
	}
	payload["vnp_SecureHash"] = g.signFields(
		requestID, vnpVersion, "querydr", g.cfg.TmnCode, gatewayTransactionID,
		payload["vnp_TransactionDate"], payload["vnp_CreateDate"], payload["vnp_IpAddr"], orderInfo,
	)

	reply, raw, err := g.post(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("vnpay querydr call failed: %w", err)
	}

	return &Result{
		Status:               vnpayStatus(reply["vnp_ResponseCode"], reply["vnp_TransactionStatus"]),
		GatewayTransactionID: gatewayTransactionID,
		ErrorMessage:         vnpayErrorMessage(reply),
		Raw:                  raw,
	}, nil
}

func (g *vnpayGateway) Refund(ctx context.Context, gatewayTransactionID string, amount decimal.Decimal) (*Result, error) {
	now := time.Now()
	requestID := utils.RandomHex(16)
	orderInfo := "Refund transaction " + gatewayTransactionID
	amountStr := amount.Mul(decimal.NewFromInt(100)).StringFixed(0)

	payload := map[string]string{
		"vnp_RequestId":       requestID,
		"vnp_Version":         vnpVersion,
		"vnp_Command":         "refund",
		"vnp_TmnCode":         g.cfg.TmnCode,
		"vnp_TransactionType": "03", // partial refund; full refunds are a special case of it
		"vnp_TxnRef":          gatewayTransactionID,
		"vnp_Amount":          amountStr,
		"vnp_OrderInfo":       orderInfo,
		"vnp_TransactionDate": now.Format(vnpDateFormat),
		"vnp_CreateBy":        "pos_backoffice",
		"vnp_CreateDate":      now.Format(vnpDateFormat),
		"vnp_IpAddr":          "127.0.0.1",
	}
	payload["vnp_SecureHash"] = g.signFields(
		requestID, vnpVersion, "refund", g.cfg.TmnCode, payload["vnp_TransactionType"],
		gatewayTransactionID, amountStr, "", payload["vnp_TransactionDate"],
		payload["vnp_CreateBy"], payload["vnp_CreateDate"], payload["vnp_IpAddr"], orderInfo,
	)

	reply, raw, err := g.post(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("vnpay refund call failed: %w", err)
	}

	code := reply["vnp_ResponseCode"]
	if code != "00" {
		return nil, fmt.Errorf("%w: response code %s (%s)", ErrRefundRejected, code, reply["vnp_Message"])
	}

	return &Result{
		Status:               domain.StatusCompleted,
		GatewayTransactionID: reply["vnp_TransactionNo"],
		Raw:                  raw,
	}, nil
}

// VerifyCallbackSignature validates the vnp_SecureHash on IPN/return
// parameters against the merchant secret.
func (g *vnpayGateway) VerifyCallbackSignature(params url.Values) bool {
	received := params.Get("vnp_SecureHash")
	if received == "" {
		return false
	}
	filtered := url.Values{}
	for k, vs := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		for _, v := range vs {
			filtered.Add(k, v)
		}
	}
	expected := hmacSHA512(g.cfg.HashSecret, encodeSorted(filtered))
	return hmac.Equal([]byte(strings.ToLower(received)), []byte(expected))
}

// CallbackStatus maps an IPN response code onto a ledger status.
func CallbackStatus(responseCode string) domain.PaymentStatus {
	return vnpayStatus(responseCode, responseCode)
}

func (g *vnpayGateway) signQuery(params url.Values) string {
	encoded := encodeSorted(params)
	hash := hmacSHA512(g.cfg.HashSecret, encoded)
	return encoded + "&vnp_SecureHash=" + hash
}

// signFields signs the pipe-joined field list used by the merchant API
// (querydr and refund), per the VNPay checksum specification.
func (g *vnpayGateway) signFields(fields ...string) string {
	return hmacSHA512(g.cfg.HashSecret, strings.Join(fields, "|"))
}

func (g *vnpayGateway) post(ctx context.Context, payload map[string]string) (map[string]string, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	rawBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, string(rawBytes), fmt.Errorf("unexpected status %d from vnpay", resp.StatusCode)
	}

	reply := map[string]string{}
	if err := json.Unmarshal(rawBytes, &reply); err != nil {
		return nil, string(rawBytes), fmt.Errorf("malformed vnpay response: %w", err)
	}
	return reply, string(rawBytes), nil
}

func vnpayStatus(responseCode, transactionStatus string) domain.PaymentStatus {
	switch {
	case responseCode == "00" && transactionStatus == "00":
		return domain.StatusCompleted
	case responseCode == "24":
		return domain.StatusCancelled
	default:
		return domain.StatusFailed
	}
}

func vnpayErrorMessage(reply map[string]string) string {
	if reply["vnp_ResponseCode"] == "00" && reply["vnp_TransactionStatus"] == "00" {
		return ""
	}
	if msg := reply["vnp_Message"]; msg != "" {
		return msg
	}
	return "vnpay reported response code " + reply["vnp_ResponseCode"]
}

func encodeSorted(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range params[k] {
			pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(pairs, "&")
}

func hmacSHA512(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
