// Package payment talks to the external prepaid payment gateway.
package payment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrGateway is returned when the gateway answers but refuses the request.
var ErrGateway = errors.New("payment gateway rejected request")

type Config struct {
	BaseURL    string
	TerminalID string
	Password   string
	Currency   string
	SuccessURL string
	FailURL    string
	Timeout    time.Duration
}

// Client signs and sends gateway requests.  Every request carries a
// token: the sha256 of the values of all request parameters, plus the
// terminal id and password, concatenated in key order.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "VND"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

type InitRequest struct {
	TerminalID  string `json:"terminalId"`
	Token       string `json:"token"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	SuccessURL  string `json:"successURL,omitempty"`
	FailURL     string `json:"failURL,omitempty"`
}

type InitResponse struct {
	Success    bool   `json:"success"`
	PaymentID  string `json:"paymentId"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	Amount     int64  `json:"amount"`
	PaymentURL string `json:"paymentURL"`
	Message    string `json:"message,omitempty"`
}

type CheckRequest struct {
	TerminalID string `json:"terminalId"`
	Token      string `json:"token"`
	PaymentID  string `json:"paymentId"`
}

type CheckResponse struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

func (c *Client) token(params map[string]string) string {
	params["TerminalId"] = c.cfg.TerminalID
	params["Password"] = c.cfg.Password

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(params[k])
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// InitPayment starts a payment of amount for orderID and returns the
// gateway's payment id and the URL the customer pays at.
func (c *Client) InitPayment(ctx context.Context, amount int64, orderID, description string) (*InitResponse, error) {
	if amount <= 0 {
		return nil, errors.Newf("payment amount must be positive, got %d", amount)
	}
	req := InitRequest{
		TerminalID: c.cfg.TerminalID,
		Token: c.token(map[string]string{
			"Amount":   strconv.FormatInt(amount, 10),
			"Currency": c.cfg.Currency,
			"OrderId":  orderID,
		}),
		Amount:      amount,
		OrderID:     orderID,
		Currency:    c.cfg.Currency,
		Description: description,
		SuccessURL:  c.cfg.SuccessURL,
		FailURL:     c.cfg.FailURL,
	}
	var out InitResponse
	if err := c.post(ctx, "/api/v1/payments/init", req, &out); err != nil {
		return nil, errors.Wrapf(err, "init payment for order %s", orderID)
	}
	if !out.Success || out.PaymentID == "" {
		return nil, errors.Wrapf(ErrGateway, "init payment for order %s: %s", orderID, out.Message)
	}
	return &out, nil
}

// CheckPayment returns the gateway status of paymentID.
func (c *Client) CheckPayment(ctx context.Context, paymentID string) (*CheckResponse, error) {
	req := CheckRequest{
		TerminalID: c.cfg.TerminalID,
		Token:      c.token(map[string]string{"PaymentId": paymentID}),
		PaymentID:  paymentID,
	}
	var out CheckResponse
	if err := c.post(ctx, "/api/v1/payments/check", req, &out); err != nil {
		return nil, errors.Wrapf(err, "check payment %s", paymentID)
	}
	if !out.Success {
		return nil, errors.Wrapf(ErrGateway, "check payment %s", paymentID)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return errors.Newf("gateway status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode response (status %d)", resp.StatusCode)
	}
	return nil
}
