package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitPayment_SignsRequest(t *testing.T) {
	var got InitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payments/init", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(InitResponse{
			Success: true, PaymentID: "p-1", OrderID: got.OrderID, PaymentURL: "https://pay.test/p-1",
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", TerminalID: "pos-1", Password: "secret", Currency: "VND"})
	res, err := c.InitPayment(context.Background(), 530000, "order-9", "booking 9")
	require.NoError(t, err)
	assert.Equal(t, "p-1", res.PaymentID)
	assert.Equal(t, "https://pay.test/p-1", res.PaymentURL)

	// Amount, Currency, OrderId, Password, TerminalId
	sum := sha256.Sum256([]byte("530000VNDorder-9secretpos-1"))
	assert.Equal(t, hex.EncodeToString(sum[:]), got.Token)
	assert.Equal(t, int64(530000), got.Amount)
}

func TestInitPayment_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(InitResponse{Success: false, Message: "terminal blocked"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.InitPayment(context.Background(), 1000, "o", "")
	assert.True(t, errors.Is(err, ErrGateway))
}

func TestInitPayment_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.InitPayment(context.Background(), 1000, "o", "")
	assert.Error(t, err)
}

func TestInitPayment_RejectsNonPositiveAmount(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://unused"})
	_, err := c.InitPayment(context.Background(), 0, "o", "")
	assert.Error(t, err)
}
