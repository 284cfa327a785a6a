// Package apiclient is the terminal's HTTP client for the backing store.
// It implements pos.Store and pos.PaymentGateway on top of the /v1 API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/pos"
)

var (
	// ErrUnauthorized is returned when credentials or tokens are rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned for 404 answers.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx answer of the server.
type APIError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server: %d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to one server as one operator.  Tokens are obtained by
// Login and rotated transparently when the access token expires.
type Client struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client

	mu      sync.Mutex
	access  string
	refresh string
	self    uint64
}

func New(baseURL, email, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var (
	_ pos.Store          = (*Client)(nil)
	_ pos.PaymentGateway = (*Client)(nil)
)

type tokenPart struct {
	Token string `json:"token"`
}

type authResp struct {
	Operator struct {
		ID    uint64 `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"operator"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Login exchanges the operator's credentials for a token pair.
func (c *Client) Login(ctx context.Context) error {
	var out authResp
	body := map[string]string{"email": c.email, "password": c.password}
	if err := c.send(ctx, http.MethodPost, "/v1/auth/login", "", body, &out); err != nil {
		return errors.Wrap(err, "login")
	}
	c.setTokens(out)
	return nil
}

// OperatorID is the id of the logged-in operator, 0 before Login.
func (c *Client) OperatorID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

// Logout revokes the refresh token.  The client must Login again.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refresh
	c.access, c.refresh = "", ""
	c.mu.Unlock()
	if refresh == "" {
		return nil
	}
	return c.send(ctx, http.MethodPost, "/v1/auth/logout", "", map[string]string{"refresh_token": refresh}, nil)
}

func (c *Client) setTokens(out authResp) {
	c.mu.Lock()
	c.access = out.Access.Token
	c.refresh = out.Refresh.Token
	c.self = out.Operator.ID
	c.mu.Unlock()
}

// renew rotates the token pair, falling back to a fresh login when the
// refresh token is gone.
func (c *Client) renew(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refresh
	c.mu.Unlock()
	if refresh != "" {
		var out authResp
		err := c.send(ctx, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": refresh}, &out)
		if err == nil {
			c.setTokens(out)
			return nil
		}
	}
	return c.Login(ctx)
}

// do sends an authenticated request, renewing the tokens once on 401.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token := c.token()
	if token == "" {
		if err := c.Login(ctx); err != nil {
			return err
		}
		token = c.token()
	}

	err := c.send(ctx, method, path, token, body, out)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}
	if rerr := c.renew(ctx); rerr != nil {
		return errors.CombineErrors(err, rerr)
	}
	return c.send(ctx, method, path, c.token(), body, out)
}

func (c *Client) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}

// decodeError turns an error answer into an *APIError marked with the
// sentinel the pos package branches on.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, apiErr) != nil || apiErr.Code == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	apiErr.Status = resp.StatusCode

	switch {
	case apiErr.Code == "seat_unavailable":
		return errors.Mark(apiErr, pos.ErrSeatConflict)
	case apiErr.Code == "stale_hold":
		return errors.Mark(apiErr, pos.ErrStaleState)
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.Mark(apiErr, ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return errors.Mark(apiErr, ErrNotFound)
	}
	return apiErr
}

type itemsResp[T any] struct {
	Items []T `json:"items"`
}

func (c *Client) Showtime(ctx context.Context, showtimeID uint64) (*model.Showtime, error) {
	var st model.Showtime
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/showtimes/%d", showtimeID), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Room(ctx context.Context, roomID uint64) (*model.Room, error) {
	var room model.Room
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/rooms/%d", roomID), nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) FoodDrinks(ctx context.Context) ([]model.FoodDrink, error) {
	var out itemsResp[model.FoodDrink]
	if err := c.do(ctx, http.MethodGet, "/v1/food-drinks", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) BookedSeats(ctx context.Context, showtimeID uint64) ([]model.BookedSeat, error) {
	var out itemsResp[model.BookedSeat]
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/showtimes/%d/booked-seats", showtimeID), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) HeldSeats(ctx context.Context, showtimeID uint64) ([]model.HeldSeat, error) {
	var out itemsResp[model.HeldSeat]
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/showtimes/%d/held-seats", showtimeID), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// HoldSeat answers an error marked pos.ErrSeatConflict when the seat is
// held or booked by anyone, this operator included.
func (c *Client) HoldSeat(ctx context.Context, showtimeID, seatID uint64) (model.HeldSeat, error) {
	var held model.HeldSeat
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/showtimes/%d/holds", showtimeID), map[string]uint64{"seat_id": seatID}, &held)
	return held, err
}

func (c *Client) ReleaseSeat(ctx context.Context, showtimeID, seatID uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/v1/showtimes/%d/holds/%d", showtimeID, seatID), nil, nil)
}

func (c *Client) CreateBooking(ctx context.Context, req model.BookingRequest) (*model.Booking, error) {
	var b model.Booking
	if err := c.do(ctx, http.MethodPost, "/v1/bookings", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// CheckoutPrepaid starts the payment of a PREPAID booking.  amount is
// not sent: the server charges the booking total it computed.
func (c *Client) CheckoutPrepaid(ctx context.Context, amount int64, bookingID uint64) (*model.PaymentCheckout, error) {
	var co model.PaymentCheckout
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/bookings/%d/checkout", bookingID), nil, &co); err != nil {
		return nil, err
	}
	if co.RedirectURL == "" {
		return nil, errors.Newf("booking %d: checkout returned no payment URL", bookingID)
	}
	return &co, nil
}
