// Package paypal implements the payment gateway against the PayPal v2
// checkout API. Only the order create, capture and lookup calls the
// reconciliation bridge needs are covered.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/arroyoseco/marketplace/internal/domain/payment"
)

var _ payment.Gateway = (*Client)(nil)

// Client calls PayPal with client-credentials auth. Access tokens are
// cached until shortly before they expire.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Config carries the PayPal connection settings.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// NewClient returns a Client for the given environment. The per-call
// timeout bounds every HTTP round trip, token fetches included.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         &http.Client{Timeout: timeout},
	}
}

type amountBody struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type itemBody struct {
	Name       string     `json:"name"`
	UnitAmount amountBody `json:"unit_amount"`
	Quantity   string     `json:"quantity"`
}

type purchaseUnit struct {
	Amount struct {
		CurrencyCode string `json:"currency_code"`
		Value        string `json:"value"`
		Breakdown    *struct {
			ItemTotal amountBody `json:"item_total"`
		} `json:"breakdown,omitempty"`
	} `json:"amount"`
	Items []itemBody `json:"items,omitempty"`
	Payments *struct {
		Captures []struct {
			ID     string     `json:"id"`
			Status string     `json:"status"`
			Amount amountBody `json:"amount"`
		} `json:"captures"`
	} `json:"payments,omitempty"`
}

type orderBody struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string, items []payment.GatewayItem) (*payment.GatewayOrder, error) {
	unit := purchaseUnit{}
	unit.Amount.CurrencyCode = currency
	unit.Amount.Value = amount.StringFixed(2)
	if len(items) > 0 {
		unit.Amount.Breakdown = &struct {
			ItemTotal amountBody `json:"item_total"`
		}{ItemTotal: amountBody{CurrencyCode: currency, Value: amount.StringFixed(2)}}
		for _, it := range items {
			unit.Items = append(unit.Items, itemBody{
				Name:       it.Name,
				UnitAmount: amountBody{CurrencyCode: currency, Value: it.UnitPrice.StringFixed(2)},
				Quantity:   strconv.Itoa(it.Quantity),
			})
		}
	}
	req := struct {
		Intent        string         `json:"intent"`
		PurchaseUnits []purchaseUnit `json:"purchase_units"`
	}{
		Intent:        "CAPTURE",
		PurchaseUnits: []purchaseUnit{unit},
	}

	var resp orderBody
	if err := c.call(ctx, http.MethodPost, "/v2/checkout/orders", req, &resp); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return &payment.GatewayOrder{ID: resp.ID, Status: resp.Status}, nil
}

func (c *Client) Capture(ctx context.Context, gatewayOrderID string) (*payment.CaptureResult, error) {
	var resp orderBody
	path := "/v2/checkout/orders/" + url.PathEscape(gatewayOrderID) + "/capture"
	if err := c.call(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return nil, errors.Wrap(err, "capture order")
	}

	res := &payment.CaptureResult{Status: resp.Status}
	if len(resp.PurchaseUnits) > 0 && resp.PurchaseUnits[0].Payments != nil &&
		len(resp.PurchaseUnits[0].Payments.Captures) > 0 {
		captured := resp.PurchaseUnits[0].Payments.Captures[0]
		res.TransactionID = captured.ID
		res.Status = captured.Status
		res.Currency = captured.Amount.CurrencyCode
		amount, err := decimal.NewFromString(captured.Amount.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "parse capture amount %q", captured.Amount.Value)
		}
		res.Amount = amount
	}
	return res, nil
}

func (c *Client) GetOrder(ctx context.Context, gatewayOrderID string) (*payment.GatewayOrder, error) {
	var resp orderBody
	path := "/v2/checkout/orders/" + url.PathEscape(gatewayOrderID)
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return &payment.GatewayOrder{ID: resp.ID, Status: resp.Status}, nil
}

// call performs one authenticated JSON round trip.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &payment.GatewayError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", form)
	if err != nil {
		return "", errors.Wrap(err, "build token request")
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", mapTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &payment.GatewayError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", errors.Wrap(err, "decode token")
	}

	c.token = token.AccessToken
	// Refresh a minute early so an in-flight call never carries a token
	// that expires mid-request.
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func mapTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return payment.ErrGatewayTimeout
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return payment.ErrGatewayTimeout
	}
	return errors.Wrap(err, "gateway request")
}
