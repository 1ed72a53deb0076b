// Package apiclient is a typed client for the back-office REST API. Every
// request carries the bearer token handed to New; backend failures are
// decoded into APIError with the server's own message when one is present.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"etshd/backoffice/domain"
)

// Client talks to one API server with one token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a client. token may be empty for the auth endpoints.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetToken replaces the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

// APIError is a non-2xx response decoded into the backend's error contract:
// either a plain message or field-keyed validation errors.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + e.Fields[k]
		}
		return strings.Join(parts, "; ")
	}
	return e.Message
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Message = payload.Message
		apiErr.Fields = payload.Errors
	}
	if apiErr.Message == "" && len(apiErr.Fields) == 0 {
		apiErr.Message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}
	return apiErr
}

// Auth

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (domain.User, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return domain.User{}, err
	}
	c.token = resp.Token
	return resp.User, nil
}

// Reference data

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := c.do(ctx, http.MethodGet, "/products", nil, &products)
	return products, err
}

func (c *Client) Clients(ctx context.Context) ([]domain.Client, error) {
	var clients []domain.Client
	err := c.do(ctx, http.MethodGet, "/clients", nil, &clients)
	return clients, err
}

// Sales

// Sale is a hydrated sale as the API returns it.
type Sale struct {
	domain.Sale
	Products   []domain.SaleItem `json:"products"`
	Payments   []domain.Payment  `json:"payments"`
	PaidAmount float64           `json:"paidAmount"`
	Balance    float64           `json:"balance"`
}

// SaleLine is one product row of a create/update request.
type SaleLine struct {
	Product  int64   `json:"product"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

type CreateSaleRequest struct {
	Client        int64      `json:"client"`
	Products      []SaleLine `json:"products"`
	PaymentMethod string     `json:"paymentMethod"`
	TotalAmount   float64    `json:"totalAmount"`
	Note          string     `json:"note,omitempty"`
	ReminderDate  string     `json:"reminderDate,omitempty"`
	ReminderNote  string     `json:"reminderNote,omitempty"`
}

type UpdateSaleRequest struct {
	Products []SaleLine `json:"products"`
	Note     string     `json:"note"`
}

type PaymentRequest struct {
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
}

type PaymentResult struct {
	Payment domain.Payment `json:"payment"`
	Status  string         `json:"status"`
	Balance float64        `json:"balance"`
}

// SaleFilter narrows Sales; zero values mean no filter.
type SaleFilter struct {
	Status string
	Client int64
}

func (c *Client) Sales(ctx context.Context, filter SaleFilter) ([]Sale, error) {
	values := url.Values{}
	if filter.Status != "" {
		values.Set("status", filter.Status)
	}
	if filter.Client > 0 {
		values.Set("client", strconv.FormatInt(filter.Client, 10))
	}
	path := "/sales"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}
	var sales []Sale
	err := c.do(ctx, http.MethodGet, path, nil, &sales)
	return sales, err
}

func (c *Client) Sale(ctx context.Context, id int64) (Sale, error) {
	var sale Sale
	err := c.do(ctx, http.MethodGet, "/sales/"+strconv.FormatInt(id, 10), nil, &sale)
	return sale, err
}

// CreateSale fills in TotalAmount from the lines when the caller left it
// zero, mirroring the running sum the forms display. The server recomputes it
// either way.
func (c *Client) CreateSale(ctx context.Context, req CreateSaleRequest) (Sale, error) {
	if req.TotalAmount == 0 {
		req.TotalAmount = ComputeTotal(req.Products)
	}
	var sale Sale
	err := c.do(ctx, http.MethodPost, "/sales", req, &sale)
	return sale, err
}

func (c *Client) UpdateSale(ctx context.Context, id int64, req UpdateSaleRequest) (Sale, error) {
	var sale Sale
	err := c.do(ctx, http.MethodPut, "/sales/"+strconv.FormatInt(id, 10), req, &sale)
	return sale, err
}

func (c *Client) RecordPayment(ctx context.Context, saleID int64, req PaymentRequest) (PaymentResult, error) {
	var result PaymentResult
	err := c.do(ctx, http.MethodPost, "/sales/"+strconv.FormatInt(saleID, 10)+"/payments", req, &result)
	return result, err
}

func (c *Client) CancelSale(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, "/sales/"+strconv.FormatInt(id, 10)+"/cancel", nil, nil)
}

func (c *Client) Reminders(ctx context.Context) ([]Sale, error) {
	var sales []Sale
	err := c.do(ctx, http.MethodGet, "/reminders", nil, &sales)
	return sales, err
}

// ComputeTotal is the exact sum of quantity times price over the lines.
func ComputeTotal(lines []SaleLine) float64 {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(line.Quantity)))
	}
	f, _ := total.Float64()
	return f
}
