// Package client is a Go client for the AgriConnect REST API. Session adds
// the sign-in state a UI keeps on top of it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"agriconnect/internal/catalog"
	"agriconnect/internal/models"
	"agriconnect/internal/services"
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
	Detail  string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client calls the API at BaseURL, attaching the bearer token from Tokens.
type Client struct {
	baseURL string
	http    Doer
	tokens  TokenStore
}

// New creates a Client. A nil doer uses an http.Client with a 10s timeout and
// a nil store keeps the token in memory.
func New(baseURL string, doer Doer, tokens TokenStore) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 10 * time.Second}
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		tokens:  tokens,
	}
}

// Tokens returns the store the client reads its bearer token from.
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	token, err := c.tokens.Load()
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body struct {
		Message string            `json:"message"`
		Error   string            `json:"error"`
		Errors  map[string]string `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Message != "" {
			apiErr.Message = body.Message
		}
		apiErr.Detail = body.Error
		apiErr.Fields = body.Errors
	}
	return apiErr
}

// AuthResult is the body of a successful login or registration.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RegisterInput is the body of a registration.
type RegisterInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
	Location string      `json:"location,omitempty"`
	Phone    string      `json:"phone,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the account behind the stored token.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProducts fetches the catalog, filtered on the server when f is non-empty.
func (c *Client) ListProducts(ctx context.Context, f catalog.Filter) ([]models.Product, error) {
	query := url.Values{}
	if s := strings.TrimSpace(f.Search); s != "" {
		query.Set("search", s)
	}
	for _, cat := range f.Categories {
		query.Add("category", cat)
	}
	for _, loc := range f.Locations {
		query.Add("location", loc)
	}
	if f.MaxPrice != nil {
		query.Set("maxPrice", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	var out []models.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FilterCatalog narrows an already fetched product list on the client.
func FilterCatalog(products []models.Product, f catalog.Filter) []models.Product {
	return catalog.Apply(products, f)
}

func (c *Client) Facets(ctx context.Context) (*catalog.Facets, error) {
	var out catalog.Facets
	if err := c.do(ctx, http.MethodGet, "/api/products/facets", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var out models.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FarmerProducts(ctx context.Context, farmerID string) ([]models.Product, error) {
	var out []models.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/farmer/"+url.PathEscape(farmerID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProduct(ctx context.Context, in services.ProductInput) (*models.Product, error) {
	var out models.Product
	if err := c.do(ctx, http.MethodPost, "/api/products", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, patch services.ProductPatch) (*models.Product, error) {
	var out models.Product
	if err := c.do(ctx, http.MethodPut, "/api/products/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/products/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) PlaceOrder(ctx context.Context, productID string, quantity int) (*models.Order, error) {
	var out models.Order
	in := services.OrderInput{ProductID: productID, QuantityOrdered: quantity}
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var out models.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BuyerOrders(ctx context.Context, buyerID string) ([]models.Order, error) {
	var out []models.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/buyer/"+url.PathEscape(buyerID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FarmerOrders(ctx context.Context, farmerID string) ([]models.Order, error) {
	var out []models.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/farmer/"+url.PathEscape(farmerID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	var out models.Order
	body := map[string]models.OrderStatus{"status": status}
	if err := c.do(ctx, http.MethodPut, "/api/orders/"+url.PathEscape(id)+"/status", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FarmerDashboard(ctx context.Context, farmerID string) (*services.FarmerStats, error) {
	var out services.FarmerStats
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/farmer/"+url.PathEscape(farmerID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BuyerDashboard(ctx context.Context, buyerID string) (*services.BuyerStats, error) {
	var out services.BuyerStats
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/buyer/"+url.PathEscape(buyerID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
