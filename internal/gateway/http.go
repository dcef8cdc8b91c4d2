package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/possum/internal/pos"
)

// DefaultTimeout bounds each remote call. Per-call timeouts are the
// gateway's responsibility; the sync controller never sets its own.
const DefaultTimeout = 15 * time.Second

// HTTPGateway talks to a PostgREST-style REST service:
//
//	GET  {base}/products           -> catalog listing
//	POST {base}/transactions       -> insert one transaction
//
// Inserts send "Prefer: resolution=merge-duplicates" so a retried
// insert after an indeterminate failure is a server-side upsert, which
// keeps delivery at-least-once with idempotent effect.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// HTTPOption configures an HTTPGateway.
type HTTPOption func(*HTTPGateway)

// WithHTTPClient overrides the underlying HTTP client (tests, custom
// transports).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(g *HTTPGateway) {
		g.client = c
	}
}

// WithTimeout sets the per-request timeout. Ignored when WithHTTPClient
// supplies a client of its own.
func WithTimeout(d time.Duration) HTTPOption {
	return func(g *HTTPGateway) {
		if g.client != nil {
			g.client.Timeout = d
		}
	}
}

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) HTTPOption {
	return func(g *HTTPGateway) {
		g.logger = l
	}
}

// NewHTTP creates a gateway for the service at baseURL. apiKey may be
// empty for unauthenticated endpoints.
func NewHTTP(baseURL, apiKey string, opts ...HTTPOption) *HTTPGateway {
	g := &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// productDTO is the wire shape of a catalog row. Prices arrive as JSON
// numbers; json.Number preserves the exact digits for the decimal
// conversion.
type productDTO struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Category string      `json:"category"`
	Stock    int         `json:"stock"`
	Image    string      `json:"image,omitempty"`
}

// lineItemDTO mirrors the denormalized item snapshot on the wire.
type lineItemDTO struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Category string      `json:"category"`
	Stock    int         `json:"stock"`
	Quantity int         `json:"quantity"`
}

type transactionDTO struct {
	ID       string        `json:"id"`
	Date     string        `json:"date"`
	Items    []lineItemDTO `json:"items"`
	Subtotal json.Number   `json:"subtotal"`
	Tax      json.Number   `json:"tax"`
	Total    json.Number   `json:"total"`
	Status   string        `json:"status"`
}

// FetchCatalog implements Gateway.
func (g *HTTPGateway) FetchCatalog(ctx context.Context) ([]pos.Product, error) {
	const op = "fetch catalog"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/products", nil)
	if err != nil {
		return nil, remoteErr(op, 0, err)
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, remoteErr(op, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, remoteErr(op, resp.StatusCode, statusError(resp))
	}

	var dtos []productDTO
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&dtos); err != nil {
		return nil, remoteErr(op, 0, fmt.Errorf("decode body: %w", err))
	}

	products := make([]pos.Product, 0, len(dtos))
	for _, d := range dtos {
		price, err := decimal.NewFromString(d.Price.String())
		if err != nil {
			return nil, remoteErr(op, 0, fmt.Errorf("product %s: price %q: %w", d.ID, d.Price, err))
		}
		products = append(products, pos.Product{
			ID:       d.ID,
			Name:     d.Name,
			Price:    price,
			Category: d.Category,
			Stock:    d.Stock,
			Image:    d.Image,
		})
	}

	g.logger.Debug("catalog fetched", "products", len(products))
	return products, nil
}

// InsertTransaction implements Gateway. A 409 from the remote counts as
// success: the record is already there, which is exactly what an
// at-least-once retry wants.
func (g *HTTPGateway) InsertTransaction(ctx context.Context, t pos.Transaction) error {
	const op = "insert transaction"

	body, err := json.Marshal(toTransactionDTO(t))
	if err != nil {
		return remoteErr(op, 0, fmt.Errorf("encode body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return remoteErr(op, 0, err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := g.client.Do(req)
	if err != nil {
		return remoteErr(op, 0, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		g.logger.Debug("transaction delivered", "id", t.ID)
		return nil
	case resp.StatusCode == http.StatusConflict:
		g.logger.Debug("transaction already present remotely", "id", t.ID)
		return nil
	default:
		return remoteErr(op, resp.StatusCode, fmt.Errorf("transaction %s rejected", t.ID))
	}
}

func (g *HTTPGateway) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("apikey", g.apiKey)
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
}

func toTransactionDTO(t pos.Transaction) transactionDTO {
	items := make([]lineItemDTO, len(t.Items))
	for i, it := range t.Items {
		items[i] = lineItemDTO{
			ID:       it.ProductID,
			Name:     it.Name,
			Price:    json.Number(it.Price.String()),
			Category: it.Category,
			Stock:    it.Stock,
			Quantity: it.Quantity,
		}
	}
	return transactionDTO{
		ID:       t.ID,
		Date:     t.Date.UTC().Format(time.RFC3339Nano),
		Items:    items,
		Subtotal: json.Number(t.Subtotal.String()),
		Tax:      json.Number(t.Tax.String()),
		Total:    json.Number(t.Total.String()),
		Status:   string(t.Status),
	}
}

// statusError summarizes a non-2xx response body for diagnostics.
func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if len(snippet) == 0 {
		return fmt.Errorf("%s", resp.Status)
	}
	return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(snippet)))
}
