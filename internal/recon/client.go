package recon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/dpp-tools/invoice-audit/internal/common"
)

// Client talks to the fulfillment system's JSON API. Authentication is
// a session login; the cookie jar carries the session across queries.
type Client struct {
	baseURL  string
	email    string
	password string
	http     *http.Client
	pageSize int
	loggedIn bool
	logger   *slog.Logger
}

func NewClient(cfg common.ReconConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		email:    cfg.Email,
		password: cfg.Password,
		http:     &http.Client{Timeout: timeout, Jar: jar},
		pageSize: pageSize,
		logger:   logger,
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	bs, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bs))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("recon.http.send_error", "path", path, "error", err)
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("recon.http.body_close_error", "path", path, "error", err)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	c.logger.Debug("recon.http.response",
		"path", path,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		return common.NewAppError("EXTERNAL_ERROR",
			fmt.Sprintf("request to %s failed with status %d", path, resp.StatusCode), common.ErrInternal)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Login authenticates and establishes the session used by queries.
func (c *Client) Login(ctx context.Context) error {
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	err := c.postJSON(ctx, "/api/users/login", map[string]string{
		"email":    c.email,
		"password": c.password,
	}, &out)
	if err != nil {
		return err
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "login failed"
		}
		return common.NewAppError("LOGIN_FAILED", msg, common.ErrInvalidInput)
	}
	c.loggedIn = true
	c.logger.Info("recon.login_ok", "base_url", c.baseURL)
	return nil
}

type queryEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) query(ctx context.Context, q string, out any) error {
	if !c.loggedIn {
		return common.NewAppError("NOT_LOGGED_IN", "not logged in", common.ErrInvalidInput)
	}
	var env queryEnvelope
	if err := c.postJSON(ctx, "/api/query", map[string]string{"query": q}, &env); err != nil {
		return err
	}
	if len(env.Errors) > 0 {
		return common.NewAppError("QUERY_ERROR", env.Errors[0].Message, common.ErrInternal)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode query data: %w", err)
	}
	return nil
}

// SearchCandidates issues the broad full-text search for a PO token.
func (c *Client) SearchCandidates(ctx context.Context, poNumber string) ([]Candidate, error) {
	poNumber = CleanPO(poNumber)
	if poNumber == "" {
		return nil, common.NewAppError("EMPTY_PO", "po number is empty", common.ErrInvalidInput)
	}

	q := fmt.Sprintf(`
	query V1Queries {
	  purchaseOrder {
	    grid(
	      filter: {fulltext_search: "%%%s%%"}
	      limit: {size: %d, page: 1}
	    ) {
	      totalSize
	      rows {
	        id
	        label
	        vendor { name id }
	        total_price
	        items_count
	        items_sum
	        created_at
	      }
	    }
	  }
	}`, poNumber, c.pageSize)

	var out struct {
		PurchaseOrder struct {
			Grid struct {
				TotalSize int         `json:"totalSize"`
				Rows      []Candidate `json:"rows"`
			} `json:"grid"`
		} `json:"purchaseOrder"`
	}
	if err := c.query(ctx, q, &out); err != nil {
		return nil, err
	}
	return out.PurchaseOrder.Grid.Rows, nil
}

type detailPayload struct {
	ID         string      `json:"id"`
	Label      string      `json:"label"`
	TotalPrice json.Number `json:"total_price"`
	Vendor     VendorRef   `json:"vendor"`
	LineItems  struct {
		TotalSize int `json:"totalSize"`
		Rows      []struct {
			ID      string `json:"id"`
			Product struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				SKU  string `json:"sku"`
			} `json:"product"`
			Quantity   json.Number `json:"quantity"`
			Price      json.Number `json:"price"`
			TotalPrice json.Number `json:"total_price"`
		} `json:"rows"`
	} `json:"lineItems"`
}

// Details fetches one purchase order with its line items.
func (c *Client) Details(ctx context.Context, id string) (*Detail, error) {
	q := fmt.Sprintf(`
	query V1Queries {
	  purchaseOrder {
	    details(id: "%s") {
	      id
	      label
	      total_price
	      vendor { name id }
	      sourceAddress {
	        company
	        street1
	        street2
	        city
	        region
	        postcode
	        country
	      }
	      lineItems(sort: {}, limit: {size: 100, page: 1}) {
	        totalSize
	        rows {
	          id
	          product { id name sku }
	          quantity
	          price
	          total_price
	        }
	      }
	    }
	  }
	}`, id)

	var out struct {
		PurchaseOrder struct {
			Details *detailPayload `json:"details"`
		} `json:"purchaseOrder"`
	}
	if err := c.query(ctx, q, &out); err != nil {
		return nil, err
	}
	p := out.PurchaseOrder.Details
	if p == nil {
		return nil, common.NewAppError("PO_NOT_FOUND", "purchase order not found", common.ErrNotFound)
	}

	d := &Detail{
		ID:         p.ID,
		Label:      p.Label,
		TotalPrice: p.TotalPrice,
		Vendor:     p.Vendor,
	}
	for _, row := range p.LineItems.Rows {
		d.Items = append(d.Items, ExternalItem{
			SKU:        row.Product.SKU,
			Name:       row.Product.Name,
			Quantity:   row.Quantity,
			Price:      row.Price,
			TotalPrice: row.TotalPrice,
		})
	}
	return d, nil
}
