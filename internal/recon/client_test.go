package recon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dpp-tools/invoice-audit/internal/common"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(common.ReconConfig{
		BaseURL:  srv.URL,
		Email:    "ap@example.com",
		Password: "secret",
	}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func loginThen(t *testing.T, query func(w http.ResponseWriter, body map[string]string)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		switch r.URL.Path {
		case "/api/users/login":
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
		case "/api/query":
			query(w, body)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestClientLoginRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "bad credentials"})
	})
	err := c.Login(context.Background())
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want common.ErrInvalidInput", err)
	}
}

func TestClientQueryRequiresLogin(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request should be sent before login")
	})
	_, err := c.SearchCandidates(context.Background(), "37305")
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want common.ErrInvalidInput", err)
	}
}

func TestClientSearchCandidates(t *testing.T) {
	c := newTestClient(t, loginThen(t, func(w http.ResponseWriter, body map[string]string) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"purchaseOrder": map[string]any{
					"grid": map[string]any{
						"totalSize": 1,
						"rows": []map[string]any{{
							"id": "po-1", "label": "37305",
							"vendor": map[string]string{"id": "v-1", "name": "S&B Filters"},
						}},
					},
				},
			},
		})
	}))
	ctx := context.Background()
	if err := c.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}

	rows, err := c.SearchCandidates(ctx, "PO 37305")
	if err != nil {
		t.Fatalf("SearchCandidates: %v", err)
	}
	if len(rows) != 1 || rows[0].Label != "37305" || rows[0].Vendor.Name != "S&B Filters" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestClientDetails(t *testing.T) {
	c := newTestClient(t, loginThen(t, func(w http.ResponseWriter, body map[string]string) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"purchaseOrder": map[string]any{
					"details": map[string]any{
						"id": "po-1", "label": "37305", "total_price": "300.00",
						"vendor": map[string]string{"id": "v-1", "name": "S&B Filters"},
						"lineItems": map[string]any{
							"totalSize": 1,
							"rows": []map[string]any{{
								"id":       "li-1",
								"product":  map[string]string{"id": "p-1", "name": "Cold Air Intake", "sku": "76-1015"},
								"quantity": "2", "price": "150.00", "total_price": "300.00",
							}},
						},
					},
				},
			},
		})
	}))
	ctx := context.Background()
	if err := c.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}

	d, err := c.Details(ctx, "po-1")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if d.Label != "37305" || len(d.Items) != 1 {
		t.Fatalf("detail = %+v", d)
	}
	if d.Items[0].SKU != "76-1015" || d.Items[0].Quantity.String() != "2" {
		t.Errorf("item = %+v", d.Items[0])
	}
}

func TestClientDetailsNotFound(t *testing.T) {
	c := newTestClient(t, loginThen(t, func(w http.ResponseWriter, _ map[string]string) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"purchaseOrder": map[string]any{"details": nil}},
		})
	}))
	ctx := context.Background()
	if err := c.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}
	_, err := c.Details(ctx, "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want common.ErrNotFound", err)
	}
}

func TestClientQueryErrors(t *testing.T) {
	c := newTestClient(t, loginThen(t, func(w http.ResponseWriter, _ map[string]string) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]string{{"message": "grid unavailable"}},
		})
	}))
	ctx := context.Background()
	if err := c.Login(ctx); err != nil {
		t.Fatalf("Login: %v", err)
	}
	_, err := c.SearchCandidates(ctx, "37305")
	if !errors.Is(err, common.ErrInternal) {
		t.Fatalf("err = %v, want common.ErrInternal", err)
	}
}

func TestClientNonSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	err := c.Login(context.Background())
	if !errors.Is(err, common.ErrInternal) {
		t.Fatalf("err = %v, want common.ErrInternal", err)
	}
}
