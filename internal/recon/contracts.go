package recon

import (
	"context"
	"encoding/json"
)

// VendorRef identifies a vendor on the fulfillment side.
type VendorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Candidate is a purchase-order summary returned by a broad search.
type Candidate struct {
	ID         string      `json:"id"`
	Label      string      `json:"label"`
	Vendor     VendorRef   `json:"vendor"`
	TotalPrice json.Number `json:"total_price"`
	ItemsCount int         `json:"items_count"`
	ItemsSum   json.Number `json:"items_sum"`
	CreatedAt  string      `json:"created_at"`
}

// ExternalItem is one line of a matched purchase order.
type ExternalItem struct {
	SKU        string
	Name       string
	Quantity   json.Number
	Price      json.Number
	TotalPrice json.Number
}

// Detail is the full purchase-order record used for row validation.
type Detail struct {
	ID         string
	Label      string
	TotalPrice json.Number
	Vendor     VendorRef
	Items      []ExternalItem
}

// Service is the reconciliation target. The matcher treats it as a
// black box returning candidate summaries and per-candidate detail.
type Service interface {
	SearchCandidates(ctx context.Context, poNumber string) ([]Candidate, error)
	Details(ctx context.Context, id string) (*Detail, error)
}
