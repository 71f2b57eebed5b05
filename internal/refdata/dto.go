package refdata

import (
	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
)

// ClientFilters describe the supported filter knobs for the client listing.
type ClientFilters struct {
	Network        string               `json:"network,omitempty"`
	SubNetwork     string               `json:"sub_network,omitempty"`
	Segment        *enums.ClientSegment `json:"segment,omitempty"`
	SupervisorCode string               `json:"supervisor_code,omitempty"`
	Query          string               `json:"q,omitempty"`
}

// ClientList is one cursor page of clients.
type ClientList struct {
	Clients    []models.Client `json:"clients"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ProductFilters describe the supported filter knobs for the product listing.
type ProductFilters struct {
	Query string `json:"q,omitempty"`
}

// ProductList is one cursor page of products.
type ProductList struct {
	Products   []models.Product `json:"products"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// RowIssue reports one import row that could not be loaded as-is.
type RowIssue struct {
	Line    int    `json:"line"`
	Problem string `json:"problem"`
}

// ImportSummary reports the outcome of one reference data import.
type ImportSummary struct {
	Rows     int        `json:"rows"`
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Issues   []RowIssue `json:"issues,omitempty"`
}
