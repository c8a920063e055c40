package trading

import "paperdash/internal/model"

var (
	PositionColumns  = []string{"Symbol", "Side", "Quantity", "Market Value", "Average Entry", "Unrealized P/L", "Current Price"}
	OrderColumns     = []string{"Order ID", "Symbol", "Side", "Quantity", "Order Type", "Status", "Submitted At", "Filled At", "Filled Price"}
	OpenOrderColumns = []string{"Order ID", "Symbol", "Side", "Quantity", "Order Type", "Status", "Submitted At"}
)

// Record maps a column label to its display text.
type Record map[string]string

// Table is a fetched listing. Error is set instead of Records when the
// remote call failed.
type Table struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
	Error   string   `json:"error,omitempty"`
}

func (t Table) Failed() bool { return t.Error != "" }

func (t Table) Empty() bool { return len(t.Records) == 0 }

// Rows returns the records' values in column order.
func (t Table) Rows() [][]string {
	out := make([][]string, 0, len(t.Records))
	for _, rec := range t.Records {
		row := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			row[i] = rec[col]
		}
		out = append(out, row)
	}
	return out
}

// Column collects one column's values, e.g. the order ids of a listing.
func (t Table) Column(label string) []string {
	out := make([]string, 0, len(t.Records))
	for _, rec := range t.Records {
		out = append(out, rec[label])
	}
	return out
}

type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type AccountView struct {
	Basic  []Field `json:"basic,omitempty"`
	Status []Field `json:"status,omitempty"`
	Error  string  `json:"error,omitempty"`
}

type OrderDetail struct {
	Order     *model.Order `json:"order,omitempty"`
	Details   []Field      `json:"details,omitempty"`
	Timing    []Field      `json:"timing,omitempty"`
	CanCancel bool         `json:"can_cancel"`
	CanClose  bool         `json:"can_close"`
	Notice    string       `json:"notice,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Result is the outcome of a mutating action, handed back to the presenter.
type Result struct {
	Message string `json:"message"`
	Failed  bool   `json:"failed"`
}
