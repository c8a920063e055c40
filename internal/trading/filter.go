package trading

import (
	"strings"
	"time"

	"paperdash/internal/types"
)

// StatusFilterOptions are the status choices of the order history filter.
// "Open" is a group, not a vendor status: it matches every working status
// (New, Partially_Filled, Accepted, ...). Plain equality on "Open" would
// match nothing since no order ever reports that status. The other options
// compare by equality.
var (
	StatusFilterOptions = []string{"All Orders", "Open", "Filled", "Canceled", "Expired", "Rejected"}
	SideFilterOptions   = []string{"All", "Buy", "Sell"}
)

// openStatuses are the vendor statuses an order can have while it still works.
var openStatuses = map[string]bool{
	title(string(types.OrderStatusNew)):                true,
	title(string(types.OrderStatusPartiallyFilled)):    true,
	title(string(types.OrderStatusAccepted)):           true,
	title(string(types.OrderStatusPendingNew)):         true,
	title(string(types.OrderStatusAcceptedForBidding)): true,
	title(string(types.OrderStatusPendingCancel)):      true,
	title(string(types.OrderStatusPendingReplace)):     true,
}

// OrderFilter narrows an already fetched order listing.
type OrderFilter struct {
	Status string
	Side   string
	Symbol string
}

func (f OrderFilter) Active() bool {
	return !allStatus(f.Status) || !allSide(f.Side) || strings.TrimSpace(f.Symbol) != ""
}

func allStatus(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "All Orders") || strings.EqualFold(s, "All")
}

func allSide(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "All")
}

// FilterOrders keeps the records matching every set criterion. Status and
// side compare against the title-cased filter value; "Open" matches any
// working status. Symbol is a case-insensitive substring match.
func FilterOrders(records []Record, f OrderFilter) []Record {
	status := title(strings.TrimSpace(f.Status))
	side := title(strings.TrimSpace(f.Side))
	symbol := strings.ToUpper(strings.TrimSpace(f.Symbol))
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if !allStatus(f.Status) {
			if status == "Open" {
				if !openStatuses[rec["Status"]] {
					continue
				}
			} else if rec["Status"] != status {
				continue
			}
		}
		if !allSide(f.Side) && rec["Side"] != side {
			continue
		}
		if symbol != "" && !strings.Contains(strings.ToUpper(rec["Symbol"]), symbol) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// HistoryWindow spans from the start of startDay to the last instant of
// endDay, in UTC.
func HistoryWindow(startDay, endDay time.Time) (time.Time, time.Time) {
	sy, sm, sd := startDay.UTC().Date()
	ey, em, ed := endDay.UTC().Date()
	start := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ey, em, ed, 23, 59, 59, 999999999, time.UTC)
	return start, end
}

// DefaultHistoryDays is yesterday through today.
func DefaultHistoryDays(now time.Time) (time.Time, time.Time) {
	return now.UTC().AddDate(0, 0, -1), now.UTC()
}
