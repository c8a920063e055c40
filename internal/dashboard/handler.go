// Package dashboard renders the trading page and its JSON twin over the
// trading façade.
package dashboard

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paperdash/internal/flash"
	"paperdash/internal/journal"
	"paperdash/internal/trading"
	"paperdash/internal/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	dateLayout    = "2006-01-02"
	activityLimit = 20
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("page.html").ParseFS(templateFS, "templates/page.html"))

type Handler struct {
	svc    *trading.Service
	flash  *flash.Signer
	log    zerolog.Logger
	stream bool
	now    func() time.Time
}

// NewHandler builds the page handlers. stream enables the live update
// script on the page.
func NewHandler(svc *trading.Service, signer *flash.Signer, stream bool, log zerolog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		flash:  signer,
		log:    log.With().Str("component", "dashboard").Logger(),
		stream: stream,
		now:    time.Now,
	}
}

type historyView struct {
	Start         string
	End           string
	DateError     string
	Filter        trading.OrderFilter
	StatusOptions []string
	SideOptions   []string
	Table         trading.Table
	Shown         trading.Table
	EmptyNote     string
}

type pageData struct {
	Flash         *trading.Result
	Account       trading.AccountView
	Positions     trading.Table
	History       historyView
	Open          trading.Table
	OpenIDs       []string
	OrderID       string
	Order         *trading.OrderDetail
	Activity      []journal.Entry
	ActivityError string
	Stream        bool
	Return        string
}

// Page renders the whole dashboard. Every render fetches fresh state.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	data := pageData{Stream: h.stream, Return: returnPath(r.URL)}
	if res, ok := h.flash.Pop(w, r); ok {
		data.Flash = &res
	}
	data.History = h.historyParams(q)
	start, end := h.historyWindow(&data.History)
	data.OrderID = strings.TrimSpace(q.Get("order_id"))

	var g errgroup.Group
	g.Go(func() error {
		data.Account = h.svc.Account(ctx)
		return nil
	})
	g.Go(func() error {
		data.Positions = h.svc.Positions(ctx)
		return nil
	})
	g.Go(func() error {
		data.History.Table = h.svc.Orders(ctx, trading.OrderQuery{Start: start, End: end})
		return nil
	})
	g.Go(func() error {
		data.Open = h.svc.OpenOrders(ctx)
		return nil
	})
	if data.OrderID != "" {
		g.Go(func() error {
			d := h.svc.Order(ctx, data.OrderID)
			data.Order = &d
			return nil
		})
	}
	g.Go(func() error {
		entries, err := h.svc.Activity(ctx, activityLimit)
		if err != nil {
			h.log.Error().Err(err).Msg("journal read failed")
			data.ActivityError = "Error fetching activity: " + err.Error()
			return nil
		}
		data.Activity = entries
		return nil
	})
	_ = g.Wait()

	hist := &data.History
	hist.Shown = trading.Table{Columns: hist.Table.Columns, Records: trading.FilterOrders(hist.Table.Records, hist.Filter)}
	switch {
	case hist.Table.Failed():
	case hist.Table.Empty():
		hist.EmptyNote = "No orders in the selected date range"
	case hist.Shown.Empty():
		hist.EmptyNote = "No orders match the selected filters"
	}
	data.OpenIDs = data.Open.Column("Order ID")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, data); err != nil {
		h.log.Error().Err(err).Msg("render page")
	}
}

func (h *Handler) historyParams(q url.Values) historyView {
	return historyView{
		Start:         strings.TrimSpace(q.Get("start")),
		End:           strings.TrimSpace(q.Get("end")),
		StatusOptions: trading.StatusFilterOptions,
		SideOptions:   trading.SideFilterOptions,
		Filter: trading.OrderFilter{
			Status: q.Get("status"),
			Side:   q.Get("side"),
			Symbol: q.Get("symbol"),
		},
	}
}

// historyWindow resolves the date inputs, falling back to yesterday through
// today when either is missing or malformed.
func (h *Handler) historyWindow(v *historyView) (time.Time, time.Time) {
	from, to := trading.DefaultHistoryDays(h.now())
	if v.Start != "" {
		d, err := time.Parse(dateLayout, v.Start)
		if err != nil {
			v.DateError = "Invalid start date, expected YYYY-MM-DD"
		} else {
			from = d
		}
	}
	if v.End != "" {
		d, err := time.Parse(dateLayout, v.End)
		if err != nil {
			v.DateError = "Invalid end date, expected YYYY-MM-DD"
		} else {
			to = d
		}
	}
	v.Start = from.Format(dateLayout)
	v.End = to.Format(dateLayout)
	return trading.HistoryWindow(from, to)
}

func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, types.OrderSideBuy)
}

func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, types.OrderSideSell)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, side types.OrderSide) {
	qty, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("qty")))
	if err != nil {
		h.done(w, r, trading.Result{Message: trading.InvalidOrderInput, Failed: true})
		return
	}
	h.done(w, r, h.svc.SubmitMarketOrder(r.Context(), r.FormValue("symbol"), qty, side))
}

func (h *Handler) CloseAll(w http.ResponseWriter, r *http.Request) {
	h.done(w, r, h.svc.CloseAllPositions(r.Context()))
}

func (h *Handler) CancelAll(w http.ResponseWriter, r *http.Request) {
	h.done(w, r, h.svc.CancelAllOrders(r.Context()))
}

func (h *Handler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.FormValue("symbol"))
	if symbol == "" {
		h.done(w, r, trading.Result{Message: "Please select a position", Failed: true})
		return
	}
	h.done(w, r, h.svc.ClosePosition(r.Context(), symbol))
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := strings.TrimSpace(r.FormValue("order_id"))
	if orderID == "" {
		h.done(w, r, trading.Result{Message: "Please select an order", Failed: true})
		return
	}
	h.done(w, r, h.svc.CancelOrder(r.Context(), orderID))
}

// done stores the Result and redirects back to the page the form came from.
func (h *Handler) done(w http.ResponseWriter, r *http.Request, res trading.Result) {
	if err := h.flash.Set(w, r, res); err != nil {
		h.log.Error().Err(err).Msg("set flash")
	}
	http.Redirect(w, r, safeReturn(r.FormValue("return")), http.StatusSeeOther)
}

func returnPath(u *url.URL) string {
	if u.RawQuery == "" {
		return "/"
	}
	return "/?" + u.RawQuery
}

// safeReturn keeps redirects on this site.
func safeReturn(p string) string {
	if p == "/" || strings.HasPrefix(p, "/?") {
		return p
	}
	return "/"
}
