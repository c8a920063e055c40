package dashboard

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"paperdash/internal/httputil"
	"paperdash/internal/journal"
	"paperdash/internal/trading"
	"paperdash/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// API exposes the façade as JSON under /v1.
type API struct {
	svc *trading.Service
	now func() time.Time
}

func NewAPI(svc *trading.Service) *API {
	return &API{svc: svc, now: time.Now}
}

func (a *API) Routes(r chi.Router) {
	r.Get("/account", a.Account)
	r.Get("/account/raw", a.AccountRaw)
	r.Get("/positions", a.Positions)
	r.Delete("/positions", a.CloseAllPositions)
	r.Post("/positions/close", a.ClosePosition)
	r.Get("/orders", a.Orders)
	r.Post("/orders", a.SubmitOrder)
	r.Delete("/orders", a.CancelAllOrders)
	r.Get("/orders/open", a.OpenOrders)
	r.Get("/orders/{id}", a.Order)
	r.Delete("/orders/{id}", a.CancelOrder)
	r.Get("/activity", a.Activity)
}

func (a *API) Account(w http.ResponseWriter, r *http.Request) {
	v := a.svc.Account(r.Context())
	if v.Error != "" {
		httputil.WriteJSON(w, http.StatusBadGateway, httputil.ErrorResponse{Error: v.Error})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, v)
}

// AccountRaw returns the brokerage DTO untouched.
func (a *API) AccountRaw(w http.ResponseWriter, r *http.Request) {
	acc, err := a.svc.AccountSnapshot(r.Context())
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadGateway, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acc)
}

func (a *API) Positions(w http.ResponseWriter, r *http.Request) {
	writeTable(w, a.svc.Positions(r.Context()))
}

func (a *API) Orders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := trading.DefaultHistoryDays(a.now())
	if raw := strings.TrimSpace(q.Get("start")); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid start, expected YYYY-MM-DD"})
			return
		}
		from = d
	}
	if raw := strings.TrimSpace(q.Get("end")); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid end, expected YYYY-MM-DD"})
			return
		}
		to = d
	}
	start, end := trading.HistoryWindow(from, to)
	t := a.svc.Orders(r.Context(), trading.OrderQuery{Start: start, End: end})
	if !t.Failed() {
		t.Records = trading.FilterOrders(t.Records, trading.OrderFilter{
			Status: q.Get("status"),
			Side:   q.Get("side"),
			Symbol: q.Get("symbol"),
		})
	}
	writeTable(w, t)
}

func (a *API) OpenOrders(w http.ResponseWriter, r *http.Request) {
	writeTable(w, a.svc.OpenOrders(r.Context()))
}

func (a *API) Order(w http.ResponseWriter, r *http.Request) {
	d := a.svc.Order(r.Context(), chi.URLParam(r, "id"))
	if d.Error != "" {
		httputil.WriteJSON(w, http.StatusBadGateway, httputil.ErrorResponse{Error: d.Error})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

type submitOrderRequest struct {
	Symbol string `json:"symbol"`
	Qty    string `json:"qty"`
	Side   string `json:"side"`
}

func (a *API) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	side := types.OrderSide(strings.ToLower(strings.TrimSpace(req.Side)))
	if !side.Valid() {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "side must be buy or sell"})
		return
	}
	qty, err := decimal.NewFromString(strings.TrimSpace(req.Qty))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: trading.InvalidOrderInput})
		return
	}
	writeResult(w, a.svc.SubmitMarketOrder(r.Context(), req.Symbol, qty, side))
}

func (a *API) CancelOrder(w http.ResponseWriter, r *http.Request) {
	writeResult(w, a.svc.CancelOrder(r.Context(), chi.URLParam(r, "id")))
}

func (a *API) CancelAllOrders(w http.ResponseWriter, r *http.Request) {
	writeResult(w, a.svc.CancelAllOrders(r.Context()))
}

type closePositionRequest struct {
	Symbol string `json:"symbol"`
}

func (a *API) ClosePosition(w http.ResponseWriter, r *http.Request) {
	var req closePositionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "symbol is required"})
		return
	}
	writeResult(w, a.svc.ClosePosition(r.Context(), req.Symbol))
}

func (a *API) CloseAllPositions(w http.ResponseWriter, r *http.Request) {
	writeResult(w, a.svc.CloseAllPositions(r.Context()))
}

func (a *API) Activity(w http.ResponseWriter, r *http.Request) {
	limit := activityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "limit must be 1..200"})
			return
		}
		limit = n
	}
	entries, err := a.svc.Activity(r.Context(), limit)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "Error fetching activity: " + err.Error()})
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func writeTable(w http.ResponseWriter, t trading.Table) {
	if t.Failed() {
		httputil.WriteJSON(w, http.StatusBadGateway, httputil.ErrorResponse{Error: t.Error})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func writeResult(w http.ResponseWriter, res trading.Result) {
	switch {
	case !res.Failed:
		httputil.WriteJSON(w, http.StatusOK, res)
	case res.Message == trading.InvalidOrderInput:
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: res.Message})
	default:
		httputil.WriteJSON(w, http.StatusBadGateway, httputil.ErrorResponse{Error: res.Message})
	}
}
