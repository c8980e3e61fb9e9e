package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sales_dashboard/internal/format"
	"sales_dashboard/internal/sales"
)

// dashboardHandler holds the sales service and implements the HTTP handlers
// behind the sales and returns views.
type dashboardHandler struct {
	service *sales.Service
	logger  *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(service *sales.Service, logger *zap.Logger) *dashboardHandler {
	return &dashboardHandler{
		service: service,
		logger:  logger,
	}
}

// windowResponse carries the half-open week [start, end) as timestamps.
type windowResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

// phoneDisplay holds the formatted phone numbers shown in a table row.
type phoneDisplay struct {
	Phone1Display string `json:"phone1Display,omitempty"`
	Phone2Display string `json:"phone2Display,omitempty"`
}

func newPhoneDisplay(phone1, phone2 string) phoneDisplay {
	return phoneDisplay{
		Phone1Display: format.Phone(phone1),
		Phone2Display: format.Phone(phone2),
	}
}

type saleRow struct {
	*sales.Sale
	phoneDisplay
}

type returnRow struct {
	*sales.Return
	phoneDisplay
}

type salesResponse struct {
	Window  windowResponse    `json:"window"`
	Results []saleRow         `json:"results"`
	Summary sales.Summary     `json:"summary"`
	Display map[string]string `json:"display"`
	Rate    float64           `json:"rate"`
}

type returnsResponse struct {
	Window   windowResponse       `json:"window"`
	Results  []returnRow          `json:"results"`
	Counters sales.ReturnCounters `json:"counters"`
}

func newWindowResponse(w sales.Window, label string) windowResponse {
	return windowResponse{
		Start: w.Start.Format(time.RFC3339),
		End:   w.End.Format(time.RFC3339),
		Label: label,
	}
}

func saleRows(list []*sales.Sale) []saleRow {
	rows := make([]saleRow, len(list))
	for i, s := range list {
		rows[i] = saleRow{Sale: s, phoneDisplay: newPhoneDisplay(s.Phone1, s.Phone2)}
	}
	return rows
}

func returnRows(list []*sales.Return) []returnRow {
	rows := make([]returnRow, len(list))
	for i, r := range list {
		rows[i] = returnRow{Return: r, phoneDisplay: newPhoneDisplay(r.Phone1, r.Phone2)}
	}
	return rows
}

// weekOffset reads the week query parameter, 0 meaning the current week.
func weekOffset(ctx *gin.Context) (int, bool) {
	raw := strings.TrimSpace(ctx.Query("week"))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// handleSalesWeek handles GET /sales.
func (h *dashboardHandler) handleSalesWeek(ctx *gin.Context) {
	offset, ok := weekOffset(ctx)
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "week must be an integer"})
		return
	}

	view := h.service.SalesWeek(offset, ctx.Query("q"))
	ctx.JSON(http.StatusOK, salesResponse{
		Window:  newWindowResponse(view.Window, view.Label),
		Results: saleRows(view.Results),
		Summary: view.Summary,
		Display: summaryDisplay(view.Summary),
		Rate:    view.Rate,
	})
}

// summaryDisplay renders the four summary cells.
func summaryDisplay(s sales.Summary) map[string]string {
	return map[string]string{
		"purchaseTotal": format.Currency(s.PurchaseTotal.InexactFloat64(), "CZK"),
		"sellingTotal":  format.Currency(s.SellingTotal.InexactFloat64(), "CZK"),
		"profitTotal":   format.Currency(s.ProfitTotal.InexactFloat64(), "CZK"),
		"count":         strconv.Itoa(s.Count),
	}
}

// handleAddToReturns handles POST /sales/:id/return.
func (h *dashboardHandler) handleAddToReturns(ctx *gin.Context) {
	saleID := ctx.Param("id")

	r, err := h.service.AddToReturns(ctx.Request.Context(), saleID)
	if err != nil {
		if errors.Is(err, sales.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "sale not found"})
			return
		}
		h.logger.Error("failed to add sale to returns", zap.String("sale_id", saleID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add sale to returns: " + err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, r)
}

// handleReturnsWeek handles GET /returns.
func (h *dashboardHandler) handleReturnsWeek(ctx *gin.Context) {
	offset, ok := weekOffset(ctx)
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "week must be an integer"})
		return
	}

	view := h.service.ReturnsWeek(offset)
	ctx.JSON(http.StatusOK, returnsResponse{
		Window:   newWindowResponse(view.Window, view.Label),
		Results:  returnRows(view.Results),
		Counters: view.Counters,
	})
}

// handleToggleReturned handles PATCH /returns/:id/returned.
func (h *dashboardHandler) handleToggleReturned(ctx *gin.Context) {
	patch, err := h.service.ToggleReturned(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, sales.ErrNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "return not found"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	ctx.JSON(http.StatusOK, patch)
}

// handleSaveDeposit handles PUT /returns/:id/deposit. The deposit may be sent
// as a number or as the raw text typed into the field.
func (h *dashboardHandler) handleSaveDeposit(ctx *gin.Context) {
	var req struct {
		Deposit interface{} `json:"deposit"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	var raw string
	switch v := req.Deposit.(type) {
	case string:
		raw = v
	case float64:
		raw = strconv.FormatFloat(v, 'f', -1, 64)
	}

	deposit, err := h.service.SaveDeposit(ctx.Request.Context(), ctx.Param("id"), raw)
	if err != nil {
		switch {
		case errors.Is(err, sales.ErrNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "return not found"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"depositCzk": deposit})
}

// handleExchangeRate handles GET /settings/exchange-rate.
func (h *dashboardHandler) handleExchangeRate(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"plnToCzk": h.service.ExchangeRate()})
}
