package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sales_dashboard/internal/sales"
)

var testNow = time.Date(2025, time.May, 7, 14, 0, 0, 0, time.UTC)

func initRoutesTests(t *testing.T, opts RouteOptions) (*gin.Engine, *sales.LocalStorage, *sales.Board) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	store := sales.NewLocalStorage()
	board := sales.NewBoard(sales.DefaultExchangeRate, 10*time.Millisecond, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = board.Run(ctx, store)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	service := sales.NewService(store, board, logger,
		sales.WithLocation(time.UTC),
		sales.WithClock(func() time.Time { return testNow }),
	)

	router := gin.New()
	InitRoutes(router, service, logger, opts)
	return router, store, board
}

func doJSON(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestDashboard_FullFlow runs GET /sales -> POST return -> deposit -> toggle -> GET /returns.
func TestDashboard_FullFlow(t *testing.T) {
	router, store, board := initRoutesTests(t, RouteOptions{})

	require.NoError(t, store.PutSale(&sales.Sale{
		ID: "s1", ItemName: "Kabelka", Brand: "Prada", SaleDate: "2025-05-06",
		SalePriceCZK: 10000, PurchasePricePLN: 100, CustomerName: "Jana",
		Phone1: "420777111222", Phone2: "777 11 12 22",
	}))
	require.NoError(t, store.PutSale(&sales.Sale{
		ID: "s2", ItemName: "Hodinky", SaleDate: "2025-04-28", SalePriceCZK: 4000,
	}))
	store.SetRate(6)
	require.Eventually(t, func() bool {
		snap := board.Snapshot()
		return len(snap.Sales) == 2 && snap.Rate == 6
	}, time.Second, 5*time.Millisecond)

	t.Run("GET_SalesWeek", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/sales?q=prada", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(requestIDHeader))

		var response struct {
			Window struct {
				Start string `json:"start"`
				End   string `json:"end"`
				Label string `json:"label"`
			} `json:"window"`
			Results []struct {
				sales.Sale
				Phone1Display string `json:"phone1Display"`
				Phone2Display string `json:"phone2Display"`
			} `json:"results"`
			Summary sales.Summary     `json:"summary"`
			Display map[string]string `json:"display"`
			Rate    float64           `json:"rate"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "05.05.2025 – 11.05.2025", response.Window.Label)
		assert.Equal(t, "2025-05-05T00:00:00Z", response.Window.Start)
		assert.Equal(t, "2025-05-12T00:00:00Z", response.Window.End, "end is the exclusive bound")
		require.Len(t, response.Results, 1)
		assert.Equal(t, "s1", response.Results[0].ID)
		assert.Equal(t, "420777111222", response.Results[0].Phone1)
		assert.Equal(t, "+420 777 111 222", response.Results[0].Phone1Display)
		assert.Equal(t, "777 111 222", response.Results[0].Phone2Display)
		assert.Equal(t, 1, response.Summary.Count)
		assert.Equal(t, "9400", response.Summary.ProfitTotal.String())
		assert.Equal(t, "1", response.Display["count"])
		assert.Contains(t, response.Display["profitTotal"], "Kč")
		assert.Equal(t, 6.0, response.Rate)
	})

	t.Run("GET_SalesPreviousWeek", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/sales?week=-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Results []sales.Sale `json:"results"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Results, 1)
		assert.Equal(t, "s2", response.Results[0].ID)
	})

	t.Run("POST_AddToReturns", func(t *testing.T) {
		w := doJSON(router, http.MethodPost, "/sales/s1/return", nil)
		assert.Equal(t, http.StatusCreated, w.Code)

		var created sales.Return
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, "s1", created.ID)
		assert.Equal(t, "Kabelka", created.ItemName)
		assert.False(t, created.Returned)

		w = doJSON(router, http.MethodPost, "/sales/s1/return", nil)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Len(t, store.History(), 2)

		require.Eventually(t, func() bool { return len(board.Snapshot().Returns) == 1 }, time.Second, 5*time.Millisecond)
	})

	t.Run("PUT_Deposit", func(t *testing.T) {
		w := doJSON(router, http.MethodPut, "/returns/s1/deposit", map[string]string{"deposit": "1,5"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"depositCzk":1.5}`, w.Body.String())

		w = doJSON(router, http.MethodPut, "/returns/s1/deposit", map[string]interface{}{"deposit": 250})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"depositCzk":250}`, w.Body.String())
	})

	t.Run("PATCH_ToggleReturned", func(t *testing.T) {
		w := doJSON(router, http.MethodPatch, "/returns/s1/returned", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var patch sales.ReturnPatch
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &patch))
		require.NotNil(t, patch.Returned)
		assert.True(t, *patch.Returned)
		require.NotNil(t, patch.ReturnedAt)

		require.Eventually(t, func() bool { return board.Snapshot().Returns[0].Returned }, time.Second, 5*time.Millisecond)
	})

	t.Run("GET_ReturnsWeek", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/returns", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Results []struct {
				sales.Return
				Phone1Display string `json:"phone1Display"`
			} `json:"results"`
			Counters sales.ReturnCounters `json:"counters"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Results, 1)
		assert.Equal(t, "+420 777 111 222", response.Results[0].Phone1Display)
		assert.Equal(t, 250.0, response.Results[0].DepositCZK)
		assert.Equal(t, sales.ReturnCounters{Total: 1, Returned: 1, Remaining: 0, DepositTotal: 250}, response.Counters)
	})

	t.Run("GET_ExchangeRate", func(t *testing.T) {
		w := doJSON(router, http.MethodGet, "/settings/exchange-rate", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"plnToCzk":6}`, w.Body.String())
	})
}

func TestDashboard_Errors(t *testing.T) {
	router, _, _ := initRoutesTests(t, RouteOptions{})

	tests := []struct {
		method string
		path   string
		body   interface{}
		want   int
	}{
		{http.MethodGet, "/sales?week=abc", nil, http.StatusBadRequest},
		{http.MethodGet, "/returns?week=1.5", nil, http.StatusBadRequest},
		{http.MethodPost, "/sales/missing/return", nil, http.StatusNotFound},
		{http.MethodPatch, "/returns/missing/returned", nil, http.StatusNotFound},
		{http.MethodPut, "/returns/missing/deposit", map[string]string{"deposit": "1"}, http.StatusNotFound},
		{http.MethodGet, "/ping", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			w := doJSON(router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPut, "/returns/x/deposit", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboard_WriteRateLimit(t *testing.T) {
	router, _, _ := initRoutesTests(t, RouteOptions{WriteRPS: 0.001, WriteBurst: 1})

	w := doJSON(router, http.MethodPost, "/sales/missing/return", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPost, "/sales/missing/return", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = doJSON(router, http.MethodGet, "/sales", nil)
	assert.Equal(t, http.StatusOK, w.Code, "reads are not throttled")
}
