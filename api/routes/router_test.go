package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopeazy-backend/internal/cart"
	"github.com/angelmondragon/shopeazy-backend/internal/inventory"
	"github.com/angelmondragon/shopeazy-backend/internal/orders"
	"github.com/angelmondragon/shopeazy-backend/internal/products"
	"github.com/angelmondragon/shopeazy-backend/internal/reservation/reservationtest"
	"github.com/angelmondragon/shopeazy-backend/internal/sellers"
	"github.com/angelmondragon/shopeazy-backend/internal/sequence"
	"github.com/angelmondragon/shopeazy-backend/internal/users"
	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/db"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
	"github.com/angelmondragon/shopeazy-backend/pkg/outbox"
	"github.com/angelmondragon/shopeazy-backend/pkg/types"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "shopeazy-test", ExpirationMinutes: 60},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    32768,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := testConfig()

	conn := dbtest.Open(t)
	client := db.Wrap(conn)
	ledger, err := inventory.NewLedger(conn)
	require.NoError(t, err)
	issuer, err := sequence.NewIssuer(conn)
	require.NoError(t, err)
	env := reservationtest.Redis(t, ledger)
	events := outbox.NewService(outbox.NewRepository(conn), nil)

	usersRepo := users.NewRepository(conn)
	userSvc, err := users.NewService(users.ServiceParams{
		Repo:     usersRepo,
		Tx:       client,
		Issuer:   issuer,
		Password: cfg.Password,
		JWT:      cfg.JWT,
	})
	require.NoError(t, err)

	sellerRepo := sellers.NewRepository(conn)
	sellerSvc, err := sellers.NewService(sellerRepo, usersRepo, client, issuer)
	require.NoError(t, err)

	productRepo := products.NewRepository(conn)
	productSvc, err := products.NewService(products.ServiceParams{
		Repo:         productRepo,
		Sellers:      sellerRepo,
		Tx:           client,
		Issuer:       issuer,
		Ledger:       ledger,
		Reservations: env.Store,
		Outbox:       events,
	})
	require.NoError(t, err)

	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:         cartRepo,
		Tx:           client,
		Products:     productRepo,
		Reservations: env.Store,
		TTL:          15 * time.Minute,
		Now:          env.Clock.Now,
	})
	require.NoError(t, err)

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:         orders.NewRepository(conn),
		Tx:           client,
		Cart:         cartSvc,
		CartRepo:     cartRepo,
		Issuer:       issuer,
		Ledger:       ledger,
		Reservations: env.Store,
		Outbox:       events,
		Now:          env.Clock.Now,
	})
	require.NoError(t, err)

	return NewRouter(Dependencies{
		Config:    cfg,
		DB:        client,
		Redis:     stubPinger{},
		Gatherer:  prometheus.NewRegistry(),
		Users:     userSvc,
		Sellers:   sellerSvc,
		Products:  productSvc,
		Cart:      cartSvc,
		Orders:    orderSvc,
		Sequences: issuer,
	})
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error
}

func signup(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	resp := do(t, h, http.MethodPost, "/api/v1/users", "", map[string]string{
		"email":      email,
		"password":   "hunter2hunter2",
		"first_name": "Test",
		"last_name":  "User",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return login(t, h, email)
}

func login(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	resp := do(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var result struct {
		AccessToken string `json:"access_token"`
	}
	decodeData(t, resp, &result)
	require.NotEmpty(t, result.AccessToken)
	return result.AccessToken
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(t)

	resp := do(t, h, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-Shopeazy-Env"))

	resp = do(t, h, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewRouter(Dependencies{
		Config: testConfig(),
		DB:     stubPinger{},
		Redis:  stubPinger{err: errors.New("connection refused")},
	})

	resp := do(t, h, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	apiErr := decodeError(t, resp)
	assert.Equal(t, string(pkgerrors.CodeDependency), apiErr.Code)
}

func TestPrivateRoutesRejectMissingJWT(t *testing.T) {
	h := newTestRouter(t)

	for _, path := range []string{"/api/v1/cart", "/api/v1/orders"} {
		resp := do(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.Code, path)
	}
}

func TestRoleGuards(t *testing.T) {
	h := newTestRouter(t)
	token := signup(t, h, "buyer@example.com")

	resp := do(t, h, http.MethodPost, "/api/v1/products", token, map[string]any{
		"name": "Lamp", "price": "10.00", "stock_count": 1,
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = do(t, h, http.MethodPost, "/api/v1/admin/sequences/ORDER/reset", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h := newTestRouter(t)
	signup(t, h, "someone@example.com")

	resp := do(t, h, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "someone@example.com",
		"password": "not-the-password1",
	})
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCheckoutFlow(t *testing.T) {
	h := newTestRouter(t)

	sellerToken := signup(t, h, "seller@example.com")
	resp := do(t, h, http.MethodPost, "/api/v1/sellers", sellerToken, map[string]string{"company_name": "Acme"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var seller struct {
		SellerNumber string `json:"seller_number"`
	}
	decodeData(t, resp, &seller)
	assert.Equal(t, "000001", seller.SellerNumber)

	sellerToken = login(t, h, "seller@example.com")
	resp = do(t, h, http.MethodPost, "/api/v1/products", sellerToken, map[string]any{
		"name":        "Desk Lamp",
		"description": "Warm light",
		"price":       "10.00",
		"discount":    "10",
		"stock_count": 5,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var product struct {
		ID            uuid.UUID `json:"id"`
		ProductNumber string    `json:"product_number"`
	}
	decodeData(t, resp, &product)
	assert.Equal(t, "000001", product.ProductNumber)

	buyerToken := signup(t, h, "buyer@example.com")
	resp = do(t, h, http.MethodPut, "/api/v1/cart/items", buyerToken, map[string]any{
		"product_id": product.ID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = do(t, h, http.MethodGet, "/api/v1/products/"+product.ID.String()+"/availability", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var availability struct {
		Reserved  int `json:"reserved"`
		Available int `json:"available"`
	}
	decodeData(t, resp, &availability)
	assert.Equal(t, 2, availability.Reserved)
	assert.Equal(t, 3, availability.Available)

	resp = do(t, h, http.MethodPut, "/api/v1/cart/items", buyerToken, map[string]any{
		"product_id": product.ID,
		"quantity":   9,
	})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeOutOfStock), decodeError(t, resp).Code)

	resp = do(t, h, http.MethodPost, "/api/v1/orders", buyerToken, nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var order struct {
		ID          uuid.UUID       `json:"id"`
		OrderNumber string          `json:"order_number"`
		Status      string          `json:"status"`
		Total       decimal.Decimal `json:"total"`
	}
	decodeData(t, resp, &order)
	assert.Equal(t, "ORD-000001", order.OrderNumber)
	assert.Equal(t, "PENDING", order.Status)
	assert.True(t, decimal.NewFromInt(18).Equal(order.Total), "total %s", order.Total)

	resp = do(t, h, http.MethodGet, "/api/v1/products/"+product.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var stock struct {
		StockCount int `json:"stock_count"`
	}
	decodeData(t, resp, &stock)
	assert.Equal(t, 3, stock.StockCount)

	resp = do(t, h, http.MethodGet, "/api/v1/orders/"+order.ID.String(), sellerToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, h, http.MethodPost, "/api/v1/orders/"+order.ID.String()+"/cancel", buyerToken, map[string]string{"reason": "changed my mind"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = do(t, h, http.MethodGet, "/api/v1/orders?limit=10", buyerToken, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var page struct {
		Items []struct {
			Status string `json:"status"`
		} `json:"items"`
	}
	decodeData(t, resp, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "CANCELLED", page.Items[0].Status)

	resp = do(t, h, http.MethodPost, "/api/v1/orders", buyerToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decodeError(t, resp).Code)
}

func TestCartRejectsMalformedBody(t *testing.T) {
	h := newTestRouter(t)
	token := signup(t, h, "shopper@example.com")

	resp := do(t, h, http.MethodPut, "/api/v1/cart/items", token, map[string]any{"product_id": "nope", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, h, http.MethodPut, "/api/v1/cart/items", token, map[string]any{"product_id": uuid.New(), "quantity": -1})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, h, http.MethodDelete, "/api/v1/cart/items/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
