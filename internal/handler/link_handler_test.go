package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/SergeiKhy/linkhub/internal/handler"
	"github.com/SergeiKhy/linkhub/internal/middleware"
	"github.com/SergeiKhy/linkhub/internal/models"
	"github.com/SergeiKhy/linkhub/internal/service"
	"github.com/SergeiKhy/linkhub/internal/service/mocks"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const baseURL = "http://sho.rt"

type testEnv struct {
	router *gin.Engine
	store  *mocks.MockDocumentStore
	queue  service.ClickQueue
}

// setupRouter собирает роутер поверх моковых репозиториев
func setupRouter(t *testing.T, customerMiddleware gin.HandlerFunc) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	store := mocks.NewMockDocumentStore()
	resolver := service.NewResolver(store, mocks.NewMockLinkCache(), logger)
	links := service.NewLinkService(store, resolver, logger)
	customers := mocks.NewMockCustomerRepository(&models.Customer{ID: "cust-1", Plan: models.PlanEnterprise, MonthlyFee: 99})
	stats := service.NewStatsService(store, customers, logger, nil)

	queue := service.NewClickQueue(store, service.ClickQueueConfig{FlushDelay: time.Hour}, logger)
	queue.Start()
	t.Cleanup(queue.Stop)

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{RequestsPerSecond: 1000, BurstSize: 1000})
	t.Cleanup(rl.Stop)

	if customerMiddleware == nil {
		customerMiddleware = middleware.CustomerFromHeader()
	}
	h := handler.NewLinkHandler(links, stats, queue, baseURL, logger)
	return &testEnv{
		router: handler.NewRouter(h, rl, customerMiddleware, logger),
		store:  store,
		queue:  queue,
	}
}

func (e *testEnv) do(method, path, customer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if customer != "" {
		req.Header.Set(middleware.CustomerHeader, customer)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) create(t *testing.T, rawURL, customCode string) handler.CreateLinkResponse {
	t.Helper()
	w := e.do(http.MethodPost, "/api/v1/links", "cust-1", handler.CreateLinkRequest{URL: rawURL, CustomCode: customCode})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp handler.CreateLinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// TestRedirect проверяет редирект с партнёрскими метками и запись клика
func TestRedirect(t *testing.T) {
	env := setupRouter(t, nil)
	link := env.create(t, "https://example.com/a", "promo1")

	req := httptest.NewRequest(http.MethodGet, "/promo1", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Referer", "https://news.example.com")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "example.com", location.Host)
	assert.Equal(t, "/a", location.Path)
	assert.Equal(t, link.ID, location.Query().Get("l_id"))
	assert.Equal(t, "cust-1", location.Query().Get("a_id"))

	// Клик записывается асинхронно
	require.NoError(t, env.queue.Flush(context.Background()))
	clicks := env.store.Clicks("promo1")
	require.Len(t, clicks, 1)
	assert.Equal(t, "test-agent", clicks[0].UserAgent)
	assert.Equal(t, "https://news.example.com", clicks[0].Referer)
	assert.NotEmpty(t, clicks[0].IP)
}

// TestRedirect_NotFound проверяет неизвестный код
func TestRedirect_NotFound(t *testing.T) {
	env := setupRouter(t, nil)

	w := env.do(http.MethodGet, "/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
	assert.Zero(t, env.queue.Pending())
}

// TestCreateLink проверяет создание ссылки и коды ошибок
func TestCreateLink(t *testing.T) {
	env := setupRouter(t, nil)

	link := env.create(t, "https://example.com/a", "")
	assert.Len(t, link.ShortCode, service.DefaultCodeLength)
	assert.Equal(t, baseURL+"/"+link.ShortCode, link.ShortURL)
	assert.False(t, link.CustomCode)

	env.create(t, "https://example.com/b", "taken1")

	cases := []struct {
		name     string
		customer string
		body     any
		status   int
		errCode  string
	}{
		{"занятый код", "cust-1", handler.CreateLinkRequest{URL: "https://example.com", CustomCode: "taken1"}, http.StatusConflict, "code_exists"},
		{"невалидный URL", "cust-1", handler.CreateLinkRequest{URL: "not a url"}, http.StatusBadRequest, "invalid_url"},
		{"невалидный код", "cust-1", handler.CreateLinkRequest{URL: "https://example.com", CustomCode: "a!"}, http.StatusBadRequest, "invalid_code"},
		{"без клиента", "", handler.CreateLinkRequest{URL: "https://example.com"}, http.StatusBadRequest, "missing_customer"},
		{"пустое тело", "cust-1", map[string]string{}, http.StatusBadRequest, "invalid_request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/v1/links", tc.customer, tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.errCode)
		})
	}
}

// TestListLinks проверяет, что клиент видит только свои ссылки
func TestListLinks(t *testing.T) {
	env := setupRouter(t, nil)
	env.create(t, "https://example.com/a", "mine01")

	w := env.do(http.MethodPost, "/api/v1/links", "cust-2", handler.CreateLinkRequest{URL: "https://example.com/b"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodGet, "/api/v1/links", "cust-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Links []models.LinkSummary `json:"links"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Links, 1)
	assert.Equal(t, "mine01", resp.Links[0].ShortCode)
	assert.Equal(t, baseURL+"/mine01", resp.Links[0].ShortURL)
}

// TestUpdateLink проверяет правку адреса и видимость правки в редиректе
func TestUpdateLink(t *testing.T) {
	env := setupRouter(t, nil)
	link := env.create(t, "https://example.com/old", "edit01")

	// Прогреваем кэш ссылки
	w := env.do(http.MethodGet, "/edit01", "", nil)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	w = env.do(http.MethodPut, "/api/v1/links/"+link.ID, "cust-2", handler.UpdateLinkRequest{URL: "https://example.com/hijack"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPut, "/api/v1/links/"+link.ID, "cust-1", handler.UpdateLinkRequest{URL: "https://example.com/new"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/edit01", "", nil)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "https://example.com/new")
}

// TestBulkEditAndDelete проверяет массовые операции
func TestBulkEditAndDelete(t *testing.T) {
	env := setupRouter(t, nil)
	a := env.create(t, "http://example.com/a", "")
	b := env.create(t, "http://example.com/b", "")

	w := env.do(http.MethodPost, "/api/v1/links/bulk-edit", "cust-1", handler.BulkEditRequest{
		LinkIDs:     []string{a.ID, b.ID},
		Mode:        "find-replace",
		FindText:    "^http://",
		ReplaceText: "https://",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"updated":2}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/v1/links/bulk-edit", "cust-1", handler.BulkEditRequest{
		LinkIDs: []string{a.ID},
		Mode:    "shuffle",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodDelete, "/api/v1/links", "cust-1", handler.DeleteLinksRequest{LinkIDs: []string{a.ID}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":1}`, w.Body.String())

	w = env.do(http.MethodGet, "/"+a.ShortCode, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/"+b.ShortCode, "", nil)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "https://example.com/b")
}

// TestStats проверяет статистику ссылки и клиента
func TestStats(t *testing.T) {
	env := setupRouter(t, nil)
	env.create(t, "https://example.com/a", "stat01")

	for i := 0; i < 3; i++ {
		w := env.do(http.MethodGet, "/stat01", "", nil)
		require.Equal(t, http.StatusTemporaryRedirect, w.Code)
	}
	require.NoError(t, env.queue.Flush(context.Background()))

	w := env.do(http.MethodGet, "/api/v1/links/stat01/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.LinkStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.TotalClicks)
	assert.Equal(t, 1, stats.UniqueClicks)
	assert.Equal(t, 3, stats.Referrers["direct"])

	w = env.do(http.MethodGet, "/api/v1/links/nope00/stats", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/v1/customer/stats", "cust-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var customer models.CustomerStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &customer))
	assert.Equal(t, 1, customer.TotalLinks)
	assert.Equal(t, 3, customer.TotalClicks)
	assert.Equal(t, 10000, customer.PlanLimit)
	assert.Equal(t, "enterprise", customer.Plan)
}

// TestHealth проверяет health check
func TestHealth(t *testing.T) {
	env := setupRouter(t, nil)

	w := env.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","pending_clicks":0}`, w.Body.String())
}

// TestAPIKeyProtectsCustomerRoutes проверяет, что с ключами клиент берётся только из ключа
func TestAPIKeyProtectsCustomerRoutes(t *testing.T) {
	env := setupRouter(t, middleware.RequireAPIKey(map[string]string{"secret": "cust-1"}))

	w := env.do(http.MethodGet, "/api/v1/links", "cust-1", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/links", nil)
	req.Header.Set("X-API-Key", "secret")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Публичные эндпоинты доступны без ключа
	w = env.do(http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
