package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/compat/internal/core"
	"github.com/agenthands/compat/internal/core/model"
	"github.com/agenthands/compat/internal/driver"
	"github.com/agenthands/compat/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const sampleCSV = "Product ID,Compatible Product IDs\nproduct-1,\"product-2,product-3\"\n"

type failingSave struct {
	*driver.MemoryPersistence
	fail bool
}

func (f *failingSave) Save(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryPersistence.Save(ctx, key, value)
}

type stubProvider struct {
	products []model.Product
	err      error
}

func (p stubProvider) FetchProducts(context.Context) ([]model.Product, error) {
	return p.products, p.err
}

type testEnv struct {
	engine      *core.Engine
	router      *gin.Engine
	persistence *failingSave
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := &failingSave{MemoryPersistence: driver.NewMemoryPersistence()}

	reg := prometheus.NewRegistry()
	engine := core.Open(context.Background(), p, core.Options{}, logger)
	engine.Metrics = metrics.New(reg)

	srv := NewServer(engine, reg, 1024, logger)
	return &testEnv{engine: engine, router: srv.SetupRouter(), persistence: p}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	env := setup(t)
	w := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestUpload_RawBody(t *testing.T) {
	env := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/compatibility/upload", strings.NewReader(sampleCSV))
	req.Header.Set("Content-Type", "text/csv")
	w := env.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(1), body["records"])
	assert.Equal(t, true, body["persisted"])
	assert.NotEmpty(t, body["id"])
}

func TestUpload_Multipart(t *testing.T) {
	env := setup(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "compat.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(sampleCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/compatibility/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := env.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.engine.Records(), 1)
}

func TestUpload_ValidationFailure(t *testing.T) {
	env := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/compatibility/upload", strings.NewReader("SKU\nA\n"))
	w := env.do(req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode[core.UploadResult](t, w)
	assert.Equal(t, core.StatusError, body.Status)
	assert.Contains(t, body.Errors, "Missing required columns: Product ID, Compatible Product IDs")
}

func TestUpload_TooLarge(t *testing.T) {
	env := setup(t)

	big := "Product ID,Compatible Product IDs\n" + strings.Repeat("a,b\n", 1000)
	w := env.do(httptest.NewRequest(http.MethodPost, "/compatibility/upload", strings.NewReader(big)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, env.engine.Records())
}

func TestUpload_PersistFailure(t *testing.T) {
	env := setup(t)
	env.persistence.fail = true

	w := env.do(httptest.NewRequest(http.MethodPost, "/compatibility/upload", strings.NewReader(sampleCSV)))

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, false, body["persisted"])
	assert.Contains(t, body["error"], "disk full")
	assert.Len(t, env.engine.Records(), 1)
}

func TestCompatibleProductsAndMissing(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	require.NoError(t, env.engine.ReplaceCatalog(ctx, []model.Product{{ID: "product-2", Title: "Two"}}))
	env.do(httptest.NewRequest(http.MethodPost, "/compatibility/upload", strings.NewReader(sampleCSV)))

	w := env.do(httptest.NewRequest(http.MethodGet, "/compatibility/product-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		ProductID string                    `json:"productId"`
		Products  []model.ResolvedReference `json:"products"`
	}](t, w)
	assert.Equal(t, "product-1", body.ProductID)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "Two", body.Products[0].Product.Title)

	w = env.do(httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.JSONEq(t, `{"missing":["product-3"]}`, w.Body.String())

	w = env.do(httptest.NewRequest(http.MethodGet, "/compatibility/unknown", nil))
	assert.JSONEq(t, `{"productId":"unknown","products":[]}`, w.Body.String())
}

func TestListRecords(t *testing.T) {
	env := setup(t)
	env.do(httptest.NewRequest(http.MethodPost, "/compatibility/upload", strings.NewReader(sampleCSV)))

	w := env.do(httptest.NewRequest(http.MethodGet, "/compatibility", nil))
	assert.JSONEq(t, `{"records":[{"productId":"product-1","compatibleProductIds":["product-2","product-3"]}]}`, w.Body.String())

	w = env.do(httptest.NewRequest(http.MethodGet, "/compatibility?q=PRODUCT", nil))
	body := decode[map[string][]map[string]any](t, w)
	require.Len(t, body["overview"], 1)
	assert.Equal(t, float64(2), body["overview"][0]["missing"])
}

func TestSettings(t *testing.T) {
	env := setup(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/settings", nil))
	assert.JSONEq(t, `{"showMissingProducts":false,"enableWidget":true,"widgetTitle":"Compatible Products","widgetPosition":"below-description"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodPatch, "/settings", strings.NewReader(`{"widgetPosition":"product-tabs"}`))
	req.Header.Set("Content-Type", "application/json")
	w = env.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"persisted":true,"settings":{"showMissingProducts":false,"enableWidget":true,"widgetTitle":"Compatible Products","widgetPosition":"product-tabs"}}`, w.Body.String())

	w = env.do(httptest.NewRequest(http.MethodPatch, "/settings", strings.NewReader(`{"enableWidget":"yes"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWidget(t *testing.T) {
	env := setup(t)
	env.do(httptest.NewRequest(http.MethodPost, "/compatibility/upload", strings.NewReader(sampleCSV)))

	w := env.do(httptest.NewRequest(http.MethodGet, "/widget/product-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"enabled":true,"title":"Compatible Products","position":"below-description","products":[]}`, w.Body.String())
}

func TestCatalog(t *testing.T) {
	env := setup(t)

	w := env.do(httptest.NewRequest(http.MethodPost, "/catalog/refresh", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	env.engine.Provider = stubProvider{products: []model.Product{{ID: "1"}, {ID: "2"}}}
	w = env.do(httptest.NewRequest(http.MethodPost, "/catalog/refresh", nil))
	assert.JSONEq(t, `{"products":2,"persisted":true}`, w.Body.String())

	env.engine.Provider = stubProvider{err: errors.New("timeout")}
	w = env.do(httptest.NewRequest(http.MethodPost, "/catalog/refresh", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	req := httptest.NewRequest(http.MethodPut, "/catalog", strings.NewReader(`[{"id":"9","title":"Nine"}]`))
	req.Header.Set("Content-Type", "application/json")
	w = env.do(req)
	assert.JSONEq(t, `{"products":1,"persisted":true}`, w.Body.String())

	w = env.do(httptest.NewRequest(http.MethodGet, "/catalog", nil))
	assert.JSONEq(t, `{"products":[{"id":"9","title":"Nine","price":"","handle":""}]}`, w.Body.String())
}

func TestReplaceCatalog_CountsDistinctProducts(t *testing.T) {
	env := setup(t)
	body := `[{"id":"1","title":"old"},{"id":"2"},{"id":"1","title":"new"}]`

	w := env.do(httptest.NewRequest(http.MethodPut, "/catalog", strings.NewReader(body)))
	assert.JSONEq(t, `{"products":2,"persisted":true}`, w.Body.String())

	env.persistence.fail = true
	w = env.do(httptest.NewRequest(http.MethodPut, "/catalog", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]any](t, w)
	assert.Equal(t, float64(2), resp["products"])
	assert.Equal(t, false, resp["persisted"])
	assert.Contains(t, resp["error"], "disk full")
}

func TestAnalytics(t *testing.T) {
	env := setup(t)
	env.do(httptest.NewRequest(http.MethodPost, "/compatibility/upload", strings.NewReader(sampleCSV)))

	w := env.do(httptest.NewRequest(http.MethodGet, "/analytics", nil))
	assert.JSONEq(t, `{"totalRecords":1,"totalRelationships":2,"averagePerRecord":2,"catalogProducts":0,"missingProducts":2,"completeness":0}`, w.Body.String())
}

func TestTemplate(t *testing.T) {
	env := setup(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/template.csv", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Product ID,Compatible Product IDs\n"))
}

func TestMetrics(t *testing.T) {
	env := setup(t)
	env.do(httptest.NewRequest(http.MethodPost, "/compatibility/upload", strings.NewReader(sampleCSV)))

	w := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `compat_uploads_total{result="success"} 1`)
}
