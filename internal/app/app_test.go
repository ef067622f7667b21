package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipt2pdf/internal/compose"
	"receipt2pdf/internal/receipt"
	u "receipt2pdf/internal/utils"
)

func testConfig(t *testing.T) u.Config {
	t.Helper()
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))

	var cfg u.Config
	cfg.RateLimiter.Interval = time.Minute
	cfg.Receipt.Assets = compose.AssetPaths{
		Logo:      filepath.Join(dir, "logo.png"),
		Watermark: filepath.Join(dir, "watermark.png"),
		Signature: filepath.Join(dir, "signature.png"),
	}
	for _, p := range []string{cfg.Receipt.Assets.Logo, cfg.Receipt.Assets.Watermark, cfg.Receipt.Assets.Signature} {
		require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	}
	cfg.Practice = receipt.Practice{
		SignerName:  "Ana Souza",
		SignerTaxID: "98765432100",
		Locality:    "Belo Horizonte, Minas Gerais",
		Service:     "atendimento psicológico",
	}
	return cfg
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, resp *http.Response) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestSetupApp_UnknownRouteIsJSON404(t *testing.T) {
	app := SetupApp(testConfig(t), nil, loadedKeys(nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, fiber.StatusNotFound, body.Error.Code)
	assert.Equal(t, "Not Found", body.Error.Message)
}

func TestJSONErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: jsonErrorHandler})
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("db password leaked") })
	app.Get("/wrapped", func(c *fiber.Ctx) error {
		return fmt.Errorf("render: %w", fiber.NewError(fiber.StatusConflict, "busy"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/plain", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal Server Error", decodeError(t, resp).Error.Message)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/wrapped", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "busy", decodeError(t, resp).Error.Message)
}

func TestSetupApp_ReceiptDownload(t *testing.T) {
	app := SetupApp(testConfig(t), nil, loadedKeys(nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/receipts",
		strings.NewReader("name=Maria+Silva&tax_id=12345678901&amount=150&date=2024-03-05"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, `attachment; filename="receipt_Maria Silva.pdf"`, resp.Header.Get("Content-Disposition"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestSetupApp_ValidationErrorIsJSON400(t *testing.T) {
	app := SetupApp(testConfig(t), nil, loadedKeys(nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/receipts",
		strings.NewReader(`{"name":"Maria Silva","tax_id":"12345678901","amount":0,"date":"2024-03-05"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, fiber.StatusBadRequest, body.Error.Code)
	assert.Equal(t, "missing required fields: amount", body.Error.Message)
}

func TestSetupApp_FormPage(t *testing.T) {
	app := SetupApp(testConfig(t), nil, loadedKeys(nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestSetupApp_HealthProbes(t *testing.T) {
	cfg := testConfig(t)
	app := SetupApp(cfg, nil, loadedKeys(nil))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/livez", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/readyz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NoError(t, os.Remove(cfg.Receipt.Assets.Logo))
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/readyz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestSetupApp_KeyStoreNotReady(t *testing.T) {
	app := SetupApp(testConfig(t), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	req.Header.Set("X-API-Key", "anything")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "api key store not ready", decodeError(t, resp).Error.Message)
}

func TestNewRateLimitStore(t *testing.T) {
	var cfg u.Config
	_, ok := newRateLimitStore(cfg).(*memoryStorage.Storage)
	assert.True(t, ok, "memory store without redis host")

	mrs, err := miniredis.Run()
	require.NoError(t, err)
	defer mrs.Close()

	cfg.Cache.RedisHost = mrs.Addr()
	store := newRateLimitStore(cfg)
	defer store.Close()
	require.NoError(t, store.Set("k", []byte("v"), time.Minute))
	assert.True(t, mrs.Exists("k"))
}

func TestNewRateLimitStore_FallsBackToMemory(t *testing.T) {
	var cfg u.Config
	cfg.Cache.RedisHost = "127.0.0.1:1"
	_, ok := newRateLimitStore(cfg).(*memoryStorage.Storage)
	assert.True(t, ok)
}
