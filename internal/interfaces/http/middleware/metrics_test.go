package middleware

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/erp/stockrecon/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return mp, reader
}

func findMetricByName(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	r := gin.New()
	r.Use(HTTPMetrics(nil, zap.NewNop()))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, "GET", "/test", nil).Code)
}

func TestHTTPMetrics_RequestCounter(t *testing.T) {
	mp, reader := setupTestMeter(t)

	r := gin.New()
	r.Use(HTTPMetrics(mp.Meter("http.server"), zap.NewNop()))
	r.Use(func(c *gin.Context) {
		c.Set(logger.GinStoreIDKey, "store-a")
		c.Next()
	})
	r.GET("/stock/:product_id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusConflict) })

	serve(r, "GET", "/stock/1", nil)
	serve(r, "GET", "/stock/2", nil)
	serve(r, "GET", "/fail", nil)

	m := findMetricByName(t, reader, "http_server_request_total")
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		route, _ := dp.Attributes.Value("http.route")
		status, _ := dp.Attributes.Value("http.status_code")
		store, _ := dp.Attributes.Value("store_id")
		assert.Equal(t, "store-a", store.AsString())
		counts[route.AsString()+"|"+status.Emit()] += dp.Value
	}
	assert.Equal(t, int64(2), counts["/stock/:product_id|200"])
	assert.Equal(t, int64(1), counts["/fail|409"])

	assert.NotNil(t, findMetricByName(t, reader, "http_server_request_duration_seconds"))
	assert.NotNil(t, findMetricByName(t, reader, "http_server_response_size_bytes"))
}

func TestHTTPMetrics_RequestSizeAndUnknownRoute(t *testing.T) {
	mp, reader := setupTestMeter(t)

	r := gin.New()
	r.Use(HTTPMetrics(mp.Meter("http.server"), zap.NewNop()))
	r.POST("/movements", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := strings.Repeat("x", 300)
	w := postBody(r, "/movements", req)
	assert.Equal(t, http.StatusCreated, w.Code)
	serve(r, "GET", "/nowhere", nil)

	size := findMetricByName(t, reader, "http_server_request_size_bytes")
	require.NotNil(t, size)
	hist := size.Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, float64(300), hist.DataPoints[0].Sum)

	total := findMetricByName(t, reader, "http_server_request_total")
	require.NotNil(t, total)
	var sawUnknown bool
	for _, dp := range total.Data.(metricdata.Sum[int64]).DataPoints {
		if route, _ := dp.Attributes.Value("http.route"); route.AsString() == "unknown" {
			sawUnknown = true
		}
	}
	assert.True(t, sawUnknown)
}
