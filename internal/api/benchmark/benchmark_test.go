package benchmark

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/stockfolio/forex-service/internal/api"
	"github.com/stockfolio/forex-service/internal/logger"
	"github.com/stockfolio/forex-service/internal/service"
	"github.com/stockfolio/forex-service/internal/testutils"
)

// newBenchmarkRouter builds the router against a mock provider with the
// SEK table already cached.
func newBenchmarkRouter(b *testing.B) http.Handler {
	b.Helper()

	forex := testutils.NewMockForexServer()
	b.Cleanup(forex.Close)

	cfg := testutils.MockConfigWithMocks(forex.URL(), "http://127.0.0.1:0")
	log := logger.New("error")

	handlers := api.NewHandlers(api.HandlerConfig{
		Logger:   log,
		Resolver: service.NewResolver(cfg, log),
	})

	gin.SetMode(gin.TestMode)
	router := handlers.SetupRoutes()

	warmup := httptest.NewRecorder()
	router.ServeHTTP(warmup, httptest.NewRequest(http.MethodGet, "/api/forex-rates?base=SEK", nil))
	if warmup.Code != http.StatusOK {
		b.Fatalf("warmup status = %d", warmup.Code)
	}
	return router
}

func BenchmarkForexRatesCached(b *testing.B) {
	router := newBenchmarkRouter(b)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/forex-rates?base=SEK", nil))
			if w.Code != http.StatusOK {
				b.Errorf("status = %d", w.Code)
			}
		}
	})
}

func BenchmarkConvert(b *testing.B) {
	router := newBenchmarkRouter(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/convert?amount=123.45&currency=USD", nil))
		if w.Code != http.StatusOK {
			b.Fatalf("status = %d", w.Code)
		}
	}
}

func BenchmarkConvertToReference(b *testing.B) {
	rates := service.FallbackRates()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		service.ConvertToReference(float64(i), "EUR", rates)
	}
}
