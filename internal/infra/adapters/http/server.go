// Package http provides the HTTP server wiring for the crashlab API.
package http

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/crashlab/crashlab/internal/application/sdk/mid"
	handler "github.com/crashlab/crashlab/internal/infra/adapters/http/handler"
	"github.com/crashlab/crashlab/pkg/common/logger"
)

// Config carries the systems the routes need.
type Config struct {
	Log     *logger.Logger
	Metrics mid.APIMetrics
	Tests   *handler.TestHandler
}

// NewHTTPServer binds all application routes and wraps them with the
// standard middleware chain.
func NewHTTPServer(cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/tenants/{tenantID}/tests/{testID}", cfg.Tests.GetTest)
	mux.HandleFunc("GET /api/v1/tenants/{tenantID}/tests/{testID}/info", cfg.Tests.GetTestInfo)
	mux.HandleFunc("POST /api/v1/tenants/{tenantID}/tests", cfg.Tests.SaveTest)
	mux.HandleFunc("DELETE /api/v1/tenants/{tenantID}/tests/{testID}", cfg.Tests.DeleteTest)
	mux.HandleFunc("GET /api/v1/tenants/{tenantID}/tests", cfg.Tests.ListTests)
	mux.HandleFunc("DELETE /api/v1/tenants/{tenantID}/tests", cfg.Tests.DeleteTenantTests)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	chained := mid.Chain(mux,
		mid.Metrics(cfg.Metrics),
		mid.Logger(cfg.Log),
		mid.Panics(cfg.Log),
	)

	return otelhttp.NewHandler(chained, "http_request",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
