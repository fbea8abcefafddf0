package container

import (
	"net/http"
	"time"

	"github.com/swaggo/swag"

	_ "turks-backend/docs"
	"turks-backend/middleware"
)

// Handler builds the HTTP surface: routes plus the global middleware chain.
func (c *Container) Handler() http.Handler {
	mux := http.NewServeMux()
	user := middleware.Authenticate(c.UserValidator, c.Logger, c.Metrics)
	worker := middleware.Authenticate(c.WorkerValidator, c.Logger, c.Metrics)

	route := func(pattern string, h http.HandlerFunc, mws ...func(http.Handler) http.Handler) {
		mws = append([]func(http.Handler) http.Handler{middleware.Instrument(c.Metrics, pattern)}, mws...)
		mux.Handle(pattern, middleware.Chain(h, mws...))
	}

	// Sign-in
	route("POST /v1/user/signin", c.UserAuthHandler.HandleSignIn, middleware.ContentType)
	route("POST /v1/worker/signin", c.WorkerAuthHandler.HandleSignIn, middleware.ContentType)
	route("GET /v1/user/challenge", c.UserAuthHandler.HandleChallenge)
	route("GET /v1/worker/challenge", c.WorkerAuthHandler.HandleChallenge)
	route("GET /v1/user/me", c.UserAuthHandler.HandleMe, user)
	route("GET /v1/worker/me", c.WorkerAuthHandler.HandleMe, worker)

	// User surface
	route("GET /v1/user/presignedUrl", c.UploadHandler.HandlePresignedURL, user)
	route("GET /v1/user/payment-request", c.PaymentHandler.HandlePaymentRequest, user)
	route("POST /v1/user/task", c.TaskHandler.HandleCreateTask, user, middleware.ContentType)
	route("GET /v1/user/task/{id}", c.TaskHandler.HandleGetTask, user)
	route("GET /v1/user/tasks", c.TaskHandler.HandleListTasks, user)

	// Worker surface
	route("GET /v1/worker/task/{id}", c.TaskHandler.HandleGetTask, worker)

	// System
	route("GET /health", c.HealthHandler.HandleHealth)
	route("GET /{$}", c.HealthHandler.HandleRoot)
	mux.HandleFunc("GET /docs/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "API docs unavailable", "")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	})
	if c.Metrics != nil {
		mux.Handle("GET /metrics", c.Metrics.Handler())
	}

	s := c.Config.Server
	return middleware.Chain(mux,
		middleware.Recovery(c.Logger),
		middleware.Logging(c.Logger),
		middleware.CORS(s.CORSOrigin),
		middleware.SecurityHeaders,
		middleware.RateLimit(s.RateLimit, time.Minute),
		middleware.Timeout(s.RequestTimeout),
	)
}
