package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"turks-backend/core"
	"turks-backend/middleware"
	"turks-backend/models"
	"turks-backend/services"
	"turks-backend/upload"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	logger *zap.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(logger *zap.Logger) *BaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseHandler{logger: logger}
}

// sendJSON sends a JSON response
func (h *BaseHandler) sendJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Warn("encode response failed", zap.Error(err))
		}
	}
}

// sendError translates err into the API error shape. Errors that carry no
// kind are logged and reported as INTERNAL_ERROR.
func (h *BaseHandler) sendError(w http.ResponseWriter, r *http.Request, err error) {
	var kinded core.KindedError
	if errors.As(err, &kinded) {
		middleware.WriteError(w, kinded.HTTPStatus(), kinded.ErrorKind(), messageOf(err), solutionFor(kinded.ErrorKind()))
		return
	}
	h.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	middleware.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error occurred", "")
}

// sendBadRequest reports a body the handler could not decode.
func (h *BaseHandler) sendBadRequest(w http.ResponseWriter, message string) {
	middleware.WriteError(w, http.StatusBadRequest, "INVALID_REQUEST", message, "Check the request body")
}

// parseJSON parses JSON from request
func (h *BaseHandler) parseJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// identity returns the principal Authenticate attached. Routes are only
// registered behind Authenticate, so a missing identity is a wiring bug.
func (h *BaseHandler) identity(w http.ResponseWriter, r *http.Request) (core.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.sendError(w, r, errors.New("route served without authentication"))
	}
	return id, ok
}

func messageOf(err error) string {
	var authErr *core.AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	var payErr *core.PaymentError
	if errors.As(err, &payErr) {
		return payErr.Message
	}
	var taskErr *core.TaskError
	if errors.As(err, &taskErr) {
		return taskErr.Message
	}
	return err.Error()
}

var solutions = map[string]string{
	string(core.AuthInvalidSignature):       "Sign the challenge message with the wallet you are signing in with",
	string(core.AuthInvalidPublicKey):       "Send the base58 wallet address as publicKey",
	string(core.AuthInvalidChallenge):       "Request a fresh challenge and sign its message",
	string(core.PaymentMissingSignature):    "Include the transaction signature of your payment",
	string(core.PaymentTransactionNotFound): "Wait for the transaction to confirm and retry",
	string(core.PaymentAmountMismatch):      "Pay exactly the amount from /v1/user/payment-request",
	string(core.PaymentRecipientMismatch):   "Pay the recipient from /v1/user/payment-request",
	string(core.PaymentAlreadyConsumed):     "Make a new payment for this task",
	string(core.PaymentLedgerUnavailable):   "Retry the request later",
	string(core.TaskInsufficientOptions):    "Add at least two image options",
	string(core.TaskInvalidTitle):           "Give the task a title",
	string(core.TaskInvalidOption):          "Every option needs an imageUrl",
}

func solutionFor(kind string) string { return solutions[kind] }

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// HealthHandler handles health check requests
type HealthHandler struct {
	*BaseHandler
	healthService *services.HealthService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(healthService *services.HealthService, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		BaseHandler:   NewBaseHandler(logger),
		healthService: healthService,
	}
}

// HandleHealth reports backend and dependency status.
// @Summary Health check
// @Tags System
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Failure 503 {object} models.HealthResponse
// @Router /health [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := h.healthService.GetHealthStatus(r.Context())
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	h.sendJSON(w, code, status)
}

// HandleRoot is the plain-text liveness probe.
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Backend is running!"))
}

// TaskHandler serves task creation and lookup.
type TaskHandler struct {
	*BaseHandler
	tasks *services.TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(tasks *services.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{BaseHandler: NewBaseHandler(logger), tasks: tasks}
}

// HandleCreateTask creates a task paid for by the referenced transaction.
// @Summary Create a paid task
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateTaskRequest true "Task and payment signature"
// @Success 200 {object} models.CreateTaskResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 402 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /v1/user/task [post]
func (h *TaskHandler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req models.CreateTaskRequest
	if err := h.parseJSON(w, r, &req); err != nil {
		h.sendBadRequest(w, "invalid JSON body")
		return
	}
	urls := make([]string, len(req.Options))
	for i, opt := range req.Options {
		urls[i] = opt.ImageURL
	}

	taskID, err := h.tasks.SubmitTask(r.Context(), id, req.Title, urls, req.Signature)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.sendJSON(w, http.StatusOK, models.CreateTaskResponse{ID: taskID})
}

// HandleGetTask returns one task. Users only see tasks they created.
// @Summary Get a task
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} core.Task
// @Failure 404 {object} models.ErrorResponse
// @Router /v1/user/task/{id} [get]
// @Router /v1/worker/task/{id} [get]
func (h *TaskHandler) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	task, err := h.tasks.GetTask(r.Context(), id, r.PathValue("id"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.sendJSON(w, http.StatusOK, task)
}

// HandleListTasks lists the caller's tasks, newest first.
// @Summary List my tasks
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.TaskListResponse
// @Router /v1/user/tasks [get]
func (h *TaskHandler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	list, total, err := h.tasks.ListTasks(r.Context(), id, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.sendJSON(w, http.StatusOK, models.TaskListResponse{Tasks: list, Total: total})
}

// UploadHandler hands out presigned image uploads.
type UploadHandler struct {
	*BaseHandler
	uploads *upload.Service
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploads *upload.Service, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{BaseHandler: NewBaseHandler(logger), uploads: uploads}
}

// HandlePresignedURL returns a presigned form upload for one image.
// @Summary Presign an image upload
// @Tags Uploads
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.PresignedURLResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /v1/user/presignedUrl [get]
func (h *UploadHandler) HandlePresignedURL(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	resp, err := h.uploads.Presign(r.Context(), id.PublicAddress)
	if errors.Is(err, upload.ErrNotConfigured) {
		middleware.WriteError(w, http.StatusServiceUnavailable, "UPLOADS_DISABLED",
			"Image uploads are not configured", "Set upload.bucket")
		return
	}
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.sendJSON(w, http.StatusOK, resp)
}

// PaymentHandler describes the payment a task requires.
type PaymentHandler struct {
	*BaseHandler
	requests *services.PaymentRequestService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(requests *services.PaymentRequestService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{BaseHandler: NewBaseHandler(logger), requests: requests}
}

// HandlePaymentRequest returns the treasury, price and a transfer-request
// URL. With ?qr=1 the response carries a PNG QR code of the URL.
// @Summary Payment request for one task
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param qr query bool false "Include a QR code"
// @Success 200 {object} models.PaymentRequestResponse
// @Router /v1/user/payment-request [get]
func (h *PaymentHandler) HandlePaymentRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	qr := r.URL.Query().Get("qr")
	resp, err := h.requests.Request(id.PublicAddress, qr == "1" || qr == "true")
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.sendJSON(w, http.StatusOK, resp)
}
