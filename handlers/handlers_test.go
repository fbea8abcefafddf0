package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"turks-backend/core"
	"turks-backend/middleware"
	"turks-backend/models"
	"turks-backend/services"
	"turks-backend/storage/tasks"
	"turks-backend/upload"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestSendErrorMapsKinds(t *testing.T) {
	h := NewBaseHandler(zap.NewNop())
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{core.NewAuthError(core.AuthInvalidSignature, "bad sig", nil), http.StatusForbidden, "INVALID_SIGNATURE"},
		{core.NewPaymentError(core.PaymentAlreadyConsumed, "used", nil), http.StatusConflict, "ALREADY_CONSUMED"},
		{core.NewPaymentError(core.PaymentAmountMismatch, "short", nil), http.StatusPaymentRequired, "AMOUNT_MISMATCH"},
		{fmt.Errorf("wrapped: %w", core.NewTaskError(core.TaskNotFound, "gone")), http.StatusNotFound, "TASK_NOT_FOUND"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.sendError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			assert.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tc.kind, body.Error)
			assert.NotContains(t, body.Message, "disk on fire")
		})
	}
}

type stubAttestor struct{}

func (stubAttestor) AttestPayment(context.Context, string, string) (core.PaymentProof, error) {
	return core.PaymentProof{}, core.NewPaymentError(core.PaymentTransactionNotFound, "not found", nil)
}
func (stubAttestor) Treasury() string { return "treasury" }
func (stubAttestor) Price() uint64    { return 1 }

func withUser(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), core.Identity{PublicAddress: "alice", Role: core.RoleUser}))
}

func TestCreateTaskRejectsMalformedJSON(t *testing.T) {
	svc := services.NewTaskService(stubAttestor{}, tasks.NewMemoryStore(), nil, nil, nil)
	h := NewTaskHandler(svc, nil)

	req := withUser(httptest.NewRequest(http.MethodPost, "/v1/user/task", strings.NewReader("{not json")))
	rec := httptest.NewRecorder()
	h.HandleCreateTask(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, rec).Error)
}

func TestCreateTaskSurfacesPaymentKind(t *testing.T) {
	svc := services.NewTaskService(stubAttestor{}, tasks.NewMemoryStore(), nil, nil, nil)
	h := NewTaskHandler(svc, nil)

	body := `{"title":"pick","options":[{"imageUrl":"a"},{"imageUrl":"b"}],"signature":"sig"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/v1/user/task", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	h.HandleCreateTask(rec, req)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "TRANSACTION_NOT_FOUND", resp.Error)
	assert.NotEmpty(t, resp.Solution)
}

func TestHandlerWithoutIdentityIsInternalError(t *testing.T) {
	h := NewTaskHandler(services.NewTaskService(stubAttestor{}, tasks.NewMemoryStore(), nil, nil, nil), nil)
	rec := httptest.NewRecorder()
	h.HandleListTasks(rec, httptest.NewRequest(http.MethodGet, "/v1/user/tasks", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListTasksEmpty(t *testing.T) {
	h := NewTaskHandler(services.NewTaskService(stubAttestor{}, tasks.NewMemoryStore(), nil, nil, nil), nil)
	rec := httptest.NewRecorder()
	h.HandleListTasks(rec, withUser(httptest.NewRequest(http.MethodGet, "/v1/user/tasks?limit=x", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tasks":[],"total":0}`, rec.Body.String())
}

func TestPresignedURLDisabled(t *testing.T) {
	h := NewUploadHandler(upload.NewService(upload.Disabled{}, ""), nil)
	rec := httptest.NewRecorder()
	h.HandlePresignedURL(rec, withUser(httptest.NewRequest(http.MethodGet, "/v1/user/presignedUrl", nil)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UPLOADS_DISABLED", decode(t, rec).Error)
}

func TestRootAndHealth(t *testing.T) {
	h := NewHealthHandler(services.NewHealthService(nil), nil)

	rec := httptest.NewRecorder()
	h.HandleRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "Backend is running!", rec.Body.String())

	rec = httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
