package container

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"turks-backend/config"
	"turks-backend/core"
	"turks-backend/ledger"
	"turks-backend/models"
	"turks-backend/session"
	"turks-backend/signature"
)

type wallet struct {
	addr string
	priv ed25519.PrivateKey
}

func newWallet(t *testing.T) wallet {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return wallet{addr: signature.EncodeAddress(pub), priv: priv}
}

func (w wallet) sign(msg string) []int {
	sig := ed25519.Sign(w.priv, []byte(msg))
	out := make([]int, len(sig))
	for i, b := range sig {
		out[i] = int(b)
	}
	return out
}

type harness struct {
	t        *testing.T
	c        *Container
	srv      *httptest.Server
	ledger   *ledger.Static
	treasury wallet
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	treasury := newWallet(t)
	cfg := config.Default()
	cfg.Auth.UserSecret = "user-secret"
	cfg.Auth.WorkerSecret = "worker-secret"
	cfg.Payment.Treasury = treasury.addr
	cfg.Ledger.Driver = "static"
	cfg.Storage.Driver = "memory"
	require.NoError(t, cfg.Validate())

	c, err := NewContainer(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	srv := httptest.NewServer(c.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = c.Close()
	})

	static, ok := c.Ledger.(*ledger.Static)
	require.True(t, ok)
	return &harness{t: t, c: c, srv: srv, ledger: static, treasury: treasury}
}

func (h *harness) do(method, path, token string, body interface{}) (*http.Response, []byte) {
	h.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rdr)
	require.NoError(h.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := h.srv.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(h.t, err)
	return resp, buf.Bytes()
}

func (h *harness) signIn(role core.Role, w wallet) string {
	h.t.Helper()
	resp, body := h.do(http.MethodPost, "/v1/"+string(role)+"/signin", "", models.SignInRequest{
		PublicKey: w.addr,
		Signature: w.sign(session.DefaultMessages[role]),
	})
	require.Equal(h.t, http.StatusOK, resp.StatusCode, string(body))
	var out models.SignInResponse
	require.NoError(h.t, json.Unmarshal(body, &out))
	require.NotEmpty(h.t, out.Token)
	return "Bearer " + out.Token
}

func (h *harness) pay(sig string, payer wallet, lamports uint64) {
	h.ledger.Put(ledger.Transaction{
		Signature: sig,
		Transfers: []ledger.Transfer{{Source: payer.addr, Destination: h.treasury.addr, Lamports: lamports}},
	})
}

func errorKind(t *testing.T, body []byte) string {
	t.Helper()
	var e models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e.Error
}

func taskRequest(sig string, urls ...string) models.CreateTaskRequest {
	req := models.CreateTaskRequest{Title: "Which thumbnail is best?", Signature: sig}
	for _, u := range urls {
		req.Options = append(req.Options, models.TaskOptionRequest{ImageURL: u})
	}
	return req
}

func TestCreateTaskThenReplayIsConflict(t *testing.T) {
	h := newHarness(t)
	alice := newWallet(t)
	token := h.signIn(core.RoleUser, alice)
	h.pay("5igPay", alice, h.c.Config.Payment.PriceLamports)

	req := taskRequest("5igPay", "https://cdn.example/a.jpg", "https://cdn.example/b.jpg")
	resp, body := h.do(http.MethodPost, "/v1/user/task", token, req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var created models.CreateTaskResponse
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)

	resp, body = h.do(http.MethodPost, "/v1/user/task", token, req)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_CONSUMED", errorKind(t, body))

	resp, body = h.do(http.MethodGet, "/v1/user/tasks", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list models.TaskListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, created.ID, list.Tasks[0].ID)
}

func TestListTasksTotalCoversEveryPage(t *testing.T) {
	h := newHarness(t)
	alice := newWallet(t)
	token := h.signIn(core.RoleUser, alice)
	for _, sig := range []string{"5igA", "5igB", "5igC"} {
		h.pay(sig, alice, h.c.Config.Payment.PriceLamports)
		resp, body := h.do(http.MethodPost, "/v1/user/task", token,
			taskRequest(sig, "https://cdn.example/a.jpg", "https://cdn.example/b.jpg"))
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	}

	resp, body := h.do(http.MethodGet, "/v1/user/tasks?limit=1", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list models.TaskListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Tasks, 1)
	assert.Equal(t, 3, list.Total)
}

func TestSingleOptionNeverReachesLedger(t *testing.T) {
	h := newHarness(t)
	alice := newWallet(t)
	token := h.signIn(core.RoleUser, alice)

	resp, body := h.do(http.MethodPost, "/v1/user/task", token, taskRequest("5igPay", "https://cdn.example/a.jpg"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_OPTIONS", errorKind(t, body))
	assert.Zero(t, h.ledger.Calls())
}

func TestUnknownPaymentIsPaymentRequired(t *testing.T) {
	h := newHarness(t)
	token := h.signIn(core.RoleUser, newWallet(t))

	resp, body := h.do(http.MethodPost, "/v1/user/task", token,
		taskRequest("nope", "https://cdn.example/a.jpg", "https://cdn.example/b.jpg"))
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "TRANSACTION_NOT_FOUND", errorKind(t, body))
}

func TestWrongAuthScheme(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(http.MethodGet, "/v1/user/me", "Token abc", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_AUTH_FORMAT", errorKind(t, body))
}

func TestCreateTaskChecksCredentialsBeforeBody(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(http.MethodPost, "/v1/user/task", "Token abc", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_AUTH_FORMAT", errorKind(t, body))

	// an authenticated request still needs a JSON body
	token := h.signIn(core.RoleUser, newWallet(t))
	resp, _ = h.do(http.MethodPost, "/v1/user/task", token, nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRoleSeparation(t *testing.T) {
	h := newHarness(t)
	alice := newWallet(t)
	userToken := h.signIn(core.RoleUser, alice)
	workerToken := h.signIn(core.RoleWorker, newWallet(t))

	h.pay("sigA", alice, h.c.Config.Payment.PriceLamports)
	resp, body := h.do(http.MethodPost, "/v1/user/task", userToken,
		taskRequest("sigA", "https://cdn.example/a.jpg", "https://cdn.example/b.jpg"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var created models.CreateTaskResponse
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body = h.do(http.MethodGet, "/v1/worker/task/"+created.ID, userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", errorKind(t, body))

	resp, body = h.do(http.MethodPost, "/v1/user/task", workerToken,
		taskRequest("sigA", "https://cdn.example/a.jpg", "https://cdn.example/b.jpg"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", errorKind(t, body))

	resp, body = h.do(http.MethodGet, "/v1/worker/task/"+created.ID, workerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var task core.Task
	require.NoError(t, json.Unmarshal(body, &task))
	assert.Equal(t, alice.addr, task.Creator)
	assert.Len(t, task.Options, 2)

	resp, body = h.do(http.MethodGet, "/v1/worker/me", workerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me models.MeResponse
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "worker", me.Role)
}

func TestOtherUsersTaskIsNotFound(t *testing.T) {
	h := newHarness(t)
	alice, bob := newWallet(t), newWallet(t)
	aliceToken := h.signIn(core.RoleUser, alice)
	bobToken := h.signIn(core.RoleUser, bob)

	h.pay("sigA", alice, h.c.Config.Payment.PriceLamports)
	_, body := h.do(http.MethodPost, "/v1/user/task", aliceToken,
		taskRequest("sigA", "https://cdn.example/a.jpg", "https://cdn.example/b.jpg"))
	var created models.CreateTaskResponse
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body := h.do(http.MethodGet, "/v1/user/task/"+created.ID, bobToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "TASK_NOT_FOUND", errorKind(t, body))

	resp, _ = h.do(http.MethodGet, "/v1/user/task/"+created.ID, aliceToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSignInRejectsBadSignature(t *testing.T) {
	h := newHarness(t)
	alice := newWallet(t)
	resp, body := h.do(http.MethodPost, "/v1/user/signin", "", models.SignInRequest{
		PublicKey: alice.addr,
		Signature: alice.sign(session.DefaultMessages[core.RoleWorker]),
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "INVALID_SIGNATURE", errorKind(t, body))
}

func TestUploadsDisabledWithoutBucket(t *testing.T) {
	h := newHarness(t)
	token := h.signIn(core.RoleUser, newWallet(t))
	resp, body := h.do(http.MethodGet, "/v1/user/presignedUrl", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "UPLOADS_DISABLED", errorKind(t, body))
}

func TestPaymentRequest(t *testing.T) {
	h := newHarness(t)
	token := h.signIn(core.RoleUser, newWallet(t))
	resp, body := h.do(http.MethodGet, "/v1/user/payment-request?qr=1", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pr models.PaymentRequestResponse
	require.NoError(t, json.Unmarshal(body, &pr))
	assert.Equal(t, h.treasury.addr, pr.Recipient)
	assert.Equal(t, "0.1", pr.AmountSOL)
	assert.True(t, strings.HasPrefix(pr.URL, "solana:"+h.treasury.addr))
	assert.NotEmpty(t, pr.QRPNGBase64)
}

func TestSystemRoutes(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Backend is running!", string(body))

	resp, body = h.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"healthy"`)

	resp, body = h.do(http.MethodGet, "/docs/openapi.json", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, json.Valid(body))

	h.signIn(core.RoleUser, newWallet(t))
	resp, body = h.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "turks_signins_total")

	resp, _ = h.do(http.MethodOptions, "/v1/user/task", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3001", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestNonceMode(t *testing.T) {
	treasury := newWallet(t)
	cfg := config.Default()
	cfg.Auth.UserSecret = "user-secret"
	cfg.Auth.WorkerSecret = "worker-secret"
	cfg.Auth.RequireNonce = true
	cfg.Payment.Treasury = treasury.addr
	cfg.Ledger.Driver = "static"
	c, err := NewContainer(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()
	h := &harness{t: t, c: c, srv: srv}

	alice := newWallet(t)
	resp, body := h.do(http.MethodGet, "/v1/user/challenge?publicKey="+alice.addr, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ch models.ChallengeResponse
	require.NoError(t, json.Unmarshal(body, &ch))
	require.NotEmpty(t, ch.Nonce)

	signIn := models.SignInRequest{PublicKey: alice.addr, Signature: alice.sign(ch.Message)}
	resp, _ = h.do(http.MethodPost, "/v1/user/signin", "", signIn)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = h.do(http.MethodPost, "/v1/user/signin", "", signIn)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "INVALID_CHALLENGE", errorKind(t, body))
}

func TestNonceModeSameWalletBothRoles(t *testing.T) {
	treasury := newWallet(t)
	cfg := config.Default()
	cfg.Auth.UserSecret = "user-secret"
	cfg.Auth.WorkerSecret = "worker-secret"
	cfg.Auth.RequireNonce = true
	cfg.Payment.Treasury = treasury.addr
	cfg.Ledger.Driver = "static"
	c, err := NewContainer(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()
	h := &harness{t: t, c: c, srv: srv}

	alice := newWallet(t)
	challenge := func(role string) models.ChallengeResponse {
		resp, body := h.do(http.MethodGet, "/v1/"+role+"/challenge?publicKey="+alice.addr, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var ch models.ChallengeResponse
		require.NoError(t, json.Unmarshal(body, &ch))
		return ch
	}
	userCh := challenge("user")
	workerCh := challenge("worker")

	resp, _ := h.do(http.MethodPost, "/v1/user/signin", "",
		models.SignInRequest{PublicKey: alice.addr, Signature: alice.sign(userCh.Message)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.do(http.MethodPost, "/v1/worker/signin", "",
		models.SignInRequest{PublicKey: alice.addr, Signature: alice.sign(workerCh.Message)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
