package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"turks-backend/core"
	"turks-backend/logging"
	"turks-backend/metrics"
	"turks-backend/models"
	"turks-backend/session"
	"turks-backend/signature"
)

// AuthHandler serves wallet sign-in for one role.
type AuthHandler struct {
	*BaseHandler
	issuer  *session.Issuer
	metrics *metrics.Metrics
}

// NewAuthHandler builds an AuthHandler around a role's issuer.
func NewAuthHandler(issuer *session.Issuer, logger *zap.Logger, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{BaseHandler: NewBaseHandler(logger), issuer: issuer, metrics: m}
}

// HandleSignIn verifies a wallet signature and returns a session token.
// Request: {"publicKey":"<base58>","signature":[...64 bytes]}
// @Summary Sign in with a wallet signature
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.SignInRequest true "Wallet address and signature"
// @Success 200 {object} models.SignInResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /v1/user/signin [post]
// @Router /v1/worker/signin [post]
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := h.parseJSON(w, r, &req); err != nil {
		h.sendBadRequest(w, "invalid JSON body")
		return
	}
	sig, err := signature.SignatureFromInts(req.Signature)
	if err != nil {
		h.fail(w, r, core.NewAuthError(core.AuthInvalidSignature, "signature must be an array of bytes", err))
		return
	}

	tok, err := h.issuer.Login(req.PublicKey, sig)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.metrics.SignIn(string(h.issuer.Role()))
	h.logger.Info("signed in", logging.Wallet(tok.Identity.PublicAddress), zap.String("role", string(tok.Identity.Role)))
	h.sendJSON(w, http.StatusOK, models.SignInResponse{Token: tok.Token, ExpiresAt: tok.ExpiresAt})
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if kind := core.KindOf(err); kind != "" {
		h.metrics.AuthFailure(kind)
	}
	h.sendError(w, r, err)
}

// HandleChallenge returns the message a wallet must sign. In nonce mode each
// call issues a fresh single-use nonce for publicKey.
// @Summary Sign-in challenge
// @Tags Auth
// @Produce json
// @Param publicKey query string false "Wallet address (required in nonce mode)"
// @Success 200 {object} models.ChallengeResponse
// @Router /v1/user/challenge [get]
// @Router /v1/worker/challenge [get]
func (h *AuthHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := h.issuer.Challenge(r.URL.Query().Get("publicKey"))
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.sendJSON(w, http.StatusOK, models.ChallengeResponse{Message: ch.Message, Nonce: ch.Nonce, ExpiresAt: ch.ExpiresAt})
}

// HandleMe echoes the authenticated principal.
// @Summary Current session
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.MeResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /v1/user/me [get]
// @Router /v1/worker/me [get]
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	h.sendJSON(w, http.StatusOK, models.MeResponse{UserID: id.PublicAddress, Role: string(id.Role)})
}
