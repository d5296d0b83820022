package integrationtests

import (
	bidding "claimed-world/internal/biddingService"
	model "claimed-world/internal/models"
	"claimed-world/internal/notify"
	"claimed-world/internal/payment"
	"claimed-world/internal/repository"
	"claimed-world/internal/server"
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// TestEnv is a full server wired to the in-process payment gateway
type TestEnv struct {
	Router  *gin.Engine
	Repo    *repository.MemoryRepo
	Gateway *payment.LocalGateway
	Webhook *payment.Webhook
	Hub     *notify.Hub
}

// SetupTestEnv initializes the router with an in-memory ledger seeded with items.
func SetupTestEnv(t *testing.T, items ...model.Item) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	for _, item := range items {
		repo.AddItem(item)
	}

	signer, err := payment.NewIntentSigner("integration-intent-secret", time.Hour)
	require.NoError(t, err)
	webhook, err := payment.NewWebhook("integration-webhook-secret", payment.DefaultTolerance, signer)
	require.NoError(t, err)
	gateway := payment.NewLocalGateway("http://localhost", "eur", webhook)
	hub := notify.NewHub(notify.DefaultBuffer)
	t.Cleanup(hub.Close)

	service := bidding.NewBiddingService(repo,
		bidding.WithGateway(gateway, signer),
		bidding.WithPublisher(hub),
	)

	router := server.SetupRouter(server.Dependencies{
		Service:  service,
		Webhook:  webhook,
		Hub:      hub,
		Checkout: gateway,
	})
	return &TestEnv{Router: router, Repo: repo, Gateway: gateway, Webhook: webhook, Hub: hub}
}

// ExecuteRequestAndParse executes an HTTP request on the router as userID and parses the
// response envelope. An empty userID sends no identity header.
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, userID string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(server.UserIDHeader, userID)
	}
	router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// ProposeBid opens a bid intent and returns its checkout session id
func (e *TestEnv) ProposeBid(t *testing.T, userID string, req any) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, e.Router, "POST", "/intents", userID, req)
	require.Equal(t, 201, w.Code, w.Body.String())
	return resp["data"].(map[string]any)["session_id"].(string)
}

// Checkout completes the session and returns the settlement envelope
func (e *TestEnv) Checkout(t *testing.T, sessionID string) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	return ExecuteRequestAndParse(t, e.Router, "POST", "/checkout/"+sessionID, "", nil)
}

// Claim proposes and pays a bid, requiring it to win
func (e *TestEnv) Claim(t *testing.T, userID, itemID string, amount int64) map[string]any {
	t.Helper()
	sessionID := e.ProposeBid(t, userID, map[string]any{"item_id": itemID, "amount": amount})
	resp, w := e.Checkout(t, sessionID)
	require.Equal(t, 200, w.Code, w.Body.String())
	data := resp["data"].(map[string]any)
	require.Equal(t, "committed", data["outcome"])
	return data
}

// DeliverWebhook posts a gateway delivery with the given signature header
func (e *TestEnv) DeliverWebhook(t *testing.T, payload []byte, signature string) (map[string]any, int) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(payment.SignatureHeader, signature)
	e.Router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp, w.Code
}
