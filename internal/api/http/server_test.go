package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	appNegotiation "github.com/homematch/negotiation-engine/internal/application/negotiation"
	"github.com/homematch/negotiation-engine/internal/domain/negotiation"
	storemocks "github.com/homematch/negotiation-engine/internal/domain/negotiation/mocks"
	"github.com/homematch/negotiation-engine/internal/domain/notification"
	"github.com/homematch/negotiation-engine/internal/domain/pairing"
	"github.com/homematch/negotiation-engine/internal/infrastructure/memory"
	"github.com/homematch/negotiation-engine/internal/infrastructure/sse"
)

const (
	provider = "provider-1"
	seeker   = "seeker-1"
	stranger = "stranger-1"
)

type testAPI struct {
	handler http.Handler
	hub     *sse.Hub
}

func newTestAPI(t *testing.T, store negotiation.Store) *testAPI {
	t.Helper()
	if store == nil {
		store = memory.NewNegotiationStore()
	}
	dir := memory.NewPairingDirectory(pairing.Pairing{
		PairingID:  "pairing-1",
		ProviderID: provider,
		SeekerID:   seeker,
		Active:     true,
	})
	hub := sse.NewHub()
	reg := prometheus.NewRegistry()
	svc := appNegotiation.NewService(store, dir, hub, appNegotiation.NewMetrics(reg), 0, zerolog.Nop())
	srv := NewServer(svc, hub, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), "", zerolog.Nop())
	return &testAPI{handler: srv.Router(), hub: hub}
}

func (a *testAPI) do(t *testing.T, method, path, participant string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if participant != "" {
		req.Header.Set(DefaultParticipantHeader, participant)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeNegotiation(t *testing.T, rec *httptest.ResponseRecorder) negotiation.Negotiation {
	t.Helper()
	var n negotiation.Negotiation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &n))
	return n
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestNegotiationLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodPost, "/v1/negotiations", provider, map[string]interface{}{"pairingId": "pairing-1", "amount": 80000})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeNegotiation(t, rec)
	assert.Equal(t, negotiation.StatusPending, created.Status)
	assert.Equal(t, int64(80000), created.ProviderExpectation)

	rec = api.do(t, http.MethodPost, "/v1/negotiations", provider, map[string]interface{}{"pairingId": "pairing-1", "amount": 90000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.NegotiationID, decodeNegotiation(t, rec).NegotiationID)

	base := "/v1/negotiations/" + created.NegotiationID.String()
	rec = api.do(t, http.MethodPost, base+"/offers", seeker, map[string]interface{}{"amount": 60000, "note": "can we meet halfway?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, negotiation.StatusNegotiating, decodeNegotiation(t, rec).Status)

	rec = api.do(t, http.MethodPost, base+"/offers", provider, map[string]interface{}{"amount": 70000})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, base+"/annotations", seeker, map[string]interface{}{"note": "checking with family"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, base+"/accept", seeker, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	agreed := decodeNegotiation(t, rec)
	assert.Equal(t, negotiation.StatusAgreed, agreed.Status)
	require.NotNil(t, agreed.AgreedValue)
	assert.Equal(t, int64(70000), *agreed.AgreedValue)

	rec = api.do(t, http.MethodGet, base, provider, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var h negotiation.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Len(t, h.Events, 5)
	assert.NoError(t, negotiation.Verify(h.Negotiation, h.Events))

	rec = api.do(t, http.MethodGet, "/v1/pairings/pairing-1/negotiation", seeker, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, base+"/reject", provider, map[string]interface{}{"note": "too late"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(t, rec))
}

func TestErrorResponses(t *testing.T) {
	api := newTestAPI(t, nil)
	rec := api.do(t, http.MethodPost, "/v1/negotiations", provider, map[string]interface{}{"pairingId": "pairing-1", "amount": 80000})
	require.Equal(t, http.StatusCreated, rec.Code)
	base := "/v1/negotiations/" + decodeNegotiation(t, rec).NegotiationID.String()

	tests := []struct {
		name        string
		method      string
		path        string
		participant string
		body        interface{}
		status      int
		code        string
	}{
		{"missing identity", http.MethodGet, base, "", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"stranger reads", http.MethodGet, base, stranger, nil, http.StatusForbidden, "NOT_PARTICIPANT"},
		{"stranger offers", http.MethodPost, base + "/offers", stranger, map[string]interface{}{"amount": 1}, http.StatusForbidden, "NOT_PARTICIPANT"},
		{"seeker creates", http.MethodPost, "/v1/negotiations", seeker, map[string]interface{}{"pairingId": "pairing-1", "amount": 1}, http.StatusForbidden, "NOT_PARTICIPANT"},
		{"zero amount", http.MethodPost, base + "/offers", seeker, map[string]interface{}{"amount": 0}, http.StatusBadRequest, "AMOUNT_INVALID"},
		{"blank note", http.MethodPost, base + "/annotations", seeker, map[string]interface{}{"note": " "}, http.StatusBadRequest, "NOTE_REQUIRED"},
		{"accept while pending", http.MethodPost, base + "/accept", seeker, nil, http.StatusConflict, "INVALID_TRANSITION"},
		{"unknown pairing", http.MethodPost, "/v1/negotiations", provider, map[string]interface{}{"pairingId": "pairing-9", "amount": 1}, http.StatusNotFound, "PAIRING_NOT_FOUND"},
		{"unknown negotiation", http.MethodGet, "/v1/negotiations/" + uuid.New().String(), seeker, nil, http.StatusNotFound, "NEGOTIATION_NOT_FOUND"},
		{"malformed id", http.MethodGet, "/v1/negotiations/not-a-uuid", seeker, nil, http.StatusBadRequest, "INVALID_PARAM"},
		{"unknown field", http.MethodPost, base + "/offers", seeker, map[string]interface{}{"price": 5}, http.StatusBadRequest, "INVALID_PARAM"},
		{"missing pairing id", http.MethodPost, "/v1/negotiations", provider, map[string]interface{}{"amount": 5}, http.StatusBadRequest, "INVALID_PARAM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.participant, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestStoreFailureIsInternalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := storemocks.NewMockStore(ctrl)
	store.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, errors.New("dial tcp: connection refused"))
	api := newTestAPI(t, store)

	rec := api.do(t, http.MethodGet, "/v1/negotiations/"+uuid.New().String(), seeker, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rec))
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	api.do(t, http.MethodPost, "/v1/negotiations", provider, map[string]interface{}{"pairingId": "pairing-1", "amount": 80000})
	rec = api.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `negotiation_commits_total{action="offer"} 1`)
}

func TestStreamDeliversTransitions(t *testing.T) {
	api := newTestAPI(t, nil)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/negotiations/stream", nil)
	require.NoError(t, err)
	req.Header.Set(DefaultParticipantHeader, seeker)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)
	require.Eventually(t, func() bool { return api.hub.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	rec := api.do(t, http.MethodPost, "/v1/negotiations", provider, map[string]interface{}{"pairingId": "pairing-1", "amount": 80000})
	require.Equal(t, http.StatusCreated, rec.Code)

	var data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			break
		}
	}
	var msg notification.SSEMessage
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	assert.Equal(t, notification.EventTransition, msg.Event)
	var tr notification.Transition
	require.NoError(t, json.Unmarshal(msg.Data, &tr))
	assert.Equal(t, "PENDING", tr.Status)
	assert.Equal(t, "offer", tr.Action)
}
