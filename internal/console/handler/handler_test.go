package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/spaceai-console/internal/audit"
	"github.com/xela07ax/spaceai-console/internal/console/service"
	"github.com/xela07ax/spaceai-console/internal/domain"
	"github.com/xela07ax/spaceai-console/internal/entity"
	"github.com/xela07ax/spaceai-console/internal/infra/auth"
	"github.com/xela07ax/spaceai-console/internal/kv"
	"github.com/xela07ax/spaceai-console/internal/metrics"
)

// withScopes подкладывает в запрос claims, как это делает auth middleware
func withScopes(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &domain.CustomClaims{UserID: "tester", Scopes: map[string]bool{}}
			for _, s := range scopes {
				claims.Scopes[s] = true
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

func newAgentsRouter(t *testing.T, scopes ...string) (http.Handler, *service.Collection[domain.Agent, domain.AgentStats]) {
	t.Helper()
	store := entity.New(service.AgentKind(nil), kv.NewMemory(), "test", zap.NewNop())
	require.NoError(t, store.Load(context.Background()))
	agents := service.NewCollection(store, audit.Nop{}, nil, metrics.NewMetrics(nil), zap.NewNop())

	r := chi.NewRouter()
	r.Use(withScopes(scopes...))
	r.Mount("/v1/agents", NewEntityHandler[domain.Agent, domain.AgentStats](agents).Routes())
	return r, agents
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateInvalidAgentIsRejected(t *testing.T) {
	h, agents := newAgentsRouter(t, "agents.write")

	for _, body := range []string{
		`{"name": "", "email": "a@b.c"}`,
		`{"name": "Lumen", "email": "lumen"}`,
		`{"name": "Lumen", "email": "a@b.c", "revenue": -1}`,
		`not json`,
	} {
		rec := do(t, h, http.MethodPost, "/v1/agents/", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, agents.List(context.Background(), entity.Filter{}))
}

func TestAgentLifecycle(t *testing.T) {
	h, _ := newAgentsRouter(t, "agents.write")

	rec := do(t, h, http.MethodPost, "/v1/agents/", `{"name": "Lumen Digital", "email": "hello@lumen.example", "status": "active"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.AgentPending, created.Status)

	do(t, h, http.MethodPost, "/v1/agents/", `{"name": "Other", "email": "o@x.io"}`)

	rec = do(t, h, http.MethodGet, "/v1/agents/?q=lumen", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rec = do(t, h, http.MethodPost, "/v1/agents/"+created.ID+"/actions/approve", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var approved domain.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	assert.Equal(t, domain.AgentActive, approved.Status)

	rec = do(t, h, http.MethodGet, "/v1/agents/?status=active", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(t, h, http.MethodPatch, "/v1/agents/"+created.ID+"/status", `{"status": "retired"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/v1/agents/"+created.ID+"/actions/explode", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPatch, "/v1/agents/"+created.ID+"/status", `{"status": "inactive"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPut, "/v1/agents/"+created.ID, `{"name": "Lumen", "email": "new@lumen.example", "region": "EU"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated domain.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "new@lumen.example", updated.Email)
	assert.Equal(t, domain.AgentInactive, updated.Status)

	rec = do(t, h, http.MethodGet, "/v1/agents/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.AgentStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Inactive)
	assert.Equal(t, 1, stats.Pending)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	h, agents := newAgentsRouter(t, "agents.write")

	body := `{"name": "Lumen", "email": "a@b.c", "region": "` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := do(t, h, http.MethodPost, "/v1/agents/", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, agents.List(context.Background(), entity.Filter{}))
}

func TestDeleteIsIdempotentAndMissingIs404(t *testing.T) {
	h, agents := newAgentsRouter(t, "admin")
	created, err := agents.Create(context.Background(), domain.Agent{Name: "A", Email: "a@b.c"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/v1/agents/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/v1/agents/"+created.ID, "").Code)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/agents/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPatch, "/v1/agents/"+created.ID+"/status", `{"status": "active"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/v1/agents/"+created.ID, `{"name": "A", "email": "a@b.c"}`).Code)
}

func TestWritesRequireScope(t *testing.T) {
	h, _ := newAgentsRouter(t, "bots.write")

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, "/v1/agents/", `{"name": "A", "email": "a@b.c"}`).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/agents/", "").Code)
}

type stubChecker struct {
	err error
}

func (s stubChecker) CheckNow(_ context.Context, id string) (domain.Integration, error) {
	if s.err != nil {
		return domain.Integration{}, s.err
	}
	return domain.Integration{ID: id, Status: domain.IntegrationOnline}, nil
}

func TestIntegrationCheck(t *testing.T) {
	store := entity.New(service.IntegrationKind(service.DemoIntegrations), kv.NewMemory(), "test", zap.NewNop())
	require.NoError(t, store.Load(context.Background()))
	items := service.NewCollection(store, nil, nil, nil, zap.NewNop())

	newRouter := func(c IntegrationChecker) http.Handler {
		r := chi.NewRouter()
		r.Use(withScopes("integrations.write"))
		r.Mount("/v1/integrations", NewIntegrationHandler(items, c).Routes())
		return r
	}

	rec := do(t, newRouter(stubChecker{}), http.MethodPost, "/v1/integrations/integration-crm/check", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"online"`)

	rec = do(t, newRouter(stubChecker{err: entity.ErrNotFound}), http.MethodPost, "/v1/integrations/nope/check", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, newRouter(stubChecker{}), http.MethodGet, "/v1/integrations/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Integration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestIntegrationUpdateKeepsCheckResults(t *testing.T) {
	ctx := context.Background()
	store := entity.New(service.IntegrationKind(service.DemoIntegrations), kv.NewMemory(), "test", zap.NewNop())
	require.NoError(t, store.Load(ctx))
	items := service.NewCollection(store, nil, nil, nil, zap.NewNop())

	r := chi.NewRouter()
	r.Use(withScopes("integrations.write"))
	r.Mount("/v1/integrations", NewIntegrationHandler(items, stubChecker{}).Routes())

	// Ни разу не проверенная интеграция не отдает нулевое время
	rec := do(t, r, http.MethodGet, "/v1/integrations/integration-crm", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "last_check")

	checked := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	_, err := items.Replace(ctx, "integration-crm", audit.ActionCheck, nil, func(in *domain.Integration) error {
		in.Status = domain.IntegrationDegraded
		in.LatencyMs = 120
		in.LastCheck = checked
		in.LastError = "slow"
		return nil
	})
	require.NoError(t, err)

	rec = do(t, r, http.MethodPut, "/v1/integrations/integration-crm",
		`{"name":"crm-eu","kind":"mock","latency_ms":1,"last_error":"forged","last_check":"2030-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Integration
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "crm-eu", got.Name)
	assert.Equal(t, domain.IntegrationDegraded, got.Status)
	assert.Equal(t, int64(120), got.LatencyMs)
	assert.Equal(t, "slow", got.LastError)
	assert.True(t, checked.Equal(got.LastCheck))

	stored, err := items.Get(ctx, "integration-crm")
	require.NoError(t, err)
	assert.Equal(t, int64(120), stored.LatencyMs)
	assert.True(t, checked.Equal(stored.LastCheck))
}

type stubDashboard struct{}

func (stubDashboard) GetDashboard(context.Context) (*domain.UnifiedDashboard, error) {
	return &domain.UnifiedDashboard{Pending: 3}, nil
}

type stubAudit struct {
	got audit.Filter
	err error
}

func (s *stubAudit) FetchLogs(_ context.Context, f audit.Filter) ([]audit.Event, error) {
	s.got = f
	return []audit.Event{}, s.err
}

func TestDashboardAndAudit(t *testing.T) {
	rec := httptest.NewRecorder()
	NewDashboardHandler(stubDashboard{}).GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pending_approvals":3`)

	a := &stubAudit{}
	rec = httptest.NewRecorder()
	NewAuditHandler(a).GetLogs(rec, httptest.NewRequest(http.MethodGet, "/v1/audit?entity=bots&action=delete&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, audit.Filter{Entity: "bots", Action: "delete", Limit: 5}, a.got)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewAuditHandler(&stubAudit{err: errors.New("db down")}).GetLogs(rec, httptest.NewRequest(http.MethodGet, "/v1/audit", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type stubIssuer struct{}

func (stubIssuer) GenerateToken(_ context.Context, username, password string) (*domain.TokenResponse, error) {
	if username == "alice" && password == "secret" {
		return &domain.TokenResponse{AccessToken: "t", TokenType: "Bearer", ExpiresIn: 60}, nil
	}
	return nil, service.ErrInvalidCredentials
}

func TestLogin(t *testing.T) {
	h := NewAuthHandler(stubIssuer{})

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"username":"alice","password":"secret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_token":"t"`)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"username":"alice","password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
