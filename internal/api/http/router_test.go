package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fieldops/maintenance-service/internal/api/http/handlers"
	"github.com/fieldops/maintenance-service/internal/auth"
	"github.com/fieldops/maintenance-service/internal/bootstrap"
	"github.com/fieldops/maintenance-service/internal/config"
	"github.com/fieldops/maintenance-service/internal/domain"
	"github.com/fieldops/maintenance-service/internal/observability"
	"github.com/fieldops/maintenance-service/internal/service"
)

type testServer struct {
	app    *fiber.App
	tokens map[domain.Role]string
	ids    map[domain.Role]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		App:          config.AppConfig{Name: "maintenance-service", Version: "test"},
		Auth:         config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 15, BcryptCost: 4},
		Notification: config.NotificationConfig{Enabled: true},
	}
	repos := bootstrap.MemoryRepositories()
	metrics := observability.NewMetrics()
	services := bootstrap.NewServices(cfg, repos, bootstrap.Options{Metrics: metrics})
	services.Notifications.RegisterHandlers()

	srv := &testServer{tokens: map[domain.Role]string{}, ids: map[domain.Role]string{}}
	for _, role := range []domain.Role{domain.RoleUser, domain.RoleEngineer, domain.RoleSupervisor, domain.RoleAdmin} {
		email := string(role) + "@example.com"
		user, err := services.Auth.CreateUser(context.Background(), service.NewUserInput{
			Name: string(role), Email: email, Password: "secret1", Role: role,
		})
		if err != nil {
			t.Fatalf("create %s: %v", role, err)
		}
		session, err := services.Auth.Login(context.Background(), email, "secret1")
		if err != nil {
			t.Fatalf("login %s: %v", role, err)
		}
		srv.ids[role] = user.ID
		srv.tokens[role] = session.Token
	}

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{"postgres": nil}, metrics),
		Users:          handlers.NewUsersHandler(services.Auth, services.Notifications),
		Equipment:      handlers.NewEquipmentHandler(services.Equipment),
		Tickets:        handlers.NewTicketsHandler(services.Lifecycle, services.Verification, services.Comments),
		AuthMiddleware: auth.NewAuthMiddleware(services.Auth.TokenManager(), repos.Users),
	})
	srv.app = app
	return srv
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, role domain.Role, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token, ok := s.tokens[role]; ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return out
}

type ticketView struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	AssignedTo *string `json:"assigned_to"`
	Timeline   []struct {
		Status string `json:"status"`
	} `json:"timeline"`
}

func TestMaintenanceFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, nethttp.MethodPost, "/equipment", domain.RoleSupervisor, map[string]any{
		"name": "Infusion Pump", "type": "infusion_pump",
		"location": map[string]string{"building": "A", "floor": "1", "room": "101"},
	})
	if status != nethttp.StatusCreated {
		t.Fatalf("create equipment: %d %+v", status, env.Error)
	}
	equipment := decode[struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}](t, env)

	status, env = s.do(t, nethttp.MethodGet, "/equipment/code/"+strings.ToLower(equipment.Code), "", nil)
	if status != nethttp.StatusOK {
		t.Fatalf("public code lookup: %d", status)
	}

	status, env = s.do(t, nethttp.MethodPost, "/tickets", domain.RoleUser, map[string]any{
		"equipment_id": equipment.ID, "issue_type": "not_powering_on", "description": "No power",
	})
	if status != nethttp.StatusCreated {
		t.Fatalf("create ticket: %d %+v", status, env.Error)
	}
	ticket := decode[ticketView](t, env)
	base := "/tickets/" + ticket.ID

	status, env = s.do(t, nethttp.MethodPost, base+"/transitions", domain.RoleSupervisor, map[string]any{
		"action": "assign", "assigned_to": s.ids[domain.RoleEngineer],
	})
	if status != nethttp.StatusOK || decode[ticketView](t, env).Status != "assigned" {
		t.Fatalf("assign: %d %+v", status, env.Error)
	}
	if status, _ = s.do(t, nethttp.MethodPost, base+"/transitions", domain.RoleEngineer, map[string]any{"action": "start_service"}); status != nethttp.StatusOK {
		t.Fatalf("start: %d", status)
	}

	status, env = s.do(t, nethttp.MethodPost, base+"/service-reports", domain.RoleEngineer, map[string]any{
		"work_description": "Replaced battery",
		"time_spent":       40,
		"parts_replaced":   []map[string]any{{"name": "battery", "quantity": 1}},
	})
	if status != nethttp.StatusCreated {
		t.Fatalf("submit report: %d %+v", status, env.Error)
	}

	status, env = s.do(t, nethttp.MethodPost, base+"/verification", domain.RoleEngineer, map[string]any{"decision": "approve"})
	if status != nethttp.StatusForbidden || env.Error.Code != "FORBIDDEN" {
		t.Fatalf("engineer verify: %d %+v", status, env.Error)
	}

	status, env = s.do(t, nethttp.MethodPost, base+"/verification", domain.RoleSupervisor, map[string]any{"decision": "approve"})
	if status != nethttp.StatusOK {
		t.Fatalf("approve: %d %+v", status, env.Error)
	}
	closed := decode[ticketView](t, env)
	if closed.Status != "closed" || len(closed.Timeline) != 5 {
		t.Fatalf("closed ticket = %+v", closed)
	}

	status, env = s.do(t, nethttp.MethodPost, base+"/verification", domain.RoleSupervisor, map[string]any{"decision": "approve"})
	if status != nethttp.StatusConflict || env.Error.Code != "INVALID_TRANSITION" {
		t.Fatalf("second approve: %d %+v", status, env.Error)
	}

	status, env = s.do(t, nethttp.MethodGet, "/notifications", domain.RoleUser, nil)
	if status != nethttp.StatusOK {
		t.Fatalf("notifications: %d", status)
	}
	inbox := decode[[]struct {
		Type string `json:"type"`
	}](t, env)
	var sawClosed bool
	for _, n := range inbox {
		sawClosed = sawClosed || n.Type == string(domain.NotificationTicketClosed)
	}
	if !sawClosed {
		t.Errorf("raiser inbox = %+v, want ticket_closed", inbox)
	}
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, nethttp.MethodPost, "/tickets", "", map[string]any{"issue_type": "x"})
	if status != nethttp.StatusUnauthorized || env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Errorf("anonymous create: %d %+v", status, env.Error)
	}

	status, env = s.do(t, nethttp.MethodGet, "/tickets/missing", domain.RoleAdmin, nil)
	if status != nethttp.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("missing ticket: %d %+v", status, env.Error)
	}

	status, env = s.do(t, nethttp.MethodPost, "/tickets", domain.RoleUser, map[string]any{"issue_type": "x"})
	if status != nethttp.StatusBadRequest || env.Error.Code != "VALIDATION_FAILED" {
		t.Errorf("invalid create: %d %+v", status, env.Error)
	}

	status, env = s.do(t, nethttp.MethodPost, "/equipment", domain.RoleEngineer, map[string]any{"name": "x", "type": "y"})
	if status != nethttp.StatusForbidden {
		t.Errorf("engineer registers equipment: %d %+v", status, env.Error)
	}

	status, env = s.do(t, nethttp.MethodPost, "/tickets/missing/transitions", domain.RoleAdmin, map[string]any{"action": "teleport"})
	if status != nethttp.StatusBadRequest {
		t.Errorf("unknown action: %d %+v", status, env.Error)
	}

	status, _ = s.do(t, nethttp.MethodPatch, "/users/"+s.ids[domain.RoleEngineer]+"/status", domain.RoleAdmin, map[string]any{"active": false})
	if status != nethttp.StatusNoContent {
		t.Fatalf("disable engineer: %d", status)
	}
	status, _ = s.do(t, nethttp.MethodGet, "/notifications", domain.RoleEngineer, nil)
	if status != nethttp.StatusUnauthorized {
		t.Errorf("disabled engineer: %d", status)
	}
}

func TestMaintenanceDueEndpoint(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, nethttp.MethodPost, "/equipment", domain.RoleAdmin, map[string]any{
		"name": "Autoclave", "type": "sterilizer", "service_interval_days": 30,
	})
	if status != nethttp.StatusCreated {
		t.Fatalf("register equipment: %d %+v", status, env.Error)
	}

	status, env = s.do(t, nethttp.MethodGet, "/equipment/maintenance-due?days=60", domain.RoleEngineer, nil)
	if status != nethttp.StatusOK {
		t.Fatalf("schedule: %d %+v", status, env.Error)
	}
	if due := decode[[]map[string]any](t, env); len(due) != 0 {
		t.Errorf("never serviced equipment listed: %v", due)
	}

	status, env = s.do(t, nethttp.MethodGet, "/equipment/maintenance-due?days=soon", domain.RoleSupervisor, nil)
	if status != nethttp.StatusBadRequest || env.Error.Code != "VALIDATION_FAILED" {
		t.Errorf("bad days: %d %+v", status, env.Error)
	}
	if status, _ = s.do(t, nethttp.MethodGet, "/equipment/maintenance-due", domain.RoleUser, nil); status != nethttp.StatusForbidden {
		t.Errorf("requester schedule: %d", status)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	if status, _ := s.do(t, nethttp.MethodGet, "/health/live", "", nil); status != nethttp.StatusOK {
		t.Errorf("live: %d", status)
	}
	if status, _ := s.do(t, nethttp.MethodGet, "/health/ready", "", nil); status != nethttp.StatusOK {
		t.Errorf("ready: %d", status)
	}
	s.do(t, nethttp.MethodGet, "/tickets/missing", domain.RoleAdmin, nil)
	status, env := s.do(t, nethttp.MethodGet, "/metrics", "", nil)
	if status != nethttp.StatusOK || len(env.Data) == 0 {
		t.Errorf("metrics: %d", status)
	}
}
