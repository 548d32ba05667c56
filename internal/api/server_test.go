package api

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titlekeep/titlekeep-server/internal/domain"
	"github.com/titlekeep/titlekeep-server/internal/events"
	"github.com/titlekeep/titlekeep-server/internal/mirror"
	"github.com/titlekeep/titlekeep-server/internal/notify"
	"github.com/titlekeep/titlekeep-server/internal/service"
	"github.com/titlekeep/titlekeep-server/internal/store/sqlite"
)

// recordingSink captures notifications instead of delivering them.
type recordingSink struct {
	mu    sync.Mutex
	sends []domain.Destination
}

func (r *recordingSink) Send(_ context.Context, dest domain.Destination, _ notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, dest)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sends)
}

type serverEnv struct {
	store  *sqlite.Store
	server *Server
	sink   *recordingSink
}

func newTestServer(t *testing.T) *serverEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := mirror.New(filepath.Join(dir, "state.json"), st, logger)
	require.NoError(t, m.Rebuild(context.Background()))

	bus := events.NewBus(logger)
	sink := &recordingSink{}
	router := notify.NewRouter(st, sink, nil, logger)

	settings := service.NewSettingsService(st, logger)
	booking := service.NewBookingService(st, settings, m, bus, notify.NoopCRM{}, logger)
	holders := service.NewHolderService(st, settings, m, bus, logger)
	schedule := service.NewScheduleService(st, settings, logger)
	titles := service.NewTitleService(st, m, logger)
	tenants := service.NewTenantService(st, router, logger)

	srv := NewServer(booking, holders, schedule, titles, tenants, settings, nil, logger)
	return &serverEnv{store: st, server: srv, sink: sink}
}

func (env *serverEnv) seedTitle(t *testing.T, name string, requestable bool) {
	t.Helper()
	require.NoError(t, env.store.UpsertTitle(context.Background(), &domain.Title{
		Name:        name,
		Requestable: requestable,
	}))
}

// do performs a request against the server and decodes the envelope.
func (env *serverEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		require.NoError(t, json.MarshalWrite(&buf, body))
		reader = &buf
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)

	var envelope map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	}
	return rec, envelope
}

// futureSlot returns a grid-aligned slot comfortably in the future.
func futureSlot() time.Time {
	day := time.Now().UTC().Truncate(24 * time.Hour).Add(48 * time.Hour)
	return day.Add(12 * time.Hour)
}

func TestHealthCheck(t *testing.T) {
	env := newTestServer(t)

	rec, envelope := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, envelope["success"])
}

func TestGetSlots(t *testing.T) {
	env := newTestServer(t)

	rec, envelope := env.do(t, http.MethodGet, "/api/v1/slots", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, float64(12), data["shift_hours"])
	slots := data["slots"].([]any)
	require.Len(t, slots, 2)
	assert.Equal(t, "00:00", slots[0])
	assert.Equal(t, "12:00", slots[1])
}

func TestBookReturnsCreatedAndToken(t *testing.T) {
	env := newTestServer(t)
	env.seedTitle(t, "Architect", true)

	body := map[string]any{
		"title_name": "Architect",
		"holder":     "alice",
		"location":   "3:14",
		"slot_start": futureSlot().Format(time.RFC3339),
	}

	rec, envelope := env.do(t, http.MethodPost, "/api/v1/reservations", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, true, data["created"])
	token := data["cancel_token"].(string)
	assert.Len(t, token, 32)

	res := data["reservation"].(map[string]any)
	assert.Equal(t, "Architect", res["title_name"])
	assert.Equal(t, "alice", res["holder"])
}

func TestBookRepeatIsIdempotent(t *testing.T) {
	env := newTestServer(t)
	env.seedTitle(t, "Architect", true)

	body := map[string]any{
		"title_name": "Architect",
		"holder":     "alice",
		"slot_start": futureSlot().Format(time.RFC3339),
	}

	first, firstEnvelope := env.do(t, http.MethodPost, "/api/v1/reservations", body)
	require.Equal(t, http.StatusCreated, first.Code)
	firstToken := firstEnvelope["data"].(map[string]any)["cancel_token"].(string)

	second, secondEnvelope := env.do(t, http.MethodPost, "/api/v1/reservations", body)
	require.Equal(t, http.StatusOK, second.Code)
	data := secondEnvelope["data"].(map[string]any)
	assert.Equal(t, false, data["created"])
	assert.Equal(t, firstToken, data["cancel_token"])
}

func TestBookConflictEnvelope(t *testing.T) {
	env := newTestServer(t)
	env.seedTitle(t, "Architect", true)
	slot := futureSlot().Format(time.RFC3339)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"title_name": "Architect", "holder": "alice", "slot_start": slot,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, envelope := env.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"title_name": "Architect", "holder": "bob", "slot_start": slot,
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, envelope["success"])
	assert.NotEmpty(t, envelope["error"])
}

func TestBookValidationEnvelope(t *testing.T) {
	env := newTestServer(t)

	rec, envelope := env.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"title_name": "Architect",
		"slot_start": futureSlot().Format(time.RFC3339),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, envelope["success"])
	details := envelope["details"].(map[string]any)
	assert.Contains(t, details, "holder")
}

func TestBookRejectsMalformedTimestamp(t *testing.T) {
	env := newTestServer(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"title_name": "Architect",
		"holder":     "alice",
		"slot_start": "tomorrow at noon",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelReservation(t *testing.T) {
	env := newTestServer(t)
	env.seedTitle(t, "Architect", true)

	_, envelope := env.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"title_name": "Architect", "holder": "alice",
		"slot_start": futureSlot().Format(time.RFC3339),
	})
	token := envelope["data"].(map[string]any)["cancel_token"].(string)

	rec, _ := env.do(t, http.MethodDelete, "/api/v1/reservations/"+token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/reservations/"+token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestManualAssignAndForceRelease(t *testing.T) {
	env := newTestServer(t)
	env.seedTitle(t, "Champion", true)

	rec, envelope := env.do(t, http.MethodPost, "/api/v1/admin/assign", map[string]any{
		"title_name": "Champion", "holder": "carol",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "carol", data["holder"])

	rec, _ = env.do(t, http.MethodPost, "/api/v1/admin/release", map[string]any{
		"title_name": "Champion",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/admin/release", map[string]any{
		"title_name": "Champion",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminReleaseReservation(t *testing.T) {
	env := newTestServer(t)
	env.seedTitle(t, "Architect", true)
	slot := futureSlot().Format(time.RFC3339)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"title_name": "Architect", "holder": "alice", "slot_start": slot,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/admin/reservations", map[string]any{
		"title_name": "Architect", "slot_start": slot,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/admin/reservations", map[string]any{
		"title_name": "Architect", "slot_start": slot,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	env := newTestServer(t)

	rec, envelope := env.do(t, http.MethodGet, "/api/v1/admin/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, float64(12), data["shift_hours"])

	rec, envelope = env.do(t, http.MethodPatch, "/api/v1/admin/settings", map[string]any{
		"shift_hours": 8,
		"reminders":   map[string]any{"enabled": true, "lead_minutes": 30, "titles": []string{"Architect"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data = envelope["data"].(map[string]any)
	assert.Equal(t, float64(8), data["shift_hours"])
	reminders := data["reminders"].(map[string]any)
	assert.Equal(t, true, reminders["enabled"])
	assert.Equal(t, float64(30), reminders["lead_minutes"])
}

func TestSettingsRejectOutOfRangeShift(t *testing.T) {
	env := newTestServer(t)

	rec, _ := env.do(t, http.MethodPatch, "/api/v1/admin/settings", map[string]any{
		"shift_hours": 96,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenantLifecycle(t *testing.T) {
	env := newTestServer(t)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/admin/tenants", map[string]any{
		"id": "north", "webhook_url": "https://hooks.example.com/north", "is_default": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/admin/tenants", map[string]any{
		"id": "south", "webhook_url": "https://hooks.example.com/south",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, envelope := env.do(t, http.MethodGet, "/api/v1/admin/tenants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tenants := envelope["data"].([]any)
	require.Len(t, tenants, 2)
	first := tenants[0].(map[string]any)
	assert.Equal(t, "north", first["id"])
	assert.Equal(t, true, first["is_default"])

	rec, envelope = env.do(t, http.MethodPatch, "/api/v1/admin/tenants/south", map[string]any{
		"mention_target": "@here",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "@here", envelope["data"].(map[string]any)["mention_target"])

	rec, _ = env.do(t, http.MethodPost, "/api/v1/admin/tenants/south/default", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/admin/tenants/south/test", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.sink.count())

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/admin/tenants/north", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = env.do(t, http.MethodDelete, "/api/v1/admin/tenants/north", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTenantRejectsBadURL(t *testing.T) {
	env := newTestServer(t)

	rec, envelope := env.do(t, http.MethodPost, "/api/v1/admin/tenants", map[string]any{
		"id": "north", "webhook_url": "not a url",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, envelope["success"])
}

func TestUpdateTitleRenameAndToggle(t *testing.T) {
	env := newTestServer(t)
	env.seedTitle(t, "Old Guard", true)

	rec, envelope := env.do(t, http.MethodPatch, "/api/v1/admin/titles/Old%20Guard", map[string]any{
		"new_name": "Vanguard", "requestable": false,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "Vanguard", data["name"])
	assert.Equal(t, false, data["requestable"])
}

func TestScheduleGridAndUpcoming(t *testing.T) {
	env := newTestServer(t)
	env.seedTitle(t, "Architect", true)
	slot := futureSlot()

	rec, _ := env.do(t, http.MethodPost, "/api/v1/reservations", map[string]any{
		"title_name": "Architect", "holder": "alice", "location": "3:14",
		"slot_start": slot.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, envelope := env.do(t, http.MethodGet, "/api/v1/schedule?days=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	grid := envelope["data"].(map[string]any)["schedule"].(map[string]any)
	day := grid[slot.Format("2006-01-02")].(map[string]any)
	cell := day[slot.Format("15:04")].(map[string]any)["Architect"].(map[string]any)
	assert.Equal(t, "alice", cell["holder"])

	rec, envelope = env.do(t, http.MethodGet, "/api/v1/reservations/upcoming", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	upcoming := envelope["data"].([]any)
	require.Len(t, upcoming, 1)

	rec, _ = env.do(t, http.MethodGet, "/api/v1/schedule?days=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditTrailExposed(t *testing.T) {
	env := newTestServer(t)
	env.seedTitle(t, "Architect", true)

	rec, _ := env.do(t, http.MethodPost, "/api/v1/admin/assign", map[string]any{
		"title_name": "Architect", "holder": "alice",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, envelope := env.do(t, http.MethodGet, "/api/v1/admin/audit?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := envelope["data"].([]any)
	require.NotEmpty(t, records)
	actions := make([]string, 0, len(records))
	for _, raw := range records {
		actions = append(actions, raw.(map[string]any)["action"].(string))
	}
	assert.Contains(t, actions, domain.AuditManualAssign)
}

func TestAdminMiddlewareGuardsAdminRoutes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	st, err := sqlite.Open(filepath.Join(dir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := mirror.New(filepath.Join(dir, "state.json"), st, logger)
	require.NoError(t, m.Rebuild(context.Background()))
	bus := events.NewBus(logger)
	router := notify.NewRouter(st, &recordingSink{}, nil, logger)

	settings := service.NewSettingsService(st, logger)
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
	srv := NewServer(
		service.NewBookingService(st, settings, m, bus, notify.NoopCRM{}, logger),
		service.NewHolderService(st, settings, m, bus, logger),
		service.NewScheduleService(st, settings, logger),
		service.NewTitleService(st, m, logger),
		service.NewTenantService(st, router, logger),
		settings,
		deny,
		logger,
	)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/settings", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/titles", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusCardsListEveryTitle(t *testing.T) {
	env := newTestServer(t)
	for i := 0; i < 3; i++ {
		env.seedTitle(t, fmt.Sprintf("Title %d", i), true)
	}

	rec, envelope := env.do(t, http.MethodGet, "/api/v1/titles", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	cards := envelope["data"].([]any)
	require.Len(t, cards, 3)
	assert.Equal(t, domain.CardHolderVacant, cards[0].(map[string]any)["holder"])
}
