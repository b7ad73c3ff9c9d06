package engine

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/getmockd/stubd/internal/matching"
	"github.com/getmockd/stubd/pkg/httputil"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/requestlog"
	"github.com/getmockd/stubd/pkg/scenario"
	"github.com/getmockd/stubd/pkg/stub"
)

// AdminPrefix is the path under which the admin API is served.
const AdminPrefix = "/__admin"

// maxAdminBody bounds admin request bodies (10MB).
const maxAdminBody = 10 << 20

// Reloader restores the mappings loaded at startup.
type Reloader func() error

// Admin serves the administrative API.
type Admin struct {
	stubs    *StubMappings
	settings *GlobalSettingsHolder
	journal  requestlog.Store
	reload   Reloader
	started  time.Time
	log      *slog.Logger
}

// NewAdmin creates the admin API. A nil journal is treated as disabled.
func NewAdmin(stubs *StubMappings, settings *GlobalSettingsHolder, journal requestlog.Store) *Admin {
	if journal == nil {
		journal = requestlog.Disabled{}
	}
	if settings == nil {
		settings = &GlobalSettingsHolder{}
	}
	return &Admin{
		stubs:    stubs,
		settings: settings,
		journal:  journal,
		started:  time.Now(),
		log:      logging.Nop(),
	}
}

// SetLogger sets the operational logger.
func (a *Admin) SetLogger(log *slog.Logger) {
	if log != nil {
		a.log = log
	}
}

// SetReloader sets the function run after a mapping reset to restore the
// startup mappings.
func (a *Admin) SetReloader(r Reloader) {
	a.reload = r
}

// Register mounts the admin routes on router under AdminPrefix.
func (a *Admin) Register(router *mux.Router) {
	r := router.PathPrefix(AdminPrefix).Subrouter()

	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/mappings", a.handleListMappings).Methods(http.MethodGet)
	r.HandleFunc("/mappings", a.handleCreateMappings).Methods(http.MethodPost)
	r.HandleFunc("/mappings/new", a.handleCreateMappings).Methods(http.MethodPost)
	r.HandleFunc("/mappings/reset", a.handleResetMappings).Methods(http.MethodPost)
	r.HandleFunc("/mappings/{id}", a.handleGetMapping).Methods(http.MethodGet)
	r.HandleFunc("/mappings/{id}", a.handleDeleteMapping).Methods(http.MethodDelete)

	r.HandleFunc("/reset", a.handleReset).Methods(http.MethodPost)

	r.HandleFunc("/scenarios", a.handleListScenarios).Methods(http.MethodGet)
	r.HandleFunc("/scenarios/reset", a.handleResetScenarios).Methods(http.MethodPost)

	r.HandleFunc("/settings", a.handleGetSettings).Methods(http.MethodGet)
	r.HandleFunc("/settings", a.handleUpdateSettings).Methods(http.MethodPost)

	r.HandleFunc("/requests", a.handleListRequests).Methods(http.MethodGet)
	r.HandleFunc("/requests", a.handleResetRequests).Methods(http.MethodDelete)
	r.HandleFunc("/requests/count", a.handleCountRequests).Methods(http.MethodPost)
	r.HandleFunc("/requests/find", a.handleFindRequests).Methods(http.MethodPost)
	r.HandleFunc("/requests/reset", a.handleResetRequests).Methods(http.MethodPost)
	r.HandleFunc("/requests/{id}", a.handleGetRequest).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteNotFound(w, "not_found", "Unknown admin endpoint")
	})
}

// Handler returns a standalone router serving only the admin API.
func (a *Admin) Handler() http.Handler {
	router := mux.NewRouter()
	a.Register(router)
	return router
}

// MappingsResponse lists mappings.
type MappingsResponse struct {
	Mappings []*stub.Mapping `json:"mappings"`
	Meta     Meta            `json:"meta"`
}

// RequestsResponse lists journal entries.
type RequestsResponse struct {
	Requests []*requestlog.Entry `json:"requests"`
	Meta     Meta                `json:"meta"`
}

// Meta carries list totals.
type Meta struct {
	Total int `json:"total"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status   string `json:"status"`
	Mappings int    `json:"mappings"`
	Uptime   int    `json:"uptimeSeconds"`
}

func (a *Admin) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, HealthResponse{
		Status:   "healthy",
		Mappings: a.stubs.Count(),
		Uptime:   int(time.Since(a.started).Seconds()),
	})
}

func (a *Admin) handleListMappings(w http.ResponseWriter, _ *http.Request) {
	mappings := a.stubs.List()
	httputil.WriteOK(w, MappingsResponse{Mappings: mappings, Meta: Meta{Total: len(mappings)}})
}

func (a *Admin) handleCreateMappings(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	mappings, err := stub.DecodeJSON(data)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid_json", err.Error())
		return
	}

	mappings = slices.DeleteFunc(mappings, func(m *stub.Mapping) bool { return m == nil })
	for _, m := range mappings {
		if err := m.Validate(); err != nil {
			httputil.WriteBadRequest(w, "invalid_mapping", err.Error())
			return
		}
	}
	for _, m := range mappings {
		if err := a.stubs.Register(m); err != nil {
			httputil.WriteBadRequest(w, "invalid_mapping", err.Error())
			return
		}
		a.log.Info("stub mapping registered", "id", m.ID, "mapping", m.String())
	}

	if len(mappings) == 1 {
		httputil.WriteCreated(w, mappings[0])
		return
	}
	httputil.WriteCreated(w, MappingsResponse{Mappings: mappings, Meta: Meta{Total: len(mappings)}})
}

func (a *Admin) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	m := a.stubs.Get(mux.Vars(r)["id"])
	if m == nil {
		httputil.WriteNotFound(w, "not_found", "Stub mapping not found")
		return
	}
	httputil.WriteOK(w, m)
}

func (a *Admin) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	if !a.stubs.Remove(mux.Vars(r)["id"]) {
		httputil.WriteNotFound(w, "not_found", "Stub mapping not found")
		return
	}
	httputil.WriteNoContent(w)
}

func (a *Admin) handleResetMappings(w http.ResponseWriter, _ *http.Request) {
	a.stubs.Reset()
	if a.reload != nil {
		if err := a.reload(); err != nil {
			a.log.Error("failed to reload mappings", "error", err)
			httputil.WriteInternalError(w, "reload_failed", err.Error())
			return
		}
	}
	httputil.WriteOK(w, Meta{Total: a.stubs.Count()})
}

func (a *Admin) handleReset(w http.ResponseWriter, r *http.Request) {
	a.journal.Clear()
	a.handleResetMappings(w, r)
}

func (a *Admin) handleListScenarios(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, map[string][]scenario.Snapshot{"scenarios": a.stubs.Scenarios().List()})
}

func (a *Admin) handleResetScenarios(w http.ResponseWriter, _ *http.Request) {
	a.stubs.ResetScenarios()
	httputil.WriteNoContent(w)
}

func (a *Admin) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteOK(w, a.settings.Get())
}

func (a *Admin) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		httputil.WriteBadRequest(w, "invalid_json", err.Error())
		return
	}
	if s.FixedDelay != nil && *s.FixedDelay < 0 {
		httputil.WriteBadRequest(w, "invalid_settings", "fixedDelay must not be negative")
		return
	}
	a.settings.Replace(s)
	httputil.WriteOK(w, a.settings.Get())
}

func (a *Admin) handleListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := &requestlog.Filter{
		Method:    q.Get("method"),
		Path:      q.Get("path"),
		MappingID: q.Get("mappingId"),
		Unmatched: q.Get("unmatched") == "true",
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	entries, err := a.journal.List(filter)
	if a.journalError(w, err) {
		return
	}
	httputil.WriteOK(w, RequestsResponse{Requests: entries, Meta: Meta{Total: a.journal.Count()}})
}

func (a *Admin) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	e := a.journal.Get(mux.Vars(r)["id"])
	if e == nil {
		httputil.WriteNotFound(w, "not_found", "Request not found")
		return
	}
	httputil.WriteOK(w, e)
}

func (a *Admin) handleCountRequests(w http.ResponseWriter, r *http.Request) {
	pattern, ok := readPattern(w, r)
	if !ok {
		return
	}
	n, err := a.journal.CountMatching(pattern)
	if a.journalError(w, err) {
		return
	}
	httputil.WriteOK(w, map[string]int{"count": n})
}

func (a *Admin) handleFindRequests(w http.ResponseWriter, r *http.Request) {
	pattern, ok := readPattern(w, r)
	if !ok {
		return
	}
	entries, err := a.journal.Find(pattern)
	if a.journalError(w, err) {
		return
	}
	if entries == nil {
		entries = []*requestlog.Entry{}
	}
	httputil.WriteOK(w, RequestsResponse{Requests: entries, Meta: Meta{Total: len(entries)}})
}

func (a *Admin) handleResetRequests(w http.ResponseWriter, _ *http.Request) {
	a.journal.Clear()
	httputil.WriteNoContent(w)
}

func (a *Admin) journalError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, requestlog.ErrDisabled) {
		httputil.WriteServiceUnavailable(w, "journal_disabled", "The request journal is disabled")
		return true
	}
	httputil.WriteInternalError(w, "journal_error", err.Error())
	return true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAdminBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteRequestTooLarge(w)
			return nil, false
		}
		httputil.WriteBadRequest(w, "bad_request", "Failed to read request body")
		return nil, false
	}
	return data, true
}

func readPattern(w http.ResponseWriter, r *http.Request) (*matching.RequestPattern, bool) {
	data, ok := readBody(w, r)
	if !ok {
		return nil, false
	}
	pattern := &matching.RequestPattern{}
	if err := json.Unmarshal(data, pattern); err != nil {
		httputil.WriteBadRequest(w, "invalid_json", err.Error())
		return nil, false
	}
	if err := pattern.Compile(); err != nil {
		httputil.WriteBadRequest(w, "invalid_pattern", err.Error())
		return nil, false
	}
	return pattern, true
}
