package engine

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/getmockd/stubd/pkg/httputil"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/request"
	"github.com/getmockd/stubd/pkg/requestlog"
	"github.com/getmockd/stubd/pkg/stub"
)

// NotMatchedBody is written for requests no mapping answers.
const NotMatchedBody = "No response could be served as there are no stub mappings matching this request\n"

// Handler serves stub traffic: it selects a mapping, renders its response and
// records the exchange in the request journal.
type Handler struct {
	stubs       *StubMappings
	renderer    *Renderer
	journal     requestlog.Store
	maxBodySize int64
	log         *slog.Logger
}

// NewHandler creates a Handler. A nil journal disables journalling.
func NewHandler(stubs *StubMappings, renderer *Renderer, journal requestlog.Store) *Handler {
	if journal == nil {
		journal = requestlog.Disabled{}
	}
	return &Handler{
		stubs:    stubs,
		renderer: renderer,
		journal:  journal,
		log:      logging.Nop(),
	}
}

// SetLogger sets the operational logger.
func (h *Handler) SetLogger(log *slog.Logger) {
	if log != nil {
		h.log = log
	}
}

// SetMaxBodySize bounds request bodies; <= 0 selects request.DefaultMaxBodySize.
func (h *Handler) SetMaxBodySize(n int64) {
	h.maxBodySize = n
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := request.FromHTTP(r, h.maxBodySize)
	if err != nil {
		if errors.Is(err, request.ErrBodyTooLarge) {
			h.log.Warn("request body too large", "path", r.URL.Path)
			httputil.WriteRequestTooLarge(w)
			return
		}
		h.log.Warn("failed to read request body", "path", r.URL.Path, "error", err)
		httputil.WriteBadRequest(w, "bad_request", "Failed to read request body")
		return
	}

	entry := requestlog.NewEntry(req)
	defer func() {
		entry.DurationMs = time.Since(start).Milliseconds()
		h.journal.Log(entry)
	}()

	def, m := h.stubs.ServeMapping(req)
	if m != nil {
		entry.WasMatched = true
		entry.MappingID = m.ID
		h.log.Debug("request matched", "method", req.Method, "url", req.URL, "mapping", m.ID)
	} else if h.journal.Enabled() {
		entry.NearMisses = h.nearMisses(req)
	}

	resp, err := h.renderer.Render(def)
	if err != nil {
		h.log.Error("failed to render response", "method", req.Method, "url", req.URL, "error", err)
		entry.Error = err.Error()
		entry.ResponseStatus = http.StatusInternalServerError
		httputil.WriteInternalError(w, "render_failed", err.Error())
		return
	}
	entry.ResponseStatus = resp.Status

	if !resp.Configured {
		httputil.WriteText(w, resp.Status, NotMatchedBody)
		return
	}

	if resp.Fault != "" {
		if err := writeFault(w, resp.Status, resp.Fault); err != nil {
			h.log.Error("failed to write fault", "fault", resp.Fault, "error", err)
			entry.Error = err.Error()
			if errors.Is(err, ErrHijackUnsupported) {
				entry.ResponseStatus = http.StatusInternalServerError
				httputil.WriteInternalError(w, "fault_unsupported", err.Error())
			}
		}
		return
	}

	writeResponse(w, resp)
}

func (h *Handler) nearMisses(req *request.Request) []requestlog.NearMissInfo {
	misses := h.stubs.NearMisses(req, nearMissLimit)
	if len(misses) == 0 {
		return nil
	}
	infos := make([]requestlog.NearMissInfo, 0, len(misses))
	for _, nm := range misses {
		info := requestlog.NearMissInfo{
			MappingID:       nm.MappingID,
			MatchPercentage: nm.MatchPercentage,
			Reason:          nm.Reason,
		}
		if m := h.stubs.Get(nm.MappingID); m != nil {
			info.MappingName = m.Name
		}
		infos = append(infos, info)
	}
	return infos
}

func writeResponse(w http.ResponseWriter, resp *stub.Response) {
	for name, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	if w.Header().Get("Content-Length") == "" {
		w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
