package overlay

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"comment-overlay/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// maxIngestBytes bounds the size of an ingestion request body.
const maxIngestBytes = 32 << 20

// Handler exposes overlay session endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// Routes mounts the session endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{session_id}", func(r chi.Router) {
		r.Delete("/", h.EndSession)
		r.Post("/comments", h.IngestWire)
		r.Post("/comments/manual", h.IngestManual)
		r.Get("/comments", h.ListComments)
		r.Delete("/comments", h.ClearComments)
		r.Post("/tick", h.Tick)
		r.Post("/seek", h.Seek)
		r.Put("/viewport", h.SetViewport)
		r.Put("/enabled", h.SetEnabled)
		r.Get("/events", h.Events)
	})
}

type createSessionResponse struct {
	SessionID SessionID `json:"session_id"`
}

type tickRequest struct {
	CurrentTime *float64 `json:"current_time"`
}

type seekRequest struct {
	Time *float64 `json:"time"`
}

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

// activationView is the wire form of an ActivateEvent with the display
// duration in seconds.
type activationView struct {
	Comment      Comment   `json:"comment"`
	Placement    Placement `json:"placement"`
	ExpiresAfter float64   `json:"expires_after"`
}

type eventView struct {
	Seq      uint64          `json:"seq"`
	Kind     EventKind       `json:"kind"`
	ID       CommentID       `json:"id,omitempty"`
	Activate *activationView `json:"activate,omitempty"`
}

func newActivationView(ev ActivateEvent) activationView {
	return activationView{
		Comment:      ev.Comment,
		Placement:    ev.Placement,
		ExpiresAfter: ev.ExpiresAfter.Seconds(),
	}
}

// CreateSession handles POST /sessions.
// Optional body: { "width": 1280, "height": 720 }.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var vp *Viewport
	if r.ContentLength != 0 {
		var body Viewport
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			h.log.Debug("invalid session body", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body.Width > 0 && body.Height > 0 {
			vp = &body
		}
	}

	id, err := h.svc.CreateSession(vp)
	if err != nil {
		h.log.Error("create session failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.log.Info("session created", slog.String("session_id", string(id)))
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: id})
}

// EndSession handles DELETE /sessions/{session_id}.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))
	if err := h.svc.EndSession(id); err != nil {
		h.writeError(w, id, "end session", err)
		return
	}
	h.log.Info("session ended", slog.String("session_id", string(id)))
	w.WriteHeader(http.StatusNoContent)
}

// IngestWire handles POST /sessions/{session_id}/comments with a markup body.
func (h *Handler) IngestWire(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, "wire", h.svc.IngestWire)
}

// IngestManual handles POST /sessions/{session_id}/comments/manual with
// one time,mode,color,text line per comment.
func (h *Handler) IngestManual(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, "manual", h.svc.IngestManual)
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, format string, fn func(SessionID, io.Reader) (IngestResult, error)) {
	id := SessionID(chi.URLParam(r, "session_id"))
	res, err := fn(id, http.MaxBytesReader(w, r.Body, maxIngestBytes))
	if err != nil {
		h.writeError(w, id, "ingest "+format, err)
		return
	}

	h.log.Info("comments ingested",
		slog.String("session_id", string(id)),
		slog.String("format", format),
		slog.Int("accepted", res.Accepted),
		slog.Int("dropped", res.Dropped))
	if h.metrics != nil {
		h.metrics.AddIngested(format, res.Accepted)
		h.metrics.AddDropped(format, res.Dropped)
	}
	writeJSON(w, http.StatusOK, res)
}

// ListComments handles GET /sessions/{session_id}/comments.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))
	comments, err := h.svc.Comments(id)
	if err != nil {
		h.writeError(w, id, "list comments", err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// ClearComments handles DELETE /sessions/{session_id}/comments.
func (h *Handler) ClearComments(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))
	if err := h.svc.ClearComments(id); err != nil {
		h.writeError(w, id, "clear comments", err)
		return
	}
	h.log.Info("comments cleared", slog.String("session_id", string(id)))
	w.WriteHeader(http.StatusNoContent)
}

// Tick handles POST /sessions/{session_id}/tick.
// Body: { "current_time": 10.05 }.
func (h *Handler) Tick(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))

	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validTime(req.CurrentTime) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	activations, err := h.svc.Tick(id, *req.CurrentTime)
	if err != nil {
		h.writeError(w, id, "tick", err)
		return
	}

	out := make([]activationView, 0, len(activations))
	for _, ev := range activations {
		out = append(out, newActivationView(ev))
	}
	if len(out) > 0 {
		h.log.Debug("comments activated",
			slog.String("session_id", string(id)),
			slog.Float64("current_time", *req.CurrentTime),
			slog.Int("count", len(out)))
	}
	writeJSON(w, http.StatusOK, out)
}

// Seek handles POST /sessions/{session_id}/seek.
// Body: { "time": 3.0 }.
func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))

	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validTime(req.Time) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.svc.Seek(id, *req.Time); err != nil {
		h.writeError(w, id, "seek", err)
		return
	}
	h.log.Debug("seek handled", slog.String("session_id", string(id)), slog.Float64("time", *req.Time))
	w.WriteHeader(http.StatusNoContent)
}

// SetViewport handles PUT /sessions/{session_id}/viewport.
// Body: { "width": 1280, "height": 720 }.
func (h *Handler) SetViewport(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))

	var vp Viewport
	if err := json.NewDecoder(r.Body).Decode(&vp); err != nil || vp.Width < 0 || vp.Height < 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := h.svc.SetViewport(id, vp); err != nil {
		h.writeError(w, id, "set viewport", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetEnabled handles PUT /sessions/{session_id}/enabled.
// Body: { "enabled": false }.
func (h *Handler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))

	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := h.svc.SetEnabled(id, req.Enabled); err != nil {
		h.writeError(w, id, "set enabled", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events handles GET /sessions/{session_id}/events?after=N.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	id := SessionID(chi.URLParam(r, "session_id"))

	var after uint64
	if s := r.URL.Query().Get("after"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		after = n
	}

	events, err := h.svc.Events(id, after)
	if err != nil {
		h.writeError(w, id, "events", err)
		return
	}

	out := make([]eventView, 0, len(events))
	for _, ev := range events {
		v := eventView{Seq: ev.Seq, Kind: ev.Kind, ID: ev.ID}
		if ev.Activate != nil {
			a := newActivationView(*ev.Activate)
			v.Activate = &a
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) writeError(w http.ResponseWriter, id SessionID, op string, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, ErrSchedulerClosed):
		w.WriteHeader(http.StatusConflict)
	case errors.As(err, &maxErr):
		w.WriteHeader(http.StatusRequestEntityTooLarge)
	default:
		h.log.Error(op+" failed", slog.String("session_id", string(id)), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func validTime(t *float64) bool {
	return t != nil && !math.IsNaN(*t) && !math.IsInf(*t, 0) && *t >= 0
}
