package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sterilysense/roomview/pkg/analytics"
	"github.com/sterilysense/roomview/pkg/layout"
	"github.com/sterilysense/roomview/pkg/roomview"
)

const maxLayoutBody = 1 << 20

// Server exposes the controller over HTTP. Mutating requests rebroadcast the scene on the hub.
type Server struct {
	Controller *roomview.Controller
	Hub        *Hub
	Samples    []analytics.Sample
	AccessLog  io.Writer
}

func NewServer(c *roomview.Controller, hub *Hub, samples []analytics.Sample) *Server {
	return &Server{Controller: c, Hub: hub, Samples: samples, AccessLog: os.Stdout}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/scene", s.handleScene).Methods(http.MethodGet)
	api.HandleFunc("/zones", s.handleZones).Methods(http.MethodGet)
	api.HandleFunc("/zones", s.handleReplaceZones).Methods(http.MethodPut)
	api.HandleFunc("/zones/{id}", s.handleZone).Methods(http.MethodGet)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/history.png", s.handleHistoryPlot).Methods(http.MethodGet)
	api.HandleFunc("/input", s.handleInput).Methods(http.MethodPost)
	api.HandleFunc("/analytics/correlation", s.handleCorrelation).Methods(http.MethodGet)
	api.HandleFunc("/analytics/scatter", s.handleScatter).Methods(http.MethodGet)

	if s.Hub != nil {
		r.Handle("/ws", s.Hub)
	}
	return r
}

// Handler wraps the router with CORS for browser clients and combined access logging.
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	out := s.AccessLog
	if out == nil {
		out = io.Discard
	}
	return handlers.CombinedLoggingHandler(out, handlers.RecoveryHandler()(cors(s.Router())))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.clients()})
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	scene, err := s.Controller.Scene()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scene)
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Controller.Zones())
}

type zoneResponse struct {
	Zone     roomview.Zone       `json:"zone"`
	Headline string              `json:"headline"`
	Detail   roomview.ZoneDetail `json:"detail"`
}

func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	z, ok := s.Controller.Zone(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "zone not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, zoneResponse{
		Zone:     z,
		Headline: roomview.FormatHeadline(z, s.Controller.Camera().Metric),
		Detail:   roomview.FormatDetail(z),
	})
}

// handleReplaceZones swaps the zone set for the zones of a GeoJSON layout.
func (s *Server) handleReplaceZones(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLayoutBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	l, err := layout.Parse(body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Controller.ReplaceZones(l.Zones); err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	log.Printf("[LAYOUT] Replaced zones over HTTP (%d zones)", len(l.Zones))
	s.broadcast()
	writeJSON(w, http.StatusOK, s.Controller.Zones())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Controller.History())
}

func (s *Server) handleHistoryPlot(w http.ResponseWriter, r *http.Request) {
	m := s.Controller.Camera().Metric
	if q := r.URL.Query().Get("metric"); q != "" {
		parsed, err := roomview.ParseMetric(q)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		m = parsed
	}
	var buf bytes.Buffer
	if err := analytics.WriteTierHistory(&buf, s.Controller.History(), m); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, analytics.ErrTooFewSamples) {
			status = http.StatusConflict
		}
		writeJSONError(w, status, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var in roomview.Input
	if err := json.NewDecoder(io.LimitReader(r.Body, maxInput)).Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid input: "+err.Error())
		return
	}
	if err := s.Controller.Apply(in); err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	s.broadcast()
	s.handleScene(w, r)
}

type correlationResponse struct {
	Correlation analytics.Correlation `json:"correlation"`
	Samples     []analytics.Sample    `json:"samples"`
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	c, err := analytics.Correlate(s.Samples)
	if err != nil {
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, correlationResponse{Correlation: c, Samples: s.Samples})
}

func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := analytics.RenderScatter(&buf, s.Samples); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to render chart: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) broadcast() {
	if s.Hub == nil {
		return
	}
	if err := s.Hub.BroadcastScene(); err != nil {
		log.Printf("[WS] Broadcast error: %v", err)
	}
}

func (s *Server) clients() int {
	if s.Hub == nil {
		return 0
	}
	return s.Hub.Clients()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, roomview.ErrUnknownCommand),
		errors.Is(err, roomview.ErrUnknownMetric),
		errors.Is(err, roomview.ErrUnknownProjection),
		errors.Is(err, roomview.ErrInvalidZone),
		errors.Is(err, layout.ErrInvalidLayout):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Encoding response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
