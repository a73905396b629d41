// Package web exposes the quality gate over HTTP as a small JSON API.
package web

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/metalagman/reqgate/internal/db"
	"github.com/metalagman/reqgate/internal/requirement"
	"github.com/metalagman/reqgate/internal/workflow"
)

// Server provides the HTTP handlers and their collaborators.
type Server struct {
	wf    *workflow.Workflow
	store *db.Store
}

// NewServer creates an API server over a compiled workflow. The store may be
// nil; run auditing is then disabled.
func NewServer(wf *workflow.Workflow, store *db.Store) (*Server, error) {
	if wf == nil {
		return nil, errors.New("web server requires a workflow")
	}
	return &Server{wf: wf, store: store}, nil
}

// Routes returns the router for the API.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /check", s.handleCheck)
	mux.HandleFunc("GET /runs", s.handleRuns)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// checkRequest mirrors the packet constructor arguments.
type checkRequest struct {
	RawText     string   `json:"raw_text"`
	SourceType  string   `json:"source_type"`
	ProjectKey  string   `json:"project_key"`
	Priority    string   `json:"priority"`
	TicketType  string   `json:"ticket_type"`
	Attachments []string `json:"attachments"`
}

type checkResponse struct {
	RunID    string         `json:"run_id"`
	Decision string         `json:"decision"`
	State    workflow.State `json:"state"`
}

type rejectionResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	packet, err := requirement.NewPacket(
		req.RawText,
		requirement.SourceType(req.SourceType),
		req.ProjectKey,
		requirement.Priority(req.Priority),
		requirement.TicketType(req.TicketType),
		req.Attachments,
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runID := newRunID()
	started := time.Now()
	state, err := s.wf.Run(r.Context(), packet)
	duration := time.Since(started).Seconds()

	if err != nil {
		var rejection *workflow.RejectionError
		if errors.As(err, &rejection) {
			s.audit(r, runID, packet, state, "REJECT", duration)
			writeJSON(w, http.StatusUnprocessableEntity, rejectionResponse{
				Error:   "input rejected",
				Reason:  string(rejection.Reason),
				Details: rejection.Details,
			})
			return
		}
		log.Error().Err(err).Msg("workflow execution failed")
		http.Error(w, "workflow execution failed", http.StatusInternalServerError)
		return
	}

	decision := "REJECT"
	if state.GateDecision != nil && *state.GateDecision {
		decision = "PASS"
	}
	s.audit(r, runID, packet, state, decision, duration)

	writeJSON(w, http.StatusOK, checkResponse{
		RunID:    runID,
		Decision: decision,
		State:    state,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "run auditing disabled", http.StatusNotFound)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("list runs failed")
		http.Error(w, "list runs failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []db.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// audit records the completed run. Persistence failures are logged, never
// surfaced to the API caller.
func (s *Server) audit(r *http.Request, runID string, packet requirement.Packet, state workflow.State, decision string, duration float64) {
	if s.store == nil {
		return
	}
	rec := db.RunRecord{
		RunID:             runID,
		ProjectKey:        packet.ProjectKey,
		TicketType:        string(packet.TicketType),
		Decision:          decision,
		FallbackActivated: state.FallbackActivated,
		DurationSeconds:   duration,
		ErrorLogs:         state.ErrorLogs,
		ExecutionTimes:    state.ExecutionTimes,
	}
	if state.Report != nil {
		score := state.Report.TotalScore
		rec.TotalScore = &score
	}
	if err := s.store.CreateRun(r.Context(), rec); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("audit write failed")
	}
}

func newRunID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "run-" + hex.EncodeToString(buf)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response failed")
	}
}
