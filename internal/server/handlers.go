package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/risk-sentinel/internal/enrich"
	"github.com/jonathan/risk-sentinel/internal/job"
	"github.com/jonathan/risk-sentinel/internal/types"
)

// CreateJobRequest represents the request body for POST /jobs
type CreateJobRequest struct {
	Sources    []string `json:"sources" validate:"required,min=1,dive,required"`
	Limit      int      `json:"limit,omitempty" validate:"gte=0,lte=500"`
	Keywords   []string `json:"keywords,omitempty"`
	TimeWindow string   `json:"time_window,omitempty"`
	// UseOracle left unset falls back to the server's configured default.
	UseOracle   *bool `json:"use_oracle,omitempty"`
	ForceOracle bool  `json:"force_oracle,omitempty"`
}

// CreateJobResponse represents the response for POST /jobs
type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ConflictResponse is returned when a job is already active, carrying the
// active job's id so the caller can attach to its stream instead.
type ConflictResponse struct {
	Error         string `json:"error"`
	ExistingJobID string `json:"existing_job_id"`
}

// AnalyzeRequest represents the request body for POST /analyze
type AnalyzeRequest struct {
	Text      string `json:"text" validate:"required"`
	UseOracle *bool  `json:"use_oracle,omitempty"`
}

// oracleRequested resolves a request's use_oracle field against the server
// default.
func (s *Server) oracleRequested(v *bool) bool {
	if v != nil {
		return *v
	}
	return s.oracleDefault
}

// handleCreateJob starts a new collection+analysis job
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := s.validate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			s.errorResponse(w, http.StatusBadRequest,
				(&ErrValidation{Field: verrs[0].Field(), Message: verrs[0].Tag()}).Error())
			return
		}
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	params := job.Params{
		Sources:     req.Sources,
		Limit:       req.Limit,
		Keywords:    req.Keywords,
		TimeWindow:  req.TimeWindow,
		UseOracle:   s.oracleRequested(req.UseOracle),
		ForceOracle: req.ForceOracle,
	}

	j, err := s.store.Create(params)
	if err != nil {
		if conflict, ok := err.(*job.ConflictError); ok {
			s.jsonResponse(w, http.StatusConflict, ConflictResponse{
				Error:         "a job is already active",
				ExistingJobID: conflict.ExistingID.String(),
			})
			return
		}
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	log.Printf("Starting job %s (sources=%v limit=%d oracle=%v)",
		j.ID(), params.Sources, params.Limit, params.UseOracle)
	s.runner.Launch(j)

	s.jsonResponse(w, http.StatusAccepted, CreateJobResponse{
		JobID:  j.ID().String(),
		Status: string(job.StatusPending),
	})
}

// handleListJobs returns recent jobs, newest first
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": s.store.List(limit)})
}

// handleGetJob returns a job snapshot including its item log
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.resolveSnapshot(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

// handleCancelJob requests cooperative cancellation of a job
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseJobID(w, r)
	if !ok {
		return
	}

	if err := s.store.Cancel(id); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]string{
		"job_id": id.String(),
		"status": string(job.StatusCancelled),
	})
}

// handleStreamJob streams a job's event feed as Server-Sent Events
func (s *Server) handleStreamJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.parseJobID(w, r)
	if !ok {
		return
	}
	s.streamJob(w, r, id)
}

// handleStreamCurrent streams the current job without requiring its id
func (s *Server) handleStreamCurrent(w http.ResponseWriter, r *http.Request) {
	s.streamJob(w, r, uuid.UUID{})
}

func (s *Server) streamJob(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	j, err := s.store.Resolve(id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Resume point: a reconnecting client sends the last seq it saw and we
	// skip that prefix of the replayed log.
	after := -1
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			after = n
		}
	}

	events, cancel := j.Dispatcher().Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if ev.Seq <= after {
				continue
			}
			if err := sse.WriteEvent(string(ev.Type), ev.Seq, ev); err != nil {
				return
			}
		}
	}
}

// handleAnalyze scores a single piece of text synchronously
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "text is required")
		return
	}

	item := types.ContentItem{ID: uuid.New().String(), Text: req.Text, Source: "adhoc"}
	sig := s.engine.Score(req.Text)

	opts := s.gateOpts
	opts.OracleEnabled = s.oracleRequested(req.UseOracle) && len(s.oracles) > 0
	gate := enrich.NewGate(s.fusion, s.oracles, opts)

	results := gate.Run(r.Context(), []enrich.ScoredItem{{Item: item, Signal: sig}}, func() bool { return false })
	res, open := <-results
	if !open {
		s.errorResponse(w, http.StatusInternalServerError, "analysis produced no result")
		return
	}

	s.jsonResponse(w, http.StatusOK, res.Assessment)
}

// parseJobID extracts and parses the {id} path value
func (s *Server) parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		s.errorResponse(w, http.StatusBadRequest, "Job ID is required")
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid job ID format")
		return uuid.UUID{}, false
	}
	return id, true
}

// resolveSnapshot fetches the snapshot for {id}, where "current" means the
// most recent job.
func (s *Server) resolveSnapshot(w http.ResponseWriter, r *http.Request) (job.Snapshot, bool) {
	idStr := r.PathValue("id")
	if idStr == "current" {
		snap, err := s.store.Current()
		if err != nil {
			s.errorResponse(w, HTTPStatus(err), err.Error())
			return job.Snapshot{}, false
		}
		return snap, true
	}

	id, ok := s.parseJobID(w, r)
	if !ok {
		return job.Snapshot{}, false
	}
	snap, err := s.store.Get(id)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return job.Snapshot{}, false
	}
	return snap, true
}
