package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/banshee-data/fibretrace/internal/config"
	"github.com/banshee-data/fibretrace/internal/db"
	"github.com/banshee-data/fibretrace/internal/tracking"
)

// createRunRequest is the POST /api/runs body. Tuning carries per-run
// overrides in the same schema as the defaults file; omitted fields fall
// back to the server's configuration.
type createRunRequest struct {
	AtlasID   string               `json:"atlas_id"`
	FieldID   string               `json:"field_id"`
	MaskID    string               `json:"mask_id"`
	Mode      string               `json:"mode"`
	SeedCount int                  `json:"seed_count"`
	Tuning    *config.TuningConfig `json:"tuning,omitempty"`
}

type runResponse struct {
	*db.Run
	Stats *db.RunStats `json:"stats,omitempty"`
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.db.ListRuns()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.writeJSON(w, runs)
}

// createRun registers a run and executes it before responding. Large
// batches belong in the track command; the API is sized for interactive
// phantom-scale work.
func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.AtlasID == "" || req.FieldID == "" || req.MaskID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "atlas_id, field_id and mask_id are required")
		return
	}
	if req.Mode == "" {
		req.Mode = tracking.Probabilistic.String()
	}
	if _, err := tracking.ParseMode(req.Mode); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SeedCount < 1 {
		s.writeJSONError(w, http.StatusBadRequest, "seed_count must be positive")
		return
	}

	cfg := req.Tuning
	if cfg == nil {
		cfg = s.cfg
	} else if err := cfg.Validate(); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid tuning: %v", err))
		return
	}
	params, err := json.Marshal(cfg)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to encode tuning")
		return
	}

	runID, err := s.db.CreateRun(req.AtlasID, req.FieldID, req.MaskID, req.Mode, req.SeedCount, string(params))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to create run: %v", err))
		return
	}

	if err := s.ExecuteRun(r.Context(), runID); err != nil {
		s.writeJSONError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("Run %s failed: %v", runID, err))
		return
	}

	run, err := s.db.GetRun(runID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load run: %v", err))
		return
	}
	stats, err := s.db.StatsForRun(runID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load run stats: %v", err))
		return
	}
	s.writeJSONStatus(w, http.StatusCreated, runResponse{Run: run, Stats: stats})
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.db.GetRun(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Run not found: %v", err))
		return
	}
	stats, err := s.db.StatsForRun(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load run stats: %v", err))
		return
	}
	s.writeJSON(w, runResponse{Run: run, Stats: stats})
}

func (s *Server) listStreamlines(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.db.GetRun(id); err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Run not found: %v", err))
		return
	}
	records, err := s.db.StreamlinesForRun(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load streamlines: %v", err))
		return
	}
	if records == nil {
		records = []db.StreamlineRecord{}
	}
	s.writeJSON(w, records)
}
