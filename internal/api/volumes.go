package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/banshee-data/fibretrace/internal/db"
	"github.com/banshee-data/fibretrace/internal/voxel"
)

// maxVolumeUpload caps volume container uploads at 256 MiB compressed.
const maxVolumeUpload = 256 << 20

func (s *Server) listVolumes(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	records, err := s.db.ListVolumes(kind)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to list volumes: %v", err))
		return
	}
	if records == nil {
		records = []db.VolumeRecord{}
	}
	s.writeJSON(w, records)
}

// uploadVolume accepts a binary volume container as the request body.
// Query params: name (required), kind (one of atlas, field, mask, density).
func (s *Server) uploadVolume(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.writeJSONError(w, http.StatusBadRequest, "Missing 'name' parameter")
		return
	}
	kind := r.URL.Query().Get("kind")
	switch kind {
	case db.VolumeKindAtlas, db.VolumeKindField, db.VolumeKindMask, db.VolumeKindDensity:
	default:
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid 'kind' parameter %q", kind))
		return
	}

	blob, err := io.ReadAll(io.LimitReader(r.Body, maxVolumeUpload))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read body: %v", err))
		return
	}

	// Decode before storing so malformed containers are rejected up front.
	field, err := voxel.DecodeField(blob)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("Invalid volume container: %v", err))
		return
	}

	id, err := s.db.InsertField(name, kind, field)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to store volume: %v", err))
		return
	}

	rec, err := s.db.GetVolumeRecord(id)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to load stored volume: %v", err))
		return
	}
	s.writeJSONStatus(w, http.StatusCreated, rec)
}

func (s *Server) downloadVolume(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	field, err := s.db.GetField(id)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("Volume not found: %v", err))
		return
	}

	blob, err := voxel.EncodeField(field)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to encode volume: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.ftvol", id))
	w.Write(blob)
}
