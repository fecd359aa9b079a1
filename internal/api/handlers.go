package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cognicore/concord/pkg/concord"
	"github.com/cognicore/concord/pkg/concord/internalerr"
	"github.com/cognicore/concord/pkg/concord/schema"
	"github.com/cognicore/concord/pkg/concord/store"
)

type alignBody struct {
	Document *schema.Document `json:"document"`
	concord.AlignRequest
}

type ingestBody struct {
	Document       *schema.Document `json:"document"`
	SegmentationID string           `json:"segmentation_id"`
}

type documentResponse struct {
	Document *schema.Document `json:"document,omitempty"`
	Run      store.Run        `json:"run"`
	Error    string           `json:"error,omitempty"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func validDocument(w http.ResponseWriter, doc *schema.Document) bool {
	if doc == nil || doc.ID == "" {
		jsonError(w, "document with an id is required", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, doc *schema.Document, run store.Run, err error) {
	if err != nil {
		writeJSON(w, statusFor(err), documentResponse{Run: run, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Document: doc, Run: run})
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var doc schema.Document
	if !decode(w, r, &doc) || !validDocument(w, &doc) {
		return
	}
	out, run, err := s.cc.Annotate(r.Context(), &doc)
	s.respond(w, out, run, err)
}

func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var body alignBody
	if !decode(w, r, &body) || !validDocument(w, body.Document) {
		return
	}
	out, run, err := s.cc.Align(r.Context(), body.Document, body.AlignRequest)
	s.respond(w, out, run, err)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var body ingestBody
	if !decode(w, r, &body) || !validDocument(w, body.Document) {
		return
	}
	out, run, err := s.cc.Ingest(r.Context(), body.Document, body.SegmentationID)
	s.respond(w, out, run, err)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.cc.Run(r.Context(), chi.URLParam(r, "runID"))
	if errors.Is(err, internalerr.ErrNotFound) {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.cc.Runs(r.Context(), chi.URLParam(r, "docID"), limit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
