package server

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/flowmend/pkg/errors"
	wfio "github.com/matzehuels/flowmend/pkg/io"
	"github.com/matzehuels/flowmend/pkg/observability"
	"github.com/matzehuels/flowmend/pkg/pipeline"
	"github.com/matzehuels/flowmend/pkg/render/nodelink"
	"github.com/matzehuels/flowmend/pkg/repair"
	"github.com/matzehuels/flowmend/pkg/store"
	"github.com/matzehuels/flowmend/pkg/workflow"
	"github.com/matzehuels/flowmend/pkg/workflow/catalog"
)

// repairResponse is the body of /v1/repair and PUT /v1/workflows/{id}.
type repairResponse struct {
	Graph       workflow.Graph     `json:"graph"`
	Diagnostics repair.Diagnostics `json:"diagnostics"`
	Violations  []repair.Violation `json:"violations,omitempty"`
	Stats       pipeline.Stats     `json:"stats"`
	CacheHit    bool               `json:"cache_hit"`
	UpdatedAt   *time.Time         `json:"updated_at,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readGraph decodes the request body, enforcing the body size limit.
func (s *Server) readGraph(w http.ResponseWriter, r *http.Request) (workflow.Graph, bool) {
	g, err := wfio.ReadJSON(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if stderrors.As(err, &tooBig) {
			writeErr(w, http.StatusRequestEntityTooLarge, errors.ErrCodeTooLarge, "request body too large")
			return workflow.Graph{}, false
		}
		writeError(w, err)
		return workflow.Graph{}, false
	}
	return g, true
}

func (s *Server) pipelineOptions() pipeline.Options {
	return pipeline.Options{Catalog: s.catalog, Layout: s.layout, Logger: s.logger, Allocator: s.allocator}
}

func (s *Server) repairWorkflow(w http.ResponseWriter, r *http.Request) {
	g, ok := s.readGraph(w, r)
	if !ok {
		return
	}
	res, err := s.runner.Execute(r.Context(), g, s.pipelineOptions())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repairResponse{
		Graph:       res.Graph,
		Diagnostics: res.Diagnostics,
		Violations:  res.Violations,
		Stats:       res.Stats,
		CacheHit:    res.CacheHit,
	})
}

func (s *Server) validateWorkflow(w http.ResponseWriter, r *http.Request) {
	g, ok := s.readGraph(w, r)
	if !ok {
		return
	}
	violations := repair.ValidateWith(g, repair.Options{Catalog: s.catalog, Layout: s.layout})
	if violations == nil {
		violations = []repair.Violation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":      len(violations) == 0,
		"violations": violations,
	})
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ids, err := s.store.List(r.Context())
	observability.Store().OnStoreOp(r.Context(), "list", "", time.Since(start), err)
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"workflows": ids})
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	id := chi.URLParam(r, "id")
	start := time.Now()
	rec, err := s.store.Get(r.Context(), id)
	observability.Store().OnStoreOp(r.Context(), "get", id, time.Since(start), err)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return rec, true
}

func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.getRecord(w, r); ok {
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) getWorkflowDOT(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.getRecord(w, r)
	if !ok {
		return
	}
	detailed := r.URL.Query().Get("detailed") == "true"
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = w.Write([]byte(nodelink.ToDOT(rec.Graph, nodelink.Options{Detailed: detailed, Catalog: s.catalog})))
}

// putWorkflow repairs the body and stores the result. The stored workflow
// changes only when repair succeeds.
func (s *Server) putWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateWorkflowID(id); err != nil {
		writeError(w, err)
		return
	}
	g, ok := s.readGraph(w, r)
	if !ok {
		return
	}

	res, err := s.runner.Execute(r.Context(), g, s.pipelineOptions())
	if err != nil {
		s.logger.Warn("workflow rejected; keeping stored version", "id", id, "error", err)
		writeError(w, err)
		return
	}

	start := time.Now()
	rec, err := s.store.Put(r.Context(), id, res.Graph)
	observability.Store().OnStoreOp(r.Context(), "put", id, time.Since(start), err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, repairResponse{
		Graph:       rec.Graph,
		Diagnostics: res.Diagnostics,
		Violations:  res.Violations,
		Stats:       res.Stats,
		CacheHit:    res.CacheHit,
		UpdatedAt:   &rec.UpdatedAt,
	})
}

func (s *Server) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	start := time.Now()
	err := s.store.Delete(r.Context(), id)
	observability.Store().OnStoreOp(r.Context(), "delete", id, time.Since(start), err)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fallback": s.catalog.Fallback(),
		"types":    s.catalog.Types(),
	})
}

func (s *Server) resolveType(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	declared, label := strings.TrimSpace(q.Get("type")), strings.TrimSpace(q.Get("label"))
	if declared == "" && label == "" {
		writeErr(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "type or label is required")
		return
	}
	res := s.catalog.Resolve(declared, label)
	typ, _ := s.catalog.Lookup(res.Type)
	writeJSON(w, http.StatusOK, struct {
		catalog.Resolution
		Node catalog.NodeType `json:"node"`
	}{res, typ})
}
