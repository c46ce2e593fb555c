// Package api exposes the catalog over a JSON REST surface.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openlibops/stacks/internal/auth"
	"github.com/openlibops/stacks/internal/catalog"
	"github.com/openlibops/stacks/internal/hierarchy"
	"github.com/openlibops/stacks/internal/validation"
)

// Server holds the HTTP handler dependencies.
type Server struct {
	catalog *catalog.Service
}

// New creates an API server over the catalog service.
func New(svc *catalog.Service) *Server {
	return &Server{catalog: svc}
}

// Routes mounts the API on a chi router. The auth middleware must run
// outside this router; handlers only consume the claims it leaves on the
// request context.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", s.Health)
	r.Route("/api/nodes", func(r chi.Router) {
		r.Use(requireClaims)
		r.Post("/", s.CreateNode)
		r.Get("/", s.GetTree)
		r.Get("/stats", s.GetStats)
		r.Get("/{id}", s.GetNode)
		r.Put("/{id}", s.UpdateNode)
		r.Delete("/{id}", s.DeleteNode)
	})
	return r
}

// requireClaims rejects requests that reached the API without an
// authenticated identity.
func requireClaims(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeMessage(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateNodeRequest is the request body for creating a node.
type CreateNodeRequest struct {
	Name     string             `json:"name"`
	Type     hierarchy.NodeType `json:"type"`
	ParentID *int64             `json:"parent_id"`
}

// CreateNodeResponse is the response for creating a node.
type CreateNodeResponse struct {
	ID       int64              `json:"id"`
	Name     string             `json:"name"`
	Type     hierarchy.NodeType `json:"type"`
	ParentID *int64             `json:"parent_id"`
}

// CreateNode handles POST /api/nodes.
func (s *Server) CreateNode(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())

	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	node, err := s.catalog.Create(r.Context(), catalog.CreateInput{
		Name:     req.Name,
		Type:     req.Type,
		ParentID: req.ParentID,
	}, claims)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateNodeResponse{
		ID:       node.ID,
		Name:     node.Name,
		Type:     node.Type,
		ParentID: node.ParentID,
	})
}

// GetTree handles GET /api/nodes. The forest is scoped to the caller:
// admins and unassigned users see every root, assigned users see a
// single-element slice holding their subtree.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	forest, err := s.catalog.Tree(r.Context(), claims)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forest)
}

// StatsResponse is the response for the catalog stats endpoint.
type StatsResponse struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// GetStats handles GET /api/nodes/stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.catalog.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Total: stats.Total, ByType: stats.ByType})
}

// NodeSummary is a node rendered without its descendants.
type NodeSummary struct {
	ID       int64              `json:"id"`
	Name     string             `json:"name"`
	Type     hierarchy.NodeType `json:"type"`
	ParentID *int64             `json:"parent_id"`
}

// NodeDetailResponse is a single node with its direct children, ordered by
// name.
type NodeDetailResponse struct {
	NodeSummary
	CreatedAt time.Time     `json:"created_at"`
	Children  []NodeSummary `json:"children"`
}

// GetNode handles GET /api/nodes/{id}.
func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r)
	if !ok {
		return
	}
	node, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := NodeDetailResponse{
		NodeSummary: summarize(node),
		CreatedAt:   node.CreatedAt,
		Children:    make([]NodeSummary, len(node.Children)),
	}
	for i, child := range node.Children {
		resp.Children[i] = summarize(child)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateNodeRequest is the request body for renaming a node.
type UpdateNodeRequest struct {
	Name string `json:"name"`
}

// UpdateNode handles PUT /api/nodes/{id}. Only the name may change.
func (s *Server) UpdateNode(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r)
	if !ok {
		return
	}
	var req UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.catalog.Rename(r.Context(), id, req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Node updated successfully")
}

// DeleteNode handles DELETE /api/nodes/{id}. Removes the node and its
// entire subtree.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeID(w, r)
	if !ok {
		return
	}
	if err := s.catalog.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Node and its children deleted")
}

func summarize(node *catalog.Node) NodeSummary {
	return NodeSummary{ID: node.ID, Name: node.Name, Type: node.Type, ParentID: node.ParentID}
}

func nodeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid node id")
		return 0, false
	}
	return id, true
}

func errorStatus(err error) int {
	var (
		denied    *catalog.PermissionDeniedError
		placement *hierarchy.PlacementError
		fields    validation.Errors
	)
	switch {
	case errors.As(err, &denied):
		return http.StatusForbidden
	case errors.As(err, &placement),
		errors.As(err, &fields),
		errors.Is(err, catalog.ErrParentNotFound):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, catalog.ErrAssignedScopeNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("api: internal error: %v", err)
		writeMessage(w, status, "internal server error")
		return
	}
	writeMessage(w, status, err.Error())
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}
