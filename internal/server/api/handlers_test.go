package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openlibops/stacks/internal/auth"
	"github.com/openlibops/stacks/internal/catalog"
	"github.com/openlibops/stacks/internal/hierarchy"
	"github.com/openlibops/stacks/internal/server/api"
	"github.com/openlibops/stacks/internal/testsupport"
)

var adminClaims = auth.Claims{Subject: "admin-1", Roles: []string{auth.RoleAdmin}}

type env struct {
	server  *api.Server
	service *catalog.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	svc := catalog.NewService(testsupport.NewMemStore())
	return &env{server: api.New(svc), service: svc}
}

// do runs a request through the router with the given claims attached, the
// way the auth middleware would leave them.
func (e *env) do(t *testing.T, method, target string, body any, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if claims != nil {
		req = req.WithContext(auth.ToContext(req.Context(), *claims))
	}
	rec := httptest.NewRecorder()
	e.server.Routes().ServeHTTP(rec, req)
	return rec
}

func (e *env) seed(t *testing.T, name string, typ hierarchy.NodeType, parentID *int64) *catalog.Node {
	t.Helper()
	node, err := e.service.Create(context.Background(), catalog.CreateInput{Name: name, Type: typ, ParentID: parentID}, adminClaims)
	require.NoError(t, err)
	return node
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["message"]
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestNodesRequireAuthentication(t *testing.T) {
	e := newEnv(t)
	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/api/nodes"},
		{http.MethodPost, "/api/nodes"},
		{http.MethodGet, "/api/nodes/1"},
		{http.MethodPut, "/api/nodes/1"},
		{http.MethodDelete, "/api/nodes/1"},
		{http.MethodGet, "/api/nodes/stats"},
	} {
		rec := e.do(t, tc.method, tc.target, nil, nil)
		require.Equalf(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.target)
	}
}

func TestCreateNode(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/nodes",
		map[string]any{"name": "Central Library", "type": "Library"}, &adminClaims)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[api.CreateNodeResponse](t, rec)
	require.Equal(t, int64(1), created.ID)
	require.Equal(t, hierarchy.TypeLibrary, created.Type)
	require.Nil(t, created.ParentID)

	rec = e.do(t, http.MethodPost, "/api/nodes",
		map[string]any{"name": "Fiction", "type": "Section", "parent_id": created.ID}, &adminClaims)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateNodeRejectsUnknownType(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/nodes",
		map[string]any{"name": "X", "type": "Warehouse"}, &adminClaims)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateNodeHierarchyViolation(t *testing.T) {
	e := newEnv(t)
	root := e.seed(t, "Central Library", hierarchy.TypeLibrary, nil)

	rec := e.do(t, http.MethodPost, "/api/nodes",
		map[string]any{"name": "Bad Shelf", "type": "Shelf", "parent_id": root.ID}, &adminClaims)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, message(t, rec), "invalid hierarchy")
}

func TestCreateNodeMissingParent(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/nodes",
		map[string]any{"name": "Orphan", "type": "Section", "parent_id": 404}, &adminClaims)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "parent node not found", message(t, rec))
}

func TestCreateNodeScopedDenial(t *testing.T) {
	e := newEnv(t)
	root := e.seed(t, "Central Library", hierarchy.TypeLibrary, nil)
	section := e.seed(t, "Fiction", hierarchy.TypeSection, &root.ID)

	scoped := auth.Claims{Subject: "clerk-1", Roles: []string{"librarian"}, AssignedNodeID: &section.ID}
	rec := e.do(t, http.MethodPost, "/api/nodes",
		map[string]any{"name": "Rogue", "type": "Section", "parent_id": root.ID}, &scoped)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t,
		fmt.Sprintf("permission denied: you can only create direct child nodes of your assigned node (ID: %d)", section.ID),
		message(t, rec))
}

func TestGetTree(t *testing.T) {
	e := newEnv(t)
	root := e.seed(t, "Central Library", hierarchy.TypeLibrary, nil)
	section := e.seed(t, "Fiction", hierarchy.TypeSection, &root.ID)
	e.seed(t, "Aisle 1", hierarchy.TypeShelf, &section.ID)

	rec := e.do(t, http.MethodGet, "/api/nodes", nil, &adminClaims)
	require.Equal(t, http.StatusOK, rec.Code)

	var forest []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forest))
	require.Len(t, forest, 1)
	children := forest[0]["children"].([]any)
	require.Len(t, children, 1)
	grandchildren := children[0].(map[string]any)["children"].([]any)
	require.Len(t, grandchildren, 1)
	// Leaves must render children as [], never null.
	require.NotNil(t, grandchildren[0].(map[string]any)["children"])
}

func TestGetTreeScoped(t *testing.T) {
	e := newEnv(t)
	root := e.seed(t, "Central Library", hierarchy.TypeLibrary, nil)
	section := e.seed(t, "Fiction", hierarchy.TypeSection, &root.ID)
	shelf := e.seed(t, "Aisle 1", hierarchy.TypeShelf, &section.ID)

	scoped := auth.Claims{Subject: "clerk-1", Roles: []string{"librarian"}, AssignedNodeID: &section.ID}
	rec := e.do(t, http.MethodGet, "/api/nodes", nil, &scoped)
	require.Equal(t, http.StatusOK, rec.Code)

	var forest []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forest))
	require.Len(t, forest, 1)
	require.EqualValues(t, section.ID, forest[0]["id"])
	children := forest[0]["children"].([]any)
	require.Len(t, children, 1)
	require.EqualValues(t, shelf.ID, children[0].(map[string]any)["id"])
}

func TestGetTreeScopedMissingAssignment(t *testing.T) {
	e := newEnv(t)
	missing := int64(999)
	scoped := auth.Claims{Subject: "clerk-1", Roles: []string{"librarian"}, AssignedNodeID: &missing}
	rec := e.do(t, http.MethodGet, "/api/nodes", nil, &scoped)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetNodeDetail(t *testing.T) {
	e := newEnv(t)
	root := e.seed(t, "Central Library", hierarchy.TypeLibrary, nil)
	e.seed(t, "Zoology", hierarchy.TypeSection, &root.ID)
	e.seed(t, "Arts", hierarchy.TypeSection, &root.ID)

	rec := e.do(t, http.MethodGet, fmt.Sprintf("/api/nodes/%d", root.ID), nil, &adminClaims)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[api.NodeDetailResponse](t, rec)
	require.Equal(t, root.ID, detail.ID)
	require.Len(t, detail.Children, 2)
	require.Equal(t, "Arts", detail.Children[0].Name)
	require.Equal(t, "Zoology", detail.Children[1].Name)
}

func TestGetNodeNotFound(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/nodes/999", nil, &adminClaims)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/nodes/not-a-number", nil, &adminClaims)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateNode(t *testing.T) {
	e := newEnv(t)
	root := e.seed(t, "Central Library", hierarchy.TypeLibrary, nil)

	rec := e.do(t, http.MethodPut, fmt.Sprintf("/api/nodes/%d", root.ID),
		map[string]any{"name": "Main Library"}, &adminClaims)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Node updated successfully", message(t, rec))

	rec = e.do(t, http.MethodPut, fmt.Sprintf("/api/nodes/%d", root.ID),
		map[string]any{"name": ""}, &adminClaims)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPut, "/api/nodes/999",
		map[string]any{"name": "Ghost"}, &adminClaims)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteNodeCascades(t *testing.T) {
	e := newEnv(t)
	root := e.seed(t, "Central Library", hierarchy.TypeLibrary, nil)
	section := e.seed(t, "Fiction", hierarchy.TypeSection, &root.ID)
	e.seed(t, "Aisle 1", hierarchy.TypeShelf, &section.ID)

	rec := e.do(t, http.MethodDelete, fmt.Sprintf("/api/nodes/%d", section.ID), nil, &adminClaims)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Node and its children deleted", message(t, rec))

	rec = e.do(t, http.MethodGet, fmt.Sprintf("/api/nodes/%d", section.ID), nil, &adminClaims)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	e := newEnv(t)
	root := e.seed(t, "Central Library", hierarchy.TypeLibrary, nil)
	e.seed(t, "Fiction", hierarchy.TypeSection, &root.ID)
	e.seed(t, "History", hierarchy.TypeSection, &root.ID)

	rec := e.do(t, http.MethodGet, "/api/nodes/stats", nil, &adminClaims)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[api.StatsResponse](t, rec)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 2, stats.ByType["Section"])
}
