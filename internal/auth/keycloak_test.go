package auth

import (
	"encoding/json"
	"testing"
)

func TestKeycloakMapperRolesAndAssignment(t *testing.T) {
	raw := map[string]any{
		"sub":                "user-42",
		"email":              "librarian@example.com",
		"preferred_username": "sara",
		"realm_access":       map[string]any{"roles": []any{"librarian", "admin"}},
		"assigned_node_id":   float64(7),
	}
	claims, err := KeycloakClaimsMapper{}.Map(raw)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if claims.Subject != "user-42" || claims.Username != "sara" {
		t.Fatalf("unexpected identity fields: %+v", claims)
	}
	if !claims.HasRole(RoleAdmin) || !claims.HasRole("librarian") {
		t.Fatalf("roles not propagated: %v", claims.Roles)
	}
	if claims.AssignedNodeID == nil || *claims.AssignedNodeID != 7 {
		t.Fatalf("assigned node not mapped: %v", claims.AssignedNodeID)
	}
}

func TestNodeIDClaimForms(t *testing.T) {
	cases := map[string]any{
		"float":  float64(12),
		"int64":  int64(12),
		"number": json.Number("12"),
		"string": "12",
	}
	for name, value := range cases {
		id := nodeIDClaim(value)
		if id == nil || *id != 12 {
			t.Fatalf("%s: nodeIDClaim(%v) = %v, want 12", name, value, id)
		}
	}
	for name, value := range map[string]any{
		"absent":  nil,
		"word":    "seven",
		"boolean": true,
	} {
		if id := nodeIDClaim(value); id != nil {
			t.Fatalf("%s: nodeIDClaim(%v) = %d, want nil", name, value, *id)
		}
	}
}

func TestHasRoleMissing(t *testing.T) {
	claims := Claims{Roles: []string{"librarian"}}
	if claims.HasRole(RoleAdmin) {
		t.Fatal("admin role should be absent")
	}
}
