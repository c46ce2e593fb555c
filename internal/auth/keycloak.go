package auth

import (
	"encoding/json"
	"strconv"
)

// KeycloakClaimsMapper extracts roles from realm_access and the catalog's
// assigned_node_id claim from a Keycloak-shaped token.
type KeycloakClaimsMapper struct{}

// Map implements ClaimsMapper.
func (KeycloakClaimsMapper) Map(raw map[string]any) (Claims, error) {
	get := func(k string) string {
		if v, ok := raw[k].(string); ok {
			return v
		}
		return ""
	}
	roles := []string{}
	if ra, ok := raw["realm_access"].(map[string]any); ok {
		if rr, ok := ra["roles"].([]any); ok {
			for _, v := range rr {
				if s, ok := v.(string); ok {
					roles = append(roles, s)
				}
			}
		}
	}
	return Claims{
		Subject:        get("sub"),
		Email:          get("email"),
		Username:       get("preferred_username"),
		Roles:          roles,
		AssignedNodeID: nodeIDClaim(raw["assigned_node_id"]),
		Raw:            raw,
	}, nil
}

// nodeIDClaim tolerates the numeric claim arriving as a JSON number, a
// json.Number, or a numeric string, depending on the token decoder.
func nodeIDClaim(v any) *int64 {
	switch value := v.(type) {
	case float64:
		id := int64(value)
		return &id
	case int64:
		id := value
		return &id
	case json.Number:
		if id, err := value.Int64(); err == nil {
			return &id
		}
	case string:
		if id, err := strconv.ParseInt(value, 10, 64); err == nil {
			return &id
		}
	}
	return nil
}
