package core

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeID returns the canonical string form of an entity identity.
//
// Records reach the console with identities in several shapes: plain strings,
// numbers decoded from JSON, or whole embedded entities ({"_id": ...}). All of
// them collapse to a trimmed string so comparisons are stable.
func NormalizeID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case map[string]any:
		if inner, ok := id["_id"]; ok {
			return NormalizeID(inner)
		}
		return NormalizeID(id["id"])
	case Category:
		return NormalizeID(id.ID)
	case Product:
		return NormalizeID(id.ID)
	case Order:
		return NormalizeID(id.ID)
	case fmt.Stringer:
		return strings.TrimSpace(id.String())
	default:
		return strings.TrimSpace(fmt.Sprint(id))
	}
}

// NormalizeIDs normalizes every element of a decoded id list, dropping blanks.
// Accepts []string, []any and nil.
func NormalizeIDs(v any) []string {
	var raw []any
	switch ids := v.(type) {
	case nil:
		return []string{}
	case []string:
		raw = make([]any, len(ids))
		for i, s := range ids {
			raw[i] = s
		}
	case []any:
		raw = ids
	default:
		raw = []any{ids}
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if id := NormalizeID(r); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// NormalizeRecord rewrites identity-bearing keys of a decoded record in place:
// "_id"/"id" become canonical strings, "*_ids" lists become []string.
func NormalizeRecord(rec map[string]any) map[string]any {
	for k, v := range rec {
		switch {
		case k == "_id" || k == "id":
			rec[k] = NormalizeID(v)
		case strings.HasSuffix(k, "_ids"):
			rec[k] = NormalizeIDs(v)
		}
	}
	if _, ok := rec["_id"]; !ok {
		if id, ok := rec["id"]; ok {
			rec["_id"] = id
		}
	}
	return rec
}
