package models

import (
	"encoding/json"
	"sort"
	"time"
)

// Zone is a sub-area of an event with required headcounts. The supervisors
// column is a denormalized JSON cache of supervisor user ids, not a join
// table; it has historically been written in inconsistent shapes, so all
// reads go through DecodeSupervisorSet.
type Zone struct {
	ID                  string    `db:"id" json:"id"`
	EventID             string    `db:"event_id" json:"event_id"`
	Name                string    `db:"name" json:"name"`
	RequiredAgents      int       `db:"required_agents" json:"required_agents"`
	RequiredSupervisors int       `db:"required_supervisors" json:"required_supervisors"`
	RawSupervisors      *string   `db:"supervisors" json:"-"`
	Color               *string   `db:"color" json:"color,omitempty"`
	Priority            int       `db:"priority" json:"priority"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// SupervisorIDs returns the normalized supervisor set cached on the zone.
func (z *Zone) SupervisorIDs() []string {
	if z.RawSupervisors == nil {
		return nil
	}
	return DecodeSupervisorSet([]byte(*z.RawSupervisors))
}

// ZoneDetail augments a zone with resolved counts for staffing views.
type ZoneDetail struct {
	Zone
	SupervisorIDs      []string `json:"supervisor_ids"`
	AssignedAgents     int      `json:"assigned_agents"`
	AssignedSupervisor int      `json:"assigned_supervisors"`
}

// ZoneFilter narrows zone listings.
type ZoneFilter struct {
	EventID string
	Search  string
}

// DecodeSupervisorSet normalizes the serialized supervisors column into a
// deduplicated id list. Accepted legacy encodings: a JSON array of ids, a
// JSON object whose values are ids, a doubly-encoded JSON string wrapping
// either, and null. Anything unrecognized decodes to an empty set.
func DecodeSupervisorSet(raw []byte) []string {
	return decodeSupervisorSet(raw, 0)
}

func decodeSupervisorSet(raw []byte, depth int) []string {
	if len(raw) == 0 || depth > 2 {
		return nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		ids := make([]string, 0, len(arr))
		for _, item := range arr {
			if id, ok := decodeID(item); ok {
				ids = append(ids, id)
			}
		}
		return dedupe(ids)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		ids := make([]string, 0, len(obj))
		for _, item := range obj {
			if id, ok := decodeID(item); ok {
				ids = append(ids, id)
			}
		}
		// map iteration order is random; keep the result stable
		sort.Strings(ids)
		return dedupe(ids)
	}

	// doubly-encoded payloads: a JSON string containing JSON
	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		return decodeSupervisorSet([]byte(inner), depth+1)
	}

	return nil
}

// EncodeSupervisorSet serializes a supervisor id list back to its storage
// form. Empty sets encode to nil so the column is nulled out.
func EncodeSupervisorSet(ids []string) *string {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return nil
	}
	encoded := string(payload)
	return &encoded
}

func decodeID(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", false
		}
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil && n.String() != "" {
		return n.String(), true
	}
	return "", false
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
