package datastore

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// NullString carries a nullable text column through to json, nulls stay
// nulls instead of collapsing to "".
type NullString struct {
	sql.NullString
}

// MarshalJSON for NullString
func (ns *NullString) MarshalJSON() ([]byte, error) {
	if !ns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(ns.String)
}

// UnmarshalJSON for NullString
func (ns *NullString) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(data) == 0 || raw == "null" {
		ns.String = ""
		ns.Valid = false
		return nil
	}
	ns.String = strings.Trim(raw, `"`)
	ns.Valid = true
	return nil
}
