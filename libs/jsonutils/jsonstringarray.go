// Package jsonutils carries json-backed sql types shared across datastores.
package jsonutils

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/jmoiron/sqlx/types"
)

// JSONStringArray is a string slice stored in a jsonb column. Risk factor
// lists and similar tag sets use it so the column stays queryable with the
// jsonb containment operators.
type JSONStringArray []string

// Scan decodes a jsonb column value into the array
func (arr *JSONStringArray) Scan(src interface{}) error {
	var jt types.JSONText
	if err := jt.Scan(src); err != nil {
		return err
	}
	return jt.Unmarshal(arr)
}

// Value implements driver.Valuer
func (arr *JSONStringArray) Value() (driver.Value, error) {
	data, err := json.Marshal((*[]string)(arr))
	if err != nil {
		return nil, err
	}

	var jt types.JSONText
	if err := jt.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return jt.Value()
}

// MarshalJSON keeps the wire shape a plain array
func (arr *JSONStringArray) MarshalJSON() ([]byte, error) {
	return json.Marshal((*[]string)(arr))
}

// UnmarshalJSON decodes a plain array
func (arr *JSONStringArray) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, (*[]string)(arr))
}
