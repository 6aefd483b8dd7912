package domain

import (
	"bytes"
	"encoding/json"
)

// FlexID decodes identifiers the platform sends either as JSON strings or numbers.
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) String() string {
	return string(id)
}

// Ptr returns nil for an empty id.
func (id FlexID) Ptr() *string {
	if id == "" {
		return nil
	}
	s := string(id)
	return &s
}
