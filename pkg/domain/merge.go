package domain

import (
	"encoding/json"
	"fmt"
)

// MergePartial shallow-merges partial onto dst using persisted JSON field names.
// Top-level keys present in partial replace the stored value; all other fields
// survive. dst must be a pointer to a struct.
func MergePartial(dst any, partial map[string]any) error {
	if len(partial) == 0 {
		return nil
	}
	current, err := json.Marshal(dst)
	if err != nil {
		return fmt.Errorf("encode current: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(current, &fields); err != nil {
		return fmt.Errorf("decode current: %w", err)
	}
	for k, v := range partial {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		fields[k] = raw
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode merged: %w", err)
	}
	if err := json.Unmarshal(merged, dst); err != nil {
		return &ValidationError{Field: "partial", Message: MsgInvalidValue + ": " + err.Error()}
	}
	return nil
}
