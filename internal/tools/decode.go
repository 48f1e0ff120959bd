package tools

import (
	"encoding/json"
	"fmt"
)

// decode unmarshals validated tool arguments into a typed struct.
func decode[T any](args json.RawMessage) (T, error) {
	var result T
	if len(args) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(args, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}
