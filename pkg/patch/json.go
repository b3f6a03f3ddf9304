package patch

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the ordered hunk list.
func (p *Patch) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(p.Changes())
	if err != nil {
		return nil, fmt.Errorf("marshal patch: %w", err)
	}

	return data, nil
}
