package model

import (
	"encoding/json"
	"fmt"

	"github.com/syncbridge/syncd/internal/pathkey"
)

// MarshalJSON renders the Instruction as a single-key object, e.g.
// {"Upload":"a/b.txt"}, per spec §6 ("Wire JSON for Instruction").
func (i Instruction) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{string(i.Kind): i.Path.String()})
}

// UnmarshalJSON parses the single-key externally-tagged form back into an
// Instruction.
func (i *Instruction) UnmarshalJSON(data []byte) error {
	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("model: decoding instruction: %w", err)
	}

	if len(obj) != 1 {
		return fmt.Errorf("model: instruction must have exactly one key, got %d", len(obj))
	}

	for k, v := range obj {
		kind := InstructionKind(k)
		switch kind {
		case InstructionUpload, InstructionDownload, InstructionDelete:
		default:
			return fmt.Errorf("model: unknown instruction kind %q", k)
		}

		p, err := pathkey.FromSlashString(v)
		if err != nil {
			return fmt.Errorf("model: instruction path: %w", err)
		}

		i.Kind = kind
		i.Path = p
	}

	return nil
}
