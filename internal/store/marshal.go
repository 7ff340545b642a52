package store

import (
	"encoding/json"
	"fmt"

	"github.com/engryamato/hvaccore/internal/command"
	"github.com/engryamato/hvaccore/internal/entity"
)

// marshalEntity converts an entity to canonical JSON TEXT for storage.
func marshalEntity(e entity.Entity) (string, error) {
	data, err := entity.MarshalCanonical(e)
	if err != nil {
		return "", fmt.Errorf("marshal entity %s: %w", e.ID, err)
	}
	return string(data), nil
}

func unmarshalEntity(body string) (entity.Entity, error) {
	var e entity.Entity
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return entity.Entity{}, fmt.Errorf("unmarshal entity: %w", err)
	}
	return e, nil
}

// marshalCommand converts a reversible command to canonical JSON TEXT.
func marshalCommand(rc command.Reversible) (string, error) {
	data, err := entity.MarshalCanonical(rc)
	if err != nil {
		return "", fmt.Errorf("marshal command %s: %w", rc.ID, err)
	}
	return string(data), nil
}

func unmarshalCommand(body string) (command.Reversible, error) {
	var rc command.Reversible
	if err := json.Unmarshal([]byte(body), &rc); err != nil {
		return command.Reversible{}, fmt.Errorf("unmarshal command: %w", err)
	}
	return rc, nil
}
