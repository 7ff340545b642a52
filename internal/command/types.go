package command

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/entitystore"
)

// Type tags a command.
type Type string

const (
	TypeCreateEntity   Type = "CREATE_ENTITY"
	TypeCreateEntities Type = "CREATE_ENTITIES"
	TypeUpdateEntity   Type = "UPDATE_ENTITY"
	TypeUpdateEntities Type = "UPDATE_ENTITIES"
	TypeDeleteEntity   Type = "DELETE_ENTITY"
	TypeDeleteEntities Type = "DELETE_ENTITIES"
	TypeMoveEntities   Type = "MOVE_ENTITIES"
)

// Payload is the sealed set of mutation descriptions.
type Payload interface {
	isPayload()
}

// CreatePayload inserts entities at recorded positions. It is both the
// forward payload of a create and the inverse of a delete, where it holds
// the literal pre-image of what was deleted.
type CreatePayload struct {
	Placements []entitystore.Placement `json:"placements"`
}

// DeletePayload removes entities by id.
type DeletePayload struct {
	IDs []string `json:"ids"`
}

// UpdatePayload patches entities.
type UpdatePayload struct {
	Updates []entitystore.Update `json:"updates"`
}

// Move is one transform-only change.
// A zero From means "take the current stored transform".
type Move struct {
	ID   string           `json:"id"`
	From entity.Transform `json:"from"`
	To   entity.Transform `json:"to"`
}

// MovePayload repositions entities. Its inverse swaps From and To.
type MovePayload struct {
	Moves []Move `json:"moves"`
}

func (CreatePayload) isPayload() {}
func (DeletePayload) isPayload() {}
func (UpdatePayload) isPayload() {}
func (MovePayload) isPayload()   {}

// Command is an immutable, self-describing mutation.
type Command struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Payload   Payload   `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int64     `json:"seq"`
}

// Reversible is a command paired with its exact inverse and the selection
// to restore on either side of it.
type Reversible struct {
	Command
	Inverse Command `json:"inverse"`

	// SelectionBefore is restored on undo.
	SelectionBefore []string `json:"selectionBefore"`

	// SelectionAfter is restored on redo; nil falls back to SelectionBefore.
	SelectionAfter []string `json:"selectionAfter,omitempty"`
}

// AffectedIDs returns the ids a command touches, in payload order.
func (c Command) AffectedIDs() []string {
	switch p := c.Payload.(type) {
	case CreatePayload:
		ids := make([]string, len(p.Placements))
		for i, pl := range p.Placements {
			ids[i] = pl.Entity.ID
		}
		return ids
	case DeletePayload:
		return append([]string(nil), p.IDs...)
	case UpdatePayload:
		ids := make([]string, len(p.Updates))
		for i, u := range p.Updates {
			ids[i] = u.ID
		}
		return ids
	case MovePayload:
		ids := make([]string, len(p.Moves))
		for i, m := range p.Moves {
			ids[i] = m.ID
		}
		return ids
	}
	return nil
}

// commandJSON defers payload decoding until the type is known.
type commandJSON struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	Seq       int64           `json:"seq"`
}

// UnmarshalJSON implements json.Unmarshaler. The payload shape is chosen
// by the command type.
func (c *Command) UnmarshalJSON(data []byte) error {
	var raw commandJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var (
		p   Payload
		err error
	)
	switch raw.Type {
	case TypeCreateEntity, TypeCreateEntities:
		var cp CreatePayload
		err = json.Unmarshal(raw.Payload, &cp)
		p = cp
	case TypeDeleteEntity, TypeDeleteEntities:
		var dp DeletePayload
		err = json.Unmarshal(raw.Payload, &dp)
		p = dp
	case TypeUpdateEntity, TypeUpdateEntities:
		var up UpdatePayload
		err = json.Unmarshal(raw.Payload, &up)
		p = up
	case TypeMoveEntities:
		var mp MovePayload
		err = json.Unmarshal(raw.Payload, &mp)
		p = mp
	default:
		return fmt.Errorf("command %q: unknown type %q", raw.ID, raw.Type)
	}
	if err != nil {
		return fmt.Errorf("command %q: payload: %w", raw.ID, err)
	}
	*c = Command{ID: raw.ID, Type: raw.Type, Payload: p, Timestamp: raw.Timestamp, Seq: raw.Seq}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler. Without it the embedded
// Command's method would be promoted and the inverse silently dropped.
func (r *Reversible) UnmarshalJSON(data []byte) error {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return err
	}
	var rest struct {
		Inverse         Command  `json:"inverse"`
		SelectionBefore []string `json:"selectionBefore"`
		SelectionAfter  []string `json:"selectionAfter"`
	}
	if err := json.Unmarshal(data, &rest); err != nil {
		return err
	}
	*r = Reversible{
		Command:         cmd,
		Inverse:         rest.Inverse,
		SelectionBefore: rest.SelectionBefore,
		SelectionAfter:  rest.SelectionAfter,
	}
	return nil
}
