package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// entityJSON is the wire shape of an Entity. Props are decoded in a second
// pass once the kind is known.
type entityJSON struct {
	ID          string             `json:"id"`
	Kind        Kind               `json:"type"`
	Transform   Transform          `json:"transform"`
	ZIndex      int                `json:"zIndex"`
	ConnectedTo string             `json:"connectedTo,omitempty"`
	Props       json.RawMessage    `json:"props"`
	Derived     Derived            `json:"derived"`
	Calculated  map[string]float64 `json:"calculated,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	ModifiedAt  time.Time          `json:"modifiedAt"`
}

// MarshalJSON implements json.Marshaler.
func (e Entity) MarshalJSON() ([]byte, error) {
	if e.Props == nil {
		return nil, fmt.Errorf("entity %q: props are required", e.ID)
	}
	if e.Props.Kind() != e.Kind {
		return nil, fmt.Errorf("entity %q: props of kind %q on %q entity", e.ID, e.Props.Kind(), e.Kind)
	}
	props, err := json.Marshal(e.Props)
	if err != nil {
		return nil, fmt.Errorf("entity %q: props: %w", e.ID, err)
	}
	return json.Marshal(entityJSON{
		ID:          e.ID,
		Kind:        e.Kind,
		Transform:   e.Transform,
		ZIndex:      e.ZIndex,
		ConnectedTo: e.ConnectedTo,
		Props:       props,
		Derived:     e.Derived,
		Calculated:  e.Calculated,
		CreatedAt:   e.CreatedAt,
		ModifiedAt:  e.ModifiedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
// Unknown kinds and missing props are rejected.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw entityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == "" {
		return fmt.Errorf("entity: id is required")
	}
	props, err := DecodeProps(raw.Kind, raw.Props)
	if err != nil {
		return fmt.Errorf("entity %q: %w", raw.ID, err)
	}
	*e = Entity{
		ID:          raw.ID,
		Kind:        raw.Kind,
		Transform:   raw.Transform,
		ZIndex:      raw.ZIndex,
		ConnectedTo: raw.ConnectedTo,
		Props:       props,
		Derived:     raw.Derived,
		Calculated:  raw.Calculated,
		CreatedAt:   raw.CreatedAt,
		ModifiedAt:  raw.ModifiedAt,
	}
	return nil
}

// DecodeProps decodes kind-specific props from JSON.
func DecodeProps(k Kind, data json.RawMessage) (Props, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, fmt.Errorf("props are required for kind %q", k)
	}
	switch k {
	case KindRoom:
		var p RoomProps
		err := json.Unmarshal(data, &p)
		return p, err
	case KindDuct:
		var p DuctProps
		err := json.Unmarshal(data, &p)
		return p, err
	case KindEquipment:
		var p EquipmentProps
		err := json.Unmarshal(data, &p)
		return p, err
	case KindFitting:
		var p FittingProps
		err := json.Unmarshal(data, &p)
		return p, err
	}
	return nil, fmt.Errorf("unknown kind %q", k)
}

// patchJSON is the wire shape of a Patch. PropsKind carries the
// discriminator needed to decode Props.
type patchJSON struct {
	Transform   *Transform         `json:"transform,omitempty"`
	ZIndex      *int               `json:"zIndex,omitempty"`
	ConnectedTo *string            `json:"connectedTo,omitempty"`
	PropsKind   Kind               `json:"propsKind,omitempty"`
	Props       json.RawMessage    `json:"props,omitempty"`
	Calculated  map[string]float64 `json:"calculated,omitempty"`
	ModifiedAt  *time.Time         `json:"modifiedAt,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p Patch) MarshalJSON() ([]byte, error) {
	w := patchJSON{
		Transform:   p.Transform,
		ZIndex:      p.ZIndex,
		ConnectedTo: p.ConnectedTo,
		Calculated:  p.Calculated,
		ModifiedAt:  p.ModifiedAt,
	}
	if p.Props != nil {
		raw, err := json.Marshal(p.Props)
		if err != nil {
			return nil, fmt.Errorf("patch props: %w", err)
		}
		w.PropsKind = p.Props.Kind()
		w.Props = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var w patchJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Patch{
		Transform:   w.Transform,
		ZIndex:      w.ZIndex,
		ConnectedTo: w.ConnectedTo,
		Calculated:  w.Calculated,
		ModifiedAt:  w.ModifiedAt,
	}
	if len(w.Props) > 0 {
		props, err := DecodeProps(w.PropsKind, w.Props)
		if err != nil {
			return fmt.Errorf("patch: %w", err)
		}
		p.Props = props
	}
	return nil
}
