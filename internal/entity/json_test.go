package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity_JSON_RoundTripEachKind(t *testing.T) {
	for _, k := range Kinds {
		t.Run(string(k), func(t *testing.T) {
			e := New("id-"+string(k), DefaultProps(k), t0)
			e.ConnectedTo = "next"
			e.Derived.Airflow = 125.5

			data, err := json.Marshal(e)
			require.NoError(t, err)

			var got Entity
			require.NoError(t, json.Unmarshal(data, &got))
			assert.True(t, e.Equal(got), "round trip mismatch:\n%s", data)
		})
	}
}

func TestEntity_UnmarshalJSON_OriginalProjectShape(t *testing.T) {
	data := []byte(`{
		"id": "diffuser-1",
		"type": "equipment",
		"connectedTo": "duct-1",
		"props": {"name": "Diffuser 1", "equipmentType": "diffuser", "capacity": 1000},
		"transform": {"x": 0, "y": 0, "rotation": 0, "scaleX": 1, "scaleY": 1},
		"zIndex": 1,
		"createdAt": "2025-01-02T03:04:05Z",
		"modifiedAt": "2025-01-02T03:04:05Z"
	}`)

	var e Entity
	require.NoError(t, json.Unmarshal(data, &e))

	assert.Equal(t, KindEquipment, e.Kind)
	assert.Equal(t, "duct-1", e.ConnectedTo)
	props, ok := e.Props.(EquipmentProps)
	require.True(t, ok)
	assert.Equal(t, EquipmentDiffuser, props.EquipmentType)
	assert.Equal(t, 1000.0, props.Capacity)
}

func TestEntity_UnmarshalJSON_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing id", `{"type":"duct","props":{}}`},
		{"unknown kind", `{"id":"x","type":"accessory","props":{}}`},
		{"missing props", `{"id":"x","type":"duct"}`},
		{"null props", `{"id":"x","type":"duct","props":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Entity
			assert.Error(t, json.Unmarshal([]byte(tt.data), &e))
		})
	}
}

func TestEntity_MarshalJSON_RejectsKindMismatch(t *testing.T) {
	e := duct("d1", "")
	e.Props = RoomProps{Name: "wrong"}
	_, err := json.Marshal(e)
	assert.Error(t, err)
}

func TestPatch_JSON_RoundTrip(t *testing.T) {
	prev := duct("d1", "d2")
	next := prev.Clone()
	next.ConnectedTo = ""
	next.Props = DuctProps{Name: "x", Shape: ShapeRound, Diameter: 8, Length: 5, Material: MaterialAluminum}
	fwd, _ := Diff(prev, next)

	data, err := json.Marshal(fwd)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"propsKind":"duct"`)

	var got Patch
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, prev.Apply(got).Equal(next))
}
