package entity

// Props is the sealed set of user-owned, kind-specific fields.
// Every implementation is a comparable value type so that Props values can
// be compared with == and shared between snapshots.
type Props interface {
	Kind() Kind
	isProps()
}

// OccupancyType drives the room ventilation defaults.
type OccupancyType string

const (
	OccupancyOffice            OccupancyType = "office"
	OccupancyRetail            OccupancyType = "retail"
	OccupancyRestaurant        OccupancyType = "restaurant"
	OccupancyKitchenCommercial OccupancyType = "kitchen_commercial"
	OccupancyWarehouse         OccupancyType = "warehouse"
	OccupancyClassroom         OccupancyType = "classroom"
	OccupancyConference        OccupancyType = "conference"
	OccupancyLobby             OccupancyType = "lobby"
)

// RoomProps describes a room. Dimensions are in inches.
type RoomProps struct {
	Name              string        `json:"name"`
	Width             float64       `json:"width"`
	Length            float64       `json:"length"`
	CeilingHeight     float64       `json:"ceilingHeight"`
	OccupancyType     OccupancyType `json:"occupancyType"`
	AirChangesPerHour float64       `json:"airChangesPerHour"`
	Notes             string        `json:"notes,omitempty"`
}

func (RoomProps) Kind() Kind { return KindRoom }
func (RoomProps) isProps()   {}

// DuctShape selects which dimensions of a duct apply.
type DuctShape string

const (
	ShapeRound       DuctShape = "round"
	ShapeRectangular DuctShape = "rectangular"
)

// DuctMaterial affects friction only; the core stores it verbatim.
type DuctMaterial string

const (
	MaterialGalvanized DuctMaterial = "galvanized"
	MaterialStainless  DuctMaterial = "stainless"
	MaterialAluminum   DuctMaterial = "aluminum"
	MaterialFlex       DuctMaterial = "flex"
)

// DuctProps describes a duct run. Airflow is not here: it is derived.
type DuctProps struct {
	Name           string       `json:"name"`
	Shape          DuctShape    `json:"shape"`
	Diameter       float64      `json:"diameter,omitempty"`
	Width          float64      `json:"width,omitempty"`
	Height         float64      `json:"height,omitempty"`
	Length         float64      `json:"length"`
	Material       DuctMaterial `json:"material"`
	StaticPressure float64      `json:"staticPressure,omitempty"`
}

func (DuctProps) Kind() Kind { return KindDuct }
func (DuctProps) isProps()   {}

// EquipmentType classifies equipment. Some types act as flow sources.
type EquipmentType string

const (
	EquipmentHood     EquipmentType = "hood"
	EquipmentFan      EquipmentType = "fan"
	EquipmentDiffuser EquipmentType = "diffuser"
	EquipmentDamper   EquipmentType = "damper"
)

// EquipmentProps describes a piece of equipment. Capacity is in CFM.
type EquipmentProps struct {
	Name           string        `json:"name"`
	EquipmentType  EquipmentType `json:"equipmentType"`
	Manufacturer   string        `json:"manufacturer,omitempty"`
	ModelNumber    string        `json:"modelNumber,omitempty"`
	Capacity       float64       `json:"capacity"`
	StaticPressure float64       `json:"staticPressure,omitempty"`
	Width          float64       `json:"width,omitempty"`
	Depth          float64       `json:"depth,omitempty"`
	Height         float64       `json:"height,omitempty"`
}

func (EquipmentProps) Kind() Kind { return KindEquipment }
func (EquipmentProps) isProps()   {}

// FittingType classifies fittings.
type FittingType string

const (
	FittingElbow90 FittingType = "elbow_90"
	FittingElbow45 FittingType = "elbow_45"
	FittingTee     FittingType = "tee"
	FittingReducer FittingType = "reducer"
	FittingCap     FittingType = "cap"
)

// FittingProps describes a fitting joining ducts.
type FittingProps struct {
	Name         string      `json:"name,omitempty"`
	FittingType  FittingType `json:"fittingType"`
	Angle        float64     `json:"angle,omitempty"`
	InletDuctID  string      `json:"inletDuctId,omitempty"`
	OutletDuctID string      `json:"outletDuctId,omitempty"`
}

func (FittingProps) Kind() Kind { return KindFitting }
func (FittingProps) isProps()   {}

// DefaultProps returns the default user props for a kind, as a freshly
// placed object would carry. Returns nil for unknown kinds.
func DefaultProps(k Kind) Props {
	switch k {
	case KindRoom:
		return RoomProps{
			Name:              "Room",
			Width:             120,
			Length:            120,
			CeilingHeight:     96,
			OccupancyType:     OccupancyOffice,
			AirChangesPerHour: 4,
		}
	case KindDuct:
		return DuctProps{
			Name:     "Duct",
			Shape:    ShapeRound,
			Diameter: 12,
			Length:   10,
			Material: MaterialGalvanized,
		}
	case KindEquipment:
		return EquipmentProps{
			Name:          "Equipment",
			EquipmentType: EquipmentFan,
			Capacity:      1000,
		}
	case KindFitting:
		return FittingProps{
			FittingType: FittingElbow90,
			Angle:       90,
		}
	}
	return nil
}
