package entity

import (
	"math"
	"time"
)

// Keys used in Entity.Calculated.
const (
	CalcArea        = "area"
	CalcVolume      = "volume"
	CalcRequiredCFM = "requiredCFM"
)

// New builds an entity of the kind implied by props, placed at the origin
// and stamped with now. Calculated metrics are filled in from props.
func New(id string, props Props, now time.Time) Entity {
	e := Entity{
		ID:         id,
		Kind:       props.Kind(),
		Transform:  IdentityTransform(),
		Props:      props,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	e.Calculated = Calculate(e)
	return e
}

// Calculate derives the read-only metrics of e from its props.
// Areas are in square feet, volumes in cubic feet. Returns nil when the
// kind has no metrics.
func Calculate(e Entity) map[string]float64 {
	switch p := e.Props.(type) {
	case RoomProps:
		area := p.Width * p.Length / 144
		volume := area * p.CeilingHeight / 12
		return map[string]float64{
			CalcArea:        round(area, 2),
			CalcVolume:      round(volume, 2),
			CalcRequiredCFM: round(volume*p.AirChangesPerHour/60, 2),
		}
	case DuctProps:
		return map[string]float64{
			CalcArea: round(DuctAreaSqFt(p), 4),
		}
	}
	return nil
}

// DuctAreaSqFt returns the cross-section area of a duct in square feet.
func DuctAreaSqFt(p DuctProps) float64 {
	switch p.Shape {
	case ShapeRound:
		if p.Diameter <= 0 {
			return 0
		}
		r := p.Diameter / 2
		return math.Pi * r * r / 144
	case ShapeRectangular:
		if p.Width <= 0 || p.Height <= 0 {
			return 0
		}
		return p.Width * p.Height / 144
	}
	return 0
}

// Velocity returns the air velocity in feet per minute through a duct at
// its current derived airflow. Non-duct entities and ducts without a valid
// cross-section report 0.
func Velocity(e Entity) float64 {
	p, ok := e.Props.(DuctProps)
	if !ok {
		return 0
	}
	area := DuctAreaSqFt(p)
	if area == 0 {
		return 0
	}
	return round(e.Derived.Airflow/area, 1)
}

func round(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}
