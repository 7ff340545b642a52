package testutil

import "github.com/engryamato/hvaccore/internal/entity"

// Diffuser returns a flow-source equipment entity feeding into to.
func Diffuser(id string, capacity float64, to string) entity.Entity {
	return Equipment(id, entity.EquipmentDiffuser, capacity, to)
}

// Equipment returns an equipment entity of the given type feeding into to.
func Equipment(id string, typ entity.EquipmentType, capacity float64, to string) entity.Entity {
	e := entity.New(id, entity.EquipmentProps{
		Name:          id,
		EquipmentType: typ,
		Capacity:      capacity,
	}, Epoch)
	e.ConnectedTo = to
	return e
}

// Duct returns a 12" round galvanized duct feeding into to.
func Duct(id, to string) entity.Entity {
	e := entity.New(id, entity.DuctProps{
		Name:     id,
		Shape:    entity.ShapeRound,
		Diameter: 12,
		Length:   10,
		Material: entity.MaterialGalvanized,
	}, Epoch)
	e.ConnectedTo = to
	return e
}

// Fitting returns a 90° elbow feeding into to.
func Fitting(id, to string) entity.Entity {
	e := entity.New(id, entity.FittingProps{
		FittingType: entity.FittingElbow90,
		Angle:       90,
	}, Epoch)
	e.ConnectedTo = to
	return e
}

// Room returns a 10'x10' office room feeding into to.
func Room(id, to string) entity.Entity {
	e := entity.New(id, entity.RoomProps{
		Name:              id,
		Width:             120,
		Length:            120,
		CeilingHeight:     96,
		OccupancyType:     entity.OccupancyOffice,
		AirChangesPerHour: 4,
	}, Epoch)
	e.ConnectedTo = to
	return e
}
