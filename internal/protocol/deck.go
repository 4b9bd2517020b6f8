package protocol

import (
	"fmt"

	"liquidplan/internal/liquid"
	"liquidplan/internal/tips"
)

// Deck container names used in handler locations.
const (
	ContainerReservoir    = "reservoir"
	ContainerDeepwell     = "deepwell"
	ContainerElutionPlate = "elution_plate"
	ContainerWaste        = "waste"
	ContainerSourcePlate  = "source_plate"
	ContainerDestPlate    = "destination_plate"
)

// columnWell names the first-row well of a 0-based plate column.
func columnWell(column int) string {
	return fmt.Sprintf("A%d", column+1)
}

// reservoirWell names a 1-based reservoir well.
func reservoirWell(well int) string {
	return fmt.Sprintf("A%d", well)
}

// side alternates the lateral offset so even columns aspirate from the left
// and odd columns from the right.
func side(column int) float64 {
	if column%2 == 0 {
		return -1
	}
	return 1
}

func tipLocation(tip *tips.Tip) liquid.Location {
	return liquid.TopOf(fmt.Sprintf("tiprack_%d", tip.Rack+1), tip.Well, 0)
}
