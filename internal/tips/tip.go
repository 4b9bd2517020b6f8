package tips

import "fmt"

const (
	rackRows    = 8
	rackColumns = 12
	// TipsPerRack is the number of tips in a full rack.
	TipsPerRack = rackRows * rackColumns
)

var rowNames = [rackRows]string{"A", "B", "C", "D", "E", "F", "G", "H"}

// Tip is one rack slot. A multi-channel slot is a whole rack column.
type Tip struct {
	Pipette string
	Rack    int
	Slot    int
	Well    string
}

func (t *Tip) String() string {
	return fmt.Sprintf("rack %d %s", t.Rack+1, t.Well)
}

// ParkKey identifies a parked tip by the phase that parked it and the plate
// column it served.
type ParkKey struct {
	Phase  string
	Column int
}

func (k ParkKey) String() string {
	return fmt.Sprintf("%s column %d", k.Phase, k.Column+1)
}

// Mode says what happens to a tip when the pipette lets go of it.
type Mode int

const (
	// Drop discards the tip in the waste bin.
	Drop Mode = iota
	// Return puts the tip back in its slot as a fresh tip.
	Return
	// Park puts the tip back in its slot for reuse by a later phase.
	Park
)

func (m Mode) String() string {
	switch m {
	case Drop:
		return "drop"
	case Return:
		return "return"
	case Park:
		return "park"
	default:
		return "unknown"
	}
}

type slotState int

const (
	slotFresh slotState = iota
	slotInHand
	slotParked
	slotUsed
)

// slotWell names the rack well a slot starts at. Multi-channel slots are
// columns; single-channel slots run down each column before moving right.
func slotWell(slot, width int) string {
	if width > 1 {
		return fmt.Sprintf("A%d", slot+1)
	}
	return fmt.Sprintf("%s%d", rowNames[slot%rackRows], slot/rackRows+1)
}

func slotsPerRack(width int) int {
	if width > 1 {
		return rackColumns
	}
	return TipsPerRack
}
