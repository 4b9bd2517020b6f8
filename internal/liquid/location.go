package liquid

import "fmt"

// Reference is the well point a location's z offset is measured from.
type Reference int

const (
	// Bottom measures z upward from the well bottom.
	Bottom Reference = iota
	// Top measures z from the well top; negative values go into the well.
	Top
)

func (r Reference) String() string {
	if r == Top {
		return "top"
	}
	return "bottom"
}

// MarshalText renders the reference for journals and reports.
func (r Reference) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses "top" or "bottom".
func (r *Reference) UnmarshalText(text []byte) error {
	switch string(text) {
	case "bottom":
		*r = Bottom
	case "top":
		*r = Top
	default:
		return fmt.Errorf("unknown well reference %q", text)
	}
	return nil
}

// Location addresses a point in a labware well.
type Location struct {
	Container string    `json:"container"`
	Well      string    `json:"well"`
	Reference Reference `json:"reference"`
	Z         float64   `json:"z"`
	X         float64   `json:"x,omitempty"`
}

// BottomOf addresses a point z millimetres above the well bottom.
func BottomOf(container, well string, z float64) Location {
	return Location{Container: container, Well: well, Reference: Bottom, Z: z}
}

// TopOf addresses a point z millimetres from the well top.
func TopOf(container, well string, z float64) Location {
	return Location{Container: container, Well: well, Reference: Top, Z: z}
}

// Shift moves the location sideways by x millimetres.
func (l Location) Shift(x float64) Location {
	l.X += x
	return l
}

func (l Location) String() string {
	s := fmt.Sprintf("%s %s %s%+.2f", l.Container, l.Well, l.Reference, l.Z)
	if l.X != 0 {
		s += fmt.Sprintf(" x%+.2f", l.X)
	}
	return s
}
