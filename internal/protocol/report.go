package protocol

import (
	"fmt"
	"math"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"liquidplan/internal/reagent"
)

// VolumeReport describes how each provisioned reagent is laid out in the
// reservoir, one line per reagent.
func VolumeReport(statuses []reagent.Status) []string {
	title := cases.Title(language.English)
	lines := make([]string, 0, len(statuses))
	for _, st := range statuses {
		if st.Channels == 0 {
			continue
		}
		unit := "channels"
		if st.Channels == 1 {
			unit = "channel"
		}
		lines = append(lines, fmt.Sprintf("%s: %d %s from well %d with %.0f uL each",
			title.String(st.Name), st.Channels, unit, st.FirstWell, math.Round(st.NominalVolume)))
	}
	return lines
}
