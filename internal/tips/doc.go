// Package tips tracks tip racks for each pipette on the deck.
//
// The Tracker hands out fresh tips in a fixed rack order, counts the tips each
// pipette drops, pauses the run for a rack refill when the supply runs out, and
// remembers tips that were parked back in the rack so a later phase can pick
// up the very same tip again.
package tips
