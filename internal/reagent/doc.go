// Package reagent tracks liquid remaining in multi-channel reagent reservoirs.
//
// A Ledger owns the reservoir and hands out consecutive wells to each
// provisioned Reagent. Before every aspiration the protocol asks the reagent to
// plan the trip: the reagent decides whether the current channel still holds
// enough usable liquid, rolls over to the next channel when it does not,
// computes the pickup height from the well geometry, and deducts the net volume
// in the same call.
package reagent
