package protocol

import "liquidplan/internal/reagent"

// AspirationRecord is one planned trip out of a reagent channel.
type AspirationRecord struct {
	Step      int     `json:"step" yaml:"step"`
	Column    int     `json:"column" yaml:"column"`
	Trip      int     `json:"trip" yaml:"trip"`
	Reagent   string  `json:"reagent" yaml:"reagent"`
	Well      int     `json:"well" yaml:"well"`
	Height    float64 `json:"pickup_height_mm" yaml:"pickup_height_mm"`
	Required  float64 `json:"required_ul" yaml:"required_ul"`
	Net       float64 `json:"net_ul" yaml:"net_ul"`
	Remaining float64 `json:"remaining_ul" yaml:"remaining_ul"`
	Rollover  bool    `json:"rollover" yaml:"rollover"`
}

func newAspirationRecord(step, column, trip int, key string, plan reagent.Aspiration) AspirationRecord {
	return AspirationRecord{
		Step:      step,
		Column:    column,
		Trip:      trip,
		Reagent:   key,
		Well:      plan.Well,
		Height:    plan.Height,
		Required:  plan.Required,
		Net:       plan.Net,
		Remaining: plan.Remaining,
		Rollover:  plan.ChannelChanged,
	}
}
