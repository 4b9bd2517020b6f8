package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"liquidplan/internal/protocol"
)

func renderResult(result *protocol.Result, withAspirations bool) string {
	var b strings.Builder
	b.WriteString(renderTable("Run", []string{"Field", "Value"}, [][]string{
		{"Protocol", result.Protocol},
		{"Kind", result.Kind},
		{"Samples", strconv.Itoa(result.Samples)},
		{"Columns", strconv.Itoa(result.Columns)},
		{"Tips used", strconv.Itoa(result.TipsUsed())},
		{"Tip refills", strconv.Itoa(result.TipRefills())},
		{"Waiting", (time.Duration(result.WaitSeconds) * time.Second).String()},
	}, nil))
	b.WriteString(renderSteps(result.Steps))
	if len(result.Reagents) > 0 {
		b.WriteString(renderReagents(result))
	}
	b.WriteString(renderTips(result))
	if withAspirations && len(result.Aspirations) > 0 {
		b.WriteString(renderAspirations(result.Aspirations))
	}
	return b.String()
}

func renderSteps(steps []protocol.Step) string {
	rows := make([][]string, 0, len(steps))
	for _, step := range steps {
		elapsed := ""
		if step.Ran {
			elapsed = step.Elapsed.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			strconv.Itoa(step.Number),
			step.Description,
			yesNo(step.Execute),
			strconv.Itoa(step.WaitSeconds),
			elapsed,
		})
	}
	return renderTable("Steps", []string{"Step", "Description", "Execute", "Wait (s)", "Elapsed"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight})
}

func renderReagents(result *protocol.Result) string {
	rows := make([][]string, 0, len(result.Reagents))
	for _, st := range result.Reagents {
		wells := "-"
		if st.Channels > 0 {
			wells = fmt.Sprintf("%d-%d", st.FirstWell, st.FirstWell+st.Channels-1)
		}
		rows = append(rows, []string{
			st.Name,
			wells,
			fmt.Sprintf("%d/%d", st.ChannelsUsed, st.Channels),
			fmt.Sprintf("%.0f", st.NominalVolume),
			fmt.Sprintf("%.1f", st.Remaining),
			fmt.Sprintf("%.1f", st.Delivered),
			strconv.Itoa(st.Trips),
		})
	}
	return renderTable("Reagents", []string{"Reagent", "Wells", "Channels used", "Channel uL", "Remaining uL", "Delivered uL", "Trips"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight})
}

func renderTips(result *protocol.Result) string {
	rows := make([][]string, 0, len(result.Tips))
	for _, report := range result.Tips {
		rows = append(rows, []string{
			report.Pipette,
			strconv.Itoa(report.Used),
			fmt.Sprintf("%.2f", report.Racks),
			strconv.Itoa(report.Refills),
			strconv.Itoa(report.Dropped),
			strconv.Itoa(report.Returned),
			strconv.Itoa(report.Parked),
		})
	}
	return renderTable("Tips", []string{"Pipette", "Used", "Racks", "Refills", "Dropped", "Returned", "Parked"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight})
}

func renderAspirations(records []protocol.AspirationRecord) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rollover := ""
		if rec.Rollover {
			rollover = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(rec.Step),
			rec.Reagent,
			strconv.Itoa(rec.Column + 1),
			strconv.Itoa(rec.Trip + 1),
			strconv.Itoa(rec.Well),
			fmt.Sprintf("%.2f", rec.Height),
			fmt.Sprintf("%.1f", rec.Net),
			fmt.Sprintf("%.1f", rec.Remaining),
			rollover,
		})
	}
	return renderTable("Aspirations", []string{"Step", "Reagent", "Column", "Trip", "Well", "Height mm", "Net uL", "Remaining uL", "Rollover"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft})
}
