package accounting

import (
	"fmt"
	"time"

	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/plan"
)

// NightStats summarizes one finalized plan: time left, total score,
// target-of-opportunity count, and per-band completion-fraction tallies
// (spec.md §2's "Time accounting" row; grounded on
// original_source/scheduler/core/stats_calculator/stats_calculator.py's
// `calculate_timeline_stats`).
type NightStats struct {
	TimeLeft          time.Duration
	PlanScore         float64
	TooCount          int
	CompletionByBand  map[model.Band]int
	ProgramCompletion map[model.ProgramID]string
}

// CalculateNightStats builds a NightStats for one finalized plan,
// looking up each visited observation's program via programOf.
func CalculateNightStats(p *plan.Plan, obsByID map[model.ObservationID]*model.Observation, programOf func(model.ProgramID) *model.Program) NightStats {
	stats := NightStats{
		CompletionByBand:  map[model.Band]int{model.Band1: 0, model.Band2: 0, model.Band3: 0, model.Band4: 0},
		ProgramCompletion: make(map[model.ProgramID]string),
	}
	stats.TimeLeft = time.Duration(p.TimeSlotsLeft()) * p.TimeSlotLength

	touchedPrograms := make(map[model.ProgramID]struct{})
	for _, v := range p.Visits {
		obs, ok := obsByID[v.ObservationID]
		if !ok {
			continue
		}
		stats.PlanScore += v.Score
		stats.CompletionByBand[bandOf(obs, programOf)]++
		touchedPrograms[obs.ProgramID] = struct{}{}
	}

	for progID := range touchedPrograms {
		prog := programOf(progID)
		if prog == nil {
			continue
		}
		stats.ProgramCompletion[progID] = ProgramCompletionPercent(prog)
	}

	return stats
}

func bandOf(obs *model.Observation, programOf func(model.ProgramID) *model.Program) model.Band {
	prog := programOf(obs.ProgramID)
	if prog == nil {
		return model.Band4
	}
	return prog.Band
}

// ProgramRealTotalUsed sums part_time + acq_overhead + prog_time across
// every observation's every atom in the program (stats_calculator.py's
// `program_real_total_used`).
func ProgramRealTotalUsed(prog *model.Program) time.Duration {
	var total time.Duration
	for _, obs := range prog.Observations() {
		total += obs.AcqOverhead
		for _, a := range obs.Sequence {
			total += a.ProgTime + a.PartTime
		}
	}
	return total
}

// ProgramCompletionPercent formats a program's used-time fraction as a
// percentage string, matching `calculate_program_completion`'s
// `f'{...*100:.1f}%'` formatting.
func ProgramCompletionPercent(prog *model.Program) string {
	total := ProgramRealTotalUsed(prog)
	if total <= 0 {
		return "0.0%"
	}
	pct := float64(prog.TotalUsed()) / float64(total) * 100
	return fmt.Sprintf("%.1f%%", pct)
}
