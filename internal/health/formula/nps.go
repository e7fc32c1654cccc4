package formula

import (
	"sort"

	"clientpulse/internal/health/models"
)

// NPS summarises a client's survey responses.
type NPS struct {
	Score     *float64
	Responses int
	Quarter   string
	Declining bool
}

// ComputeNPS scores the most recent calendar quarter that has responses:
// (promoters - detractors) / n * 100, with promoters at 9 or 10 and
// detractors at 6 or below. Declining is set when the per-quarter average
// score fell in two consecutive quarters anywhere in the history.
func ComputeNPS(responses []*models.SurveyResponse) NPS {
	if len(responses) == 0 {
		return NPS{}
	}
	byQuarter := make(map[string][]int)
	for _, r := range responses {
		q := r.Quarter()
		byQuarter[q] = append(byQuarter[q], r.Score)
	}
	quarters := make([]string, 0, len(byQuarter))
	for q := range byQuarter {
		quarters = append(quarters, q)
	}
	// "2024-Q3" labels sort chronologically.
	sort.Strings(quarters)

	latest := quarters[len(quarters)-1]
	scores := byQuarter[latest]
	promoters, detractors := 0, 0
	for _, s := range scores {
		switch {
		case s >= 9:
			promoters++
		case s <= 6:
			detractors++
		}
	}
	score := float64(promoters-detractors) / float64(len(scores)) * 100

	return NPS{
		Score:     &score,
		Responses: len(scores),
		Quarter:   latest,
		Declining: declining(quarters, byQuarter),
	}
}

func declining(quarters []string, byQuarter map[string][]int) bool {
	declines := 0
	prev := 0.0
	for i, q := range quarters {
		avg := mean(byQuarter[q])
		if i > 0 && avg < prev {
			declines++
			if declines >= 2 {
				return true
			}
		} else {
			declines = 0
		}
		prev = avg
	}
	return false
}

func mean(xs []int) float64 {
	total := 0
	for _, x := range xs {
		total += x
	}
	return float64(total) / float64(len(xs))
}
