package service

import (
	"math"
	"sort"

	"clientpulse/internal/compliance/models"
	id "clientpulse/pkg/domain"
)

// ActiveTier picks the tier for a year from a client's assignments. When more
// than one assignment intersects the year the most recently inserted wins,
// then the tier name sorting last; ambiguous is true in that case.
func ActiveTier(assignments []*models.SegmentAssignment, year int) (tier string, ambiguous bool) {
	var candidates []*models.SegmentAssignment
	for _, a := range assignments {
		if a.IntersectsYear(year) {
			candidates = append(candidates, a)
		}
	}
	switch len(candidates) {
	case 0:
		return "", false
	case 1:
		return candidates[0].Tier, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Seq != candidates[j].Seq {
			return candidates[i].Seq > candidates[j].Seq
		}
		return candidates[i].Tier > candidates[j].Tier
	})
	return candidates[0].Tier, true
}

// RequiredSet returns expected counts per event type for a tier, omitting
// zero frequencies and excluded types.
func RequiredSet(tier string, requirements []*models.TierRequirement, excluded map[string]struct{}) map[string]int {
	required := make(map[string]int)
	if tier == "" {
		return required
	}
	for _, r := range requirements {
		if r.Tier != tier || r.FrequencyPerYear <= 0 {
			continue
		}
		if _, skip := excluded[r.EventType]; skip {
			continue
		}
		required[r.EventType] = r.FrequencyPerYear
	}
	return required
}

// EventPercentage is round(actual/expected*100). With nothing expected any
// activity counts as 100.
func EventPercentage(expected, actual int) int {
	if expected > 0 {
		return int(math.Round(float64(actual) / float64(expected) * 100))
	}
	if actual > 0 {
		return 100
	}
	return 0
}

func EventStatus(pct int) models.Status {
	switch {
	case pct < 50:
		return models.StatusCritical
	case pct < 100:
		return models.StatusAtRisk
	case pct == 100:
		return models.StatusCompliant
	default:
		return models.StatusExceeded
	}
}

func OverallStatus(score int) models.OverallStatus {
	switch {
	case score < 50:
		return models.OverallCritical
	case score < 100:
		return models.OverallAtRisk
	default:
		return models.OverallCompliant
	}
}

// Evaluate derives per-event records and the rollup for one client-year.
// The overall score is the share of required types at or above 100%.
func Evaluate(clientID id.ClientID, year int, tier string, ambiguous bool, required map[string]int, actuals map[string]int) *models.Result {
	codes := make([]string, 0, len(required))
	for code := range required {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	res := &models.Result{
		Summary: models.Summary{
			ClientID:      clientID,
			Year:          year,
			Tier:          tier,
			AmbiguousTier: ambiguous,
		},
		Records: make([]models.Record, 0, len(codes)),
	}
	passed := 0
	for _, code := range codes {
		expected, actual := required[code], actuals[code]
		pct := EventPercentage(expected, actual)
		if pct >= 100 {
			passed++
		}
		res.Records = append(res.Records, models.Record{
			ClientID:   clientID,
			Year:       year,
			EventType:  code,
			Expected:   expected,
			Actual:     actual,
			Percentage: pct,
			Status:     EventStatus(pct),
		})
	}

	if len(codes) == 0 {
		res.Summary.NoRequirements = true
		res.Summary.OverallStatus = models.OverallNoRequirements
		return res
	}
	score := int(math.Round(100 * float64(passed) / float64(len(codes))))
	res.Summary.OverallScore = &score
	res.Summary.OverallStatus = OverallStatus(score)
	return res
}

// Portfolio aggregates a year's results.
func Portfolio(year int, results []*models.Result) *models.PortfolioSummary {
	p := &models.PortfolioSummary{
		Year:     year,
		ByStatus: make(map[models.OverallStatus]int),
	}
	total := 0
	for _, r := range results {
		if r.Summary.Year != year {
			continue
		}
		p.ClientsEvaluated++
		p.ByStatus[r.Summary.OverallStatus]++
		if r.Summary.AmbiguousTier {
			p.AmbiguousTiers++
		}
		if r.Summary.OverallScore == nil {
			p.NoRequirements++
			continue
		}
		p.ClientsWithRequirements++
		total += *r.Summary.OverallScore
	}
	if p.ClientsWithRequirements > 0 {
		avg := float64(total) / float64(p.ClientsWithRequirements)
		p.AverageScore = &avg
	}
	return p
}
