// Package impact derives the financial cost breakdown and the aggregate
// security score from a final vulnerability set. All arithmetic is integer;
// identical inputs always yield identical outputs.
package impact

import "github.com/xkilldash9x/vulnexplain/api/schemas"

// Rates holds the market assumptions behind the financial model. The
// defaults reflect Indian enterprise data; override via configuration for
// other markets.
type Rates struct {
	// HourlyRate is the senior developer remediation rate per hour.
	HourlyRate int
	// DowntimeRatePerHour is the revenue loss per hour of downtime.
	DowntimeRatePerHour int
	// DowntimeHoursPerCritical is the assumed outage window per critical.
	DowntimeHoursPerCritical int
	// FinePerCritical is the regulatory fine assumed per critical finding.
	FinePerCritical int
	// ReputationPerIncident is the trust/churn cost per critical or high.
	ReputationPerIncident int
}

// DefaultRates returns the reference financial constants.
func DefaultRates() Rates {
	return Rates{
		HourlyRate:               2500,
		DowntimeRatePerHour:      50000,
		DowntimeHoursPerCritical: 4,
		FinePerCritical:          250000,
		ReputationPerIncident:    100000,
	}
}

// Calculate derives the four-part cost breakdown and exact total. An empty
// vulnerability list yields all zeros.
func Calculate(vulns []schemas.Vulnerability, r Rates) schemas.DetailedImpact {
	var fixCost, criticals, highOrCritical int
	for _, v := range vulns {
		fixCost += r.HourlyRate * v.FixTimeHours
		switch v.Severity {
		case schemas.SeverityCritical:
			criticals++
			highOrCritical++
		case schemas.SeverityHigh:
			highOrCritical++
		}
	}

	breakdown := schemas.ImpactBreakdown{
		FixCost:         fixCost,
		Downtime:        criticals * r.DowntimeHoursPerCritical * r.DowntimeRatePerHour,
		RegulatoryFines: criticals * r.FinePerCritical,
		Reputation:      highOrCritical * r.ReputationPerIncident,
	}
	return schemas.DetailedImpact{
		Breakdown: breakdown,
		TotalINR:  breakdown.FixCost + breakdown.Downtime + breakdown.RegulatoryFines + breakdown.Reputation,
	}
}

// Penalty weights per vulnerability. Accumulation is unbounded; repeated
// findings of the same tier keep counting.
var penaltyBySeverity = map[schemas.Severity]int{
	schemas.SeverityCritical: 25,
	schemas.SeverityHigh:     15,
	schemas.SeverityMedium:   8,
	schemas.SeverityLow:      3,
}

// Score returns the 0-100 security score. Empty list scores 100; adding any
// vulnerability never increases the score.
func Score(vulns []schemas.Vulnerability) int {
	if len(vulns) == 0 {
		return 100
	}

	penalty := 0
	for _, v := range vulns {
		if p, ok := penaltyBySeverity[v.Severity]; ok {
			penalty += p
		} else {
			penalty += penaltyBySeverity[schemas.SeverityLow]
		}
	}

	score := 100 - penalty
	if score < 0 {
		return 0
	}
	return score
}
