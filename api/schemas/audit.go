package schemas

import (
	"time"
)

// -- Audit Schemas --

// Severity represents the severity tier of a vulnerability. Tiers are always
// assigned by the backend from the CWE mapping, never taken from model output.
type Severity string

// Constants defining the closed set of severity tiers.
const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// RawFinding is a single untrusted finding as extracted from model output.
// Every field is optional; the normalizer applies defaults before any raw
// finding becomes a Vulnerability.
type RawFinding struct {
	CWEID        string   `json:"cwe_id"`
	Title        string   `json:"title"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Remediation  string   `json:"remediation"`
	DataImpact   []string `json:"data_impact"`
	SOC2Controls []string `json:"soc2_controls"`
}

// Vulnerability is the canonical, immutable record for a single weakness.
// Severity, FixTimeHours and Category are derived deterministically from the
// CWE identifier; all other fields are model-supplied text with defaults.
type Vulnerability struct {
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`

	// CWEID is nil only on the parse-failure sentinel record, which
	// serializes as an explicit "cwe_id": null on the wire.
	CWEID *string `json:"cwe_id"`

	Description string `json:"description"`
	Remediation string `json:"remediation"`
	Location    string `json:"location"`

	// SOC2Controls lists relevant SOC 2 control identifiers, order-preserving.
	SOC2Controls []string `json:"soc2_controls"`

	// DataImpact holds impact tags from an open vocabulary
	// (e.g. "PII", "Financial", "Authentication").
	DataImpact []string `json:"data_impact"`

	FixTimeHours int    `json:"fix_time_hours"`
	Category     string `json:"category,omitempty"`
}

// ImpactBreakdown is the four-part financial cost breakdown, in whole units
// of the configured currency. Field names match the public wire format.
type ImpactBreakdown struct {
	FixCost         int `json:"fixCost"`
	Downtime        int `json:"downtime"`
	RegulatoryFines int `json:"regulatoryFines"`
	Reputation      int `json:"reputation"`
}

// DetailedImpact wraps the breakdown plus its exact integer sum.
type DetailedImpact struct {
	Breakdown ImpactBreakdown `json:"breakdown"`
	TotalINR  int             `json:"totalINR"`
}

// AuditResult is the finished product of one audit request. It is created
// once, never mutated, and persisted verbatim.
type AuditResult struct {
	ID              string          `json:"id"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	SecurityScore   int             `json:"security_score"`
	DetailedImpact  DetailedImpact  `json:"detailedImpact"`
	Timestamp       time.Time       `json:"timestamp"`
}

// AuditRequest is the body of a snippet audit call.
type AuditRequest struct {
	CodeSnippet string `json:"code_snippet"`
	Language    string `json:"language,omitempty"`
}
