// Package normalize converts untrusted, possibly malformed model output into
// canonical Vulnerability records and collapses duplicates.
package normalize

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
	"github.com/xkilldash9x/vulnexplain/internal/classify"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Defaults applied to absent model-supplied fields.
const (
	UnknownCWE      = "UNKNOWN"
	UnknownTitle    = "Unknown Vulnerability"
	UnknownLocation = "Unknown location"
)

// StripFences removes a leading markdown code fence (and its optional "json"
// language tag) from raw model text, returning the fenced content.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	// Take the content between the first fence pair. A missing closing fence
	// leaves the remainder intact.
	parts := strings.SplitN(text, "```", 3)
	if len(parts) < 2 {
		return text
	}
	text = parts[1]
	text = strings.TrimPrefix(text, "json")
	return strings.TrimSpace(text)
}

// ExtractFindings parses raw model text into raw findings, tolerating
// surrounding markdown formatting noise. Returns ErrMalformedModelOutput if
// no valid JSON array can be extracted. A top-level null and null array
// elements are both malformed: null is not a finding, and an audit must
// never score a clean 100 off unusable output.
func ExtractFindings(raw string) ([]schemas.RawFinding, error) {
	text := StripFences(raw)

	var items []*schemas.RawFinding
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", schemas.ErrMalformedModelOutput, err)
	}
	if items == nil {
		return nil, fmt.Errorf("%w: top-level value is not a JSON array", schemas.ErrMalformedModelOutput)
	}

	findings := make([]schemas.RawFinding, 0, len(items))
	for _, item := range items {
		if item == nil {
			return nil, fmt.Errorf("%w: array contains a null finding", schemas.ErrMalformedModelOutput)
		}
		findings = append(findings, *item)
	}
	return findings, nil
}

// Normalize converts raw model text into canonical Vulnerability records,
// preserving input order. Severity, fix time and category are always derived
// from the CWE identifier, never trusted from the model.
func Normalize(raw string) ([]schemas.Vulnerability, error) {
	findings, err := ExtractFindings(raw)
	if err != nil {
		return nil, err
	}

	vulns := make([]schemas.Vulnerability, 0, len(findings))
	for _, f := range findings {
		vulns = append(vulns, FromRawFinding(f))
	}
	return vulns, nil
}

// FromRawFinding builds one canonical record from a raw finding, applying
// field defaults and the deterministic classifiers.
func FromRawFinding(f schemas.RawFinding) schemas.Vulnerability {
	cwe := f.CWEID
	if cwe == "" {
		cwe = UnknownCWE
	}
	title := f.Title
	if title == "" {
		title = UnknownTitle
	}
	location := f.Location
	if location == "" {
		location = UnknownLocation
	}

	tier := classify.Severity(cwe)

	dataImpact := f.DataImpact
	if dataImpact == nil {
		dataImpact = []string{}
	}
	soc2 := f.SOC2Controls
	if soc2 == nil {
		soc2 = []string{}
	}

	return schemas.Vulnerability{
		Title:        title,
		Severity:     tier,
		CWEID:        &cwe,
		Description:  f.Description,
		Remediation:  f.Remediation,
		Location:     location,
		SOC2Controls: soc2,
		DataImpact:   dataImpact,
		FixTimeHours: classify.FixHours(tier),
		Category:     classify.Category(cwe, title),
	}
}

// Sentinel returns the diagnostic record substituted when the model response
// cannot be parsed. The audit must still yield a well-formed result.
func Sentinel() schemas.Vulnerability {
	return schemas.Vulnerability{
		Title:        "Analysis Error",
		Severity:     schemas.SeverityLow,
		Description:  "Unable to parse AI response. Please try again.",
		Remediation:  "Retry the audit",
		Location:     "N/A",
		SOC2Controls: []string{},
		DataImpact:   []string{},
		FixTimeHours: 1,
	}
}

// dedupKey is a finding's identity: same weakness class in the same file is
// one vulnerability, regardless of how the model worded it.
type dedupKey struct {
	cwe      string
	location string
}

func keyFor(v schemas.Vulnerability) dedupKey {
	cwe := ""
	if v.CWEID != nil {
		cwe = strings.TrimSpace(*v.CWEID)
	}
	if cwe == "" {
		cwe = UnknownCWE
	}
	return dedupKey{
		cwe:      strings.ToUpper(cwe),
		location: strings.ToLower(strings.TrimSpace(v.Location)),
	}
}

// Deduplicate keeps the first record for each identity key, preserving
// first-seen order. Idempotent.
func Deduplicate(vulns []schemas.Vulnerability) []schemas.Vulnerability {
	seen := make(map[dedupKey]struct{}, len(vulns))
	out := make([]schemas.Vulnerability, 0, len(vulns))
	for _, v := range vulns {
		k := keyFor(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
