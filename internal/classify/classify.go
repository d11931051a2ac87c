// Package classify holds the fixed lookup tables that turn an untrusted CWE
// identifier into backend-assigned severity, remediation time and category.
// All functions are pure, total and safe for concurrent use.
package classify

import "github.com/xkilldash9x/vulnexplain/api/schemas"

// DefaultCategory is returned for any CWE not present in the category table.
const DefaultCategory = "Other Security Issues"

// severityByCWE maps weakness identifiers to severity tiers. Matching is
// exact and case-sensitive. Key set intentionally differs from the category
// table (note "CWE-022" here vs "CWE-22" there).
var severityByCWE = map[string]schemas.Severity{
	"CWE-89":  schemas.SeverityCritical, // SQL Injection
	"CWE-79":  schemas.SeverityCritical, // XSS
	"CWE-78":  schemas.SeverityCritical, // OS Command Injection
	"CWE-94":  schemas.SeverityCritical, // Code Injection
	"CWE-022": schemas.SeverityCritical, // Path Traversal
	"CWE-798": schemas.SeverityCritical, // Hardcoded Credentials
	"CWE-502": schemas.SeverityCritical, // Deserialization
	"CWE-601": schemas.SeverityHigh,     // Open Redirect
	"CWE-352": schemas.SeverityHigh,     // CSRF
	"CWE-918": schemas.SeverityHigh,     // SSRF
	"CWE-434": schemas.SeverityHigh,     // Unrestricted File Upload
	"CWE-862": schemas.SeverityHigh,     // Missing Authorization
	"CWE-863": schemas.SeverityHigh,     // Incorrect Authorization
	"CWE-306": schemas.SeverityHigh,     // Missing Authentication
	"CWE-532": schemas.SeverityMedium,   // Information Exposure Through Log Files
	"CWE-200": schemas.SeverityMedium,   // Information Exposure
	"CWE-327": schemas.SeverityMedium,   // Weak Crypto
	"CWE-311": schemas.SeverityMedium,   // Missing Encryption
	"CWE-284": schemas.SeverityMedium,   // Improper Access Control
	"CWE-676": schemas.SeverityLow,      // Use of Potentially Dangerous Function
	"CWE-732": schemas.SeverityLow,      // Incorrect Permission Assignment
}

// fixHoursBySeverity maps a severity tier to the estimated remediation time.
var fixHoursBySeverity = map[schemas.Severity]int{
	schemas.SeverityCritical: 24,
	schemas.SeverityHigh:     8,
	schemas.SeverityMedium:   4,
	schemas.SeverityLow:      1,
}

// categoryByCWE maps weakness identifiers to human-readable category names.
var categoryByCWE = map[string]string{
	"CWE-89":  "SQL Injection",
	"CWE-79":  "Cross-Site Scripting (XSS)",
	"CWE-78":  "OS Command Injection",
	"CWE-94":  "Code Injection",
	"CWE-22":  "Path Traversal",
	"CWE-798": "Hardcoded Credentials",
	"CWE-502": "Insecure Deserialization",
	"CWE-601": "Open Redirect",
	"CWE-352": "Cross-Site Request Forgery (CSRF)",
	"CWE-918": "Server-Side Request Forgery (SSRF)",
	"CWE-434": "Unrestricted File Upload",
	"CWE-862": "Missing Authorization",
	"CWE-863": "Incorrect Authorization",
	"CWE-306": "Missing Authentication",
	"CWE-287": "Improper Authentication",
	"CWE-532": "Information Exposure Through Logs",
	"CWE-200": "Information Exposure",
	"CWE-327": "Weak Cryptography",
	"CWE-311": "Missing Encryption",
	"CWE-284": "Improper Access Control",
	"CWE-676": "Use of Dangerous Function",
	"CWE-732": "Incorrect Permissions",
}

// Severity returns the tier mapped to the given CWE, or Medium if unknown.
func Severity(cwe string) schemas.Severity {
	if tier, ok := severityByCWE[cwe]; ok {
		return tier
	}
	return schemas.SeverityMedium
}

// FixHours returns the estimated remediation time in hours for a tier.
// An unrecognized tier falls back to the Medium estimate.
func FixHours(tier schemas.Severity) int {
	if hours, ok := fixHoursBySeverity[tier]; ok {
		return hours
	}
	return 4
}

// Category returns the human-readable category for the given CWE. The title
// argument is accepted for signature symmetry but is not currently inspected;
// unmapped CWEs fall through to DefaultCategory.
func Category(cwe, title string) string {
	if cat, ok := categoryByCWE[cwe]; ok {
		return cat
	}
	return DefaultCategory
}
