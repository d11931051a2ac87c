// -- internal/reporting/html.go --
package reporting

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
)

// severityRank orders the distribution summary from worst to best.
var severityRank = map[schemas.Severity]int{
	schemas.SeverityCritical: 4,
	schemas.SeverityHigh:     3,
	schemas.SeverityMedium:   2,
	schemas.SeverityLow:      1,
}

type severityCount struct {
	Severity schemas.Severity
	Count    int
}

type vulnRow struct {
	Index int
	schemas.Vulnerability
}

type htmlReportData struct {
	Result       *schemas.AuditResult
	Distribution []severityCount
	Rows         []vulnRow
}

var htmlReportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>VulnExplain Security Audit Report</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; color: #1e293b; margin: 2em auto; max-width: 52em; }
h1 { text-align: center; }
h2 { color: #2563eb; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1.5em; }
th, td { border: 1px solid #e2e8f0; padding: 8px 12px; text-align: left; }
th { background: #2563eb; color: #f8fafc; }
td.label { background: #f1f5f9; font-weight: bold; width: 12em; }
footer { color: #64748b; font-size: 0.8em; text-align: center; margin-top: 2em; }
</style>
</head>
<body>
<h1>VulnExplain Security Audit Report</h1>

<table>
<tr><td class="label">Audit ID</td><td>{{.Result.ID}}</td></tr>
<tr><td class="label">Security Score</td><td>{{.Result.SecurityScore}} / 100</td></tr>
<tr><td class="label">Total Vulnerabilities</td><td>{{len .Result.Vulnerabilities}}</td></tr>
<tr><td class="label">Total Financial Risk</td><td>&#8377;{{.Result.DetailedImpact.TotalINR}}</td></tr>
<tr><td class="label">Generated</td><td>{{.Result.Timestamp.Format "2006-01-02 15:04:05 UTC"}}</td></tr>
</table>

<h2>Financial Risk Breakdown</h2>
<table>
<tr><th>Category</th><th>Amount (INR)</th></tr>
<tr><td>Fix Costs</td><td>&#8377;{{.Result.DetailedImpact.Breakdown.FixCost}}</td></tr>
<tr><td>Downtime</td><td>&#8377;{{.Result.DetailedImpact.Breakdown.Downtime}}</td></tr>
<tr><td>Legal/Fines</td><td>&#8377;{{.Result.DetailedImpact.Breakdown.RegulatoryFines}}</td></tr>
<tr><td>Reputation</td><td>&#8377;{{.Result.DetailedImpact.Breakdown.Reputation}}</td></tr>
</table>

<h2>Severity Distribution</h2>
<p>{{range $i, $d := .Distribution}}{{if $i}} | {{end}}{{$d.Count}} {{$d.Severity}}{{else}}No vulnerabilities found{{end}}</p>

<h2>Detailed Vulnerabilities</h2>
{{range .Rows}}
<table>
<tr><td class="label">#{{.Index}}</td><td>{{.Title}}</td></tr>
<tr><td class="label">Severity</td><td>{{.Severity}}</td></tr>
<tr><td class="label">CWE</td><td>{{or .CWEID "N/A"}}</td></tr>
<tr><td class="label">Category</td><td>{{or .Category "N/A"}}</td></tr>
<tr><td class="label">Location</td><td>{{.Location}}</td></tr>
<tr><td class="label">Fix Time</td><td>{{.FixTimeHours}}h</td></tr>
<tr><td class="label">Description</td><td>{{.Description}}</td></tr>
<tr><td class="label">Remediation</td><td>{{.Remediation}}</td></tr>
</table>
{{end}}

<footer>Generated by VulnExplain | Based on IBM Cost of Data Breach 2024 &amp; DPDP Act 2023</footer>
</body>
</html>
`))

// RenderHTML renders the audit result as a self-contained HTML document.
func RenderHTML(result *schemas.AuditResult) ([]byte, error) {
	counts := make(map[schemas.Severity]int)
	for _, v := range result.Vulnerabilities {
		counts[v.Severity]++
	}

	distribution := make([]severityCount, 0, len(counts))
	for sev, n := range counts {
		distribution = append(distribution, severityCount{Severity: sev, Count: n})
	}
	sort.Slice(distribution, func(i, j int) bool {
		return severityRank[distribution[i].Severity] > severityRank[distribution[j].Severity]
	})

	rows := make([]vulnRow, len(result.Vulnerabilities))
	for i, v := range result.Vulnerabilities {
		rows[i] = vulnRow{Index: i + 1, Vulnerability: v}
	}

	data := htmlReportData{Result: result, Distribution: distribution, Rows: rows}
	var buf bytes.Buffer
	if err := htmlReportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render HTML report: %w", err)
	}
	return buf.Bytes(), nil
}
