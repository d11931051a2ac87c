package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
)

func TestStripFences(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare json untouched", `[{"cwe_id":"CWE-89"}]`, `[{"cwe_id":"CWE-89"}]`},
		{"fenced with json tag", "```json\n[]\n```", "[]"},
		{"fenced without tag", "```\n[]\n```", "[]"},
		{"leading whitespace before fence", "  \n```json\n[1]\n```", "[1]"},
		{"missing closing fence keeps remainder", "```json\n[2]", "[2]"},
		{"trailing prose after fence is dropped", "```json\n[3]\n```\nHope this helps!", "[3]"},
		{"empty input", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StripFences(tc.input))
		})
	}
}

func TestExtractFindings(t *testing.T) {
	t.Run("valid array", func(t *testing.T) {
		findings, err := ExtractFindings(`[{"cwe_id":"CWE-89","title":"SQLi","location":"db.py:10"}]`)
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, "CWE-89", findings[0].CWEID)
	})

	t.Run("empty array", func(t *testing.T) {
		findings, err := ExtractFindings("```json\n[]\n```")
		require.NoError(t, err)
		assert.Empty(t, findings)
	})

	t.Run("prose is malformed", func(t *testing.T) {
		_, err := ExtractFindings("I could not find any issues in this code.")
		require.Error(t, err)
		assert.ErrorIs(t, err, schemas.ErrMalformedModelOutput)
	})

	t.Run("object instead of array is malformed", func(t *testing.T) {
		_, err := ExtractFindings(`{"cwe_id":"CWE-89"}`)
		assert.ErrorIs(t, err, schemas.ErrMalformedModelOutput)
	})

	t.Run("truncated json is malformed", func(t *testing.T) {
		_, err := ExtractFindings(`[{"cwe_id":"CWE-89"`)
		assert.ErrorIs(t, err, schemas.ErrMalformedModelOutput)
	})

	t.Run("top-level null is malformed", func(t *testing.T) {
		// null parses as a nil slice; it must not pass as an empty finding
		// list, or the audit would score a clean 100 off unusable output.
		_, err := ExtractFindings("null")
		assert.ErrorIs(t, err, schemas.ErrMalformedModelOutput)
	})

	t.Run("fenced null is malformed", func(t *testing.T) {
		_, err := ExtractFindings("```json\nnull\n```")
		assert.ErrorIs(t, err, schemas.ErrMalformedModelOutput)
	})

	t.Run("null array element is malformed", func(t *testing.T) {
		_, err := ExtractFindings(`[null]`)
		assert.ErrorIs(t, err, schemas.ErrMalformedModelOutput)
	})

	t.Run("null element among valid findings is malformed", func(t *testing.T) {
		_, err := ExtractFindings(`[{"cwe_id":"CWE-89","title":"SQLi","location":"db.py:10"}, null]`)
		assert.ErrorIs(t, err, schemas.ErrMalformedModelOutput)
	})
}

func TestNormalizeAppliesDefaultsAndClassifiers(t *testing.T) {
	raw := `[
		{"cwe_id":"CWE-89","title":"SQL Injection","location":"db.py:10","description":"d","remediation":"r","data_impact":["PII"],"soc2_controls":["CC6.1"]},
		{"title":"Mystery finding"}
	]`

	vulns, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, vulns, 2)

	first := vulns[0]
	assert.Equal(t, schemas.SeverityCritical, first.Severity)
	assert.Equal(t, 24, first.FixTimeHours)
	assert.Equal(t, "SQL Injection", first.Category)
	assert.Equal(t, []string{"PII"}, first.DataImpact)

	second := vulns[1]
	require.NotNil(t, second.CWEID)
	assert.Equal(t, UnknownCWE, *second.CWEID)
	assert.Equal(t, "Mystery finding", second.Title)
	assert.Equal(t, UnknownLocation, second.Location)
	assert.Equal(t, schemas.SeverityMedium, second.Severity)
	assert.Equal(t, 4, second.FixTimeHours)
	assert.Equal(t, "Other Security Issues", second.Category)
	assert.NotNil(t, second.DataImpact)
	assert.NotNil(t, second.SOC2Controls)
}

func TestNormalizeIgnoresModelAssignedSeverity(t *testing.T) {
	// The model is told not to send severity; if it does anyway, the value
	// never survives normalization.
	raw := `[{"cwe_id":"CWE-676","title":"t","location":"l","severity":"Critical","fix_time_hours":99}]`

	vulns, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, vulns, 1)
	assert.Equal(t, schemas.SeverityLow, vulns[0].Severity)
	assert.Equal(t, 1, vulns[0].FixTimeHours)
}

func TestSentinel(t *testing.T) {
	s := Sentinel()
	assert.Equal(t, "Analysis Error", s.Title)
	assert.Equal(t, schemas.SeverityLow, s.Severity)
	assert.Equal(t, 1, s.FixTimeHours)
	assert.Nil(t, s.CWEID)
	assert.NotNil(t, s.DataImpact)
	assert.NotNil(t, s.SOC2Controls)
}

func TestSentinelSerializesNullCWE(t *testing.T) {
	data, err := json.Marshal(Sentinel())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"cwe_id":null`)
}

func TestDeduplicate(t *testing.T) {
	v := func(cwe, loc string) schemas.Vulnerability {
		return schemas.Vulnerability{CWEID: &cwe, Location: loc, Title: cwe + "@" + loc}
	}

	t.Run("case and whitespace insensitive identity", func(t *testing.T) {
		in := []schemas.Vulnerability{
			v("CWE-89", "a.py"),
			v("cwe-89", " A.PY "),
			v("CWE-79", "a.py"),
		}
		out := Deduplicate(in)
		require.Len(t, out, 2)
		// First-seen record wins.
		assert.Equal(t, "CWE-89@a.py", out[0].Title)
		assert.Equal(t, "CWE-79@a.py", out[1].Title)
	})

	t.Run("empty cwe collapses with UNKNOWN", func(t *testing.T) {
		in := []schemas.Vulnerability{
			v("", "main.go"),
			v("UNKNOWN", "main.go"),
		}
		assert.Len(t, Deduplicate(in), 1)
	})

	t.Run("preserves order", func(t *testing.T) {
		in := []schemas.Vulnerability{
			v("CWE-79", "b.js"),
			v("CWE-89", "a.py"),
			v("CWE-79", "b.js"),
		}
		out := Deduplicate(in)
		want := []schemas.Vulnerability{in[0], in[1]}
		if diff := cmp.Diff(want, out); diff != "" {
			t.Errorf("unexpected dedup result (-want +got):\n%s", diff)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		in := []schemas.Vulnerability{
			v("CWE-89", "a.py"),
			v("CWE-89", "A.py"),
			v("CWE-918", "api.go"),
		}
		once := Deduplicate(in)
		twice := Deduplicate(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("Deduplicate is not idempotent (-once +twice):\n%s", diff)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Deduplicate(nil))
	})
}
