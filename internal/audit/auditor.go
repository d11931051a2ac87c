// File: internal/audit/auditor.go
// Description: Sequences one audit request end to end: model query,
// normalization, deduplication, scoring, financial impact, persistence.
// Injected with its collaborators via interfaces, making it decoupled and
// testable.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
	"github.com/xkilldash9x/vulnexplain/internal/impact"
	"github.com/xkilldash9x/vulnexplain/internal/normalize"
)

// systemPrompt instructs the model to return structured evidence only.
// Severity, fix time and category are assigned by this backend, never by the
// model, so identical findings always classify identically.
const systemPrompt = `Act as a Senior Security Engineer. Audit the code/repo for security vulnerabilities.

CRITICAL INSTRUCTIONS:
- You must NOT assign severity levels (Critical/High/Medium/Low).
- You must NOT assign risk levels.
- You must NOT assign estimated fix time.
- You must ONLY extract structured vulnerability evidence directly supported by visible code.
- Do not speculate. Do not duplicate findings. Do not infer hypothetical vulnerabilities.

For each vulnerability found, provide:
1. CWE identifier (e.g., "CWE-89")
2. Vulnerability title
3. File/component location
4. Line number or code location
5. Detailed description of the vulnerability
6. Remediation steps
7. Data impact classification (if applicable): ["PII", "Financial", "Authentication"]
8. Relevant SOC 2 controls

Return ONLY valid JSON array (no markdown, no extra text) with this exact structure:
[
  {
    "cwe_id": "CWE-XXX",
    "title": "Vulnerability name",
    "location": "filename.py:line_number or component_name",
    "description": "Detailed description of vulnerability with evidence from code",
    "remediation": "How to fix this specific issue",
    "data_impact": ["PII", "Financial"],
    "soc2_controls": ["CC6.1", "CC6.6"]
  }
]

If no vulnerabilities found, return [].

IMPORTANT: Do NOT include "severity" or "fix_time_hours" fields. These will be assigned by the backend based on CWE mapping.`

// Auditor runs the audit pipeline. Stateless apart from read-only
// configuration; concurrent Run calls are independent.
type Auditor struct {
	llm    schemas.LLMClient
	store  schemas.ResultStore
	rates  impact.Rates
	opts   schemas.GenerationOptions
	logger *zap.Logger
}

// New creates an Auditor. The store may be nil, which disables persistence.
func New(llm schemas.LLMClient, store schemas.ResultStore, rates impact.Rates, opts schemas.GenerationOptions, logger *zap.Logger) (*Auditor, error) {
	if llm == nil {
		return nil, fmt.Errorf("cannot initialize auditor with nil LLM client")
	}
	if logger == nil {
		return nil, fmt.Errorf("cannot initialize auditor with nil logger")
	}
	return &Auditor{
		llm:    llm,
		store:  store,
		rates:  rates,
		opts:   opts,
		logger: logger.Named("auditor"),
	}, nil
}

// Run audits the given code content and returns a finished result. Provider
// failures propagate; unparseable model output degrades to a single
// diagnostic finding so the caller always receives a scored result.
func (a *Auditor) Run(ctx context.Context, codeContent, contextLabel string) (*schemas.AuditResult, error) {
	req := schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   fmt.Sprintf("Analyze this %s for security vulnerabilities:\n\n%s", contextLabel, codeContent),
		Options:      a.opts,
	}

	raw, err := a.llm.GenerateResponse(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("AI analysis failed: %w", err)
	}

	vulns, err := normalize.Normalize(raw)
	if err != nil {
		if !errors.Is(err, schemas.ErrMalformedModelOutput) {
			return nil, err
		}
		a.logger.Warn("Model response could not be parsed; substituting sentinel finding",
			zap.String("context", contextLabel), zap.Error(err))
		vulns = []schemas.Vulnerability{normalize.Sentinel()}
	}

	vulns = normalize.Deduplicate(vulns)

	result := &schemas.AuditResult{
		ID:              uuid.NewString(),
		Vulnerabilities: vulns,
		SecurityScore:   impact.Score(vulns),
		DetailedImpact:  impact.Calculate(vulns, a.rates),
		Timestamp:       time.Now().UTC(),
	}

	a.persist(ctx, result)

	a.logger.Info("Audit complete",
		zap.String("id", result.ID),
		zap.String("context", contextLabel),
		zap.Int("vulnerabilities", len(vulns)),
		zap.Int("security_score", result.SecurityScore),
		zap.Int("total_impact", result.DetailedImpact.TotalINR),
	)
	return result, nil
}

// persist saves the result if a store is configured. A persistence failure
// never invalidates an already-computed result.
func (a *Auditor) persist(ctx context.Context, result *schemas.AuditResult) {
	if a.store == nil {
		return
	}
	if err := a.store.SaveResult(ctx, result); err != nil {
		a.logger.Warn("Failed to persist audit result", zap.String("id", result.ID), zap.Error(err))
	}
}
