// Package raindrop implements a deterministic code-healing provider. It
// repairs the defect classes generated code actually exhibits here: a
// missing package clause, standard-library references without an import,
// and trailing whitespace. Every heal is recorded in a bounded history.
package raindrop

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/providers"
)

// maxHealPasses bounds the detect-and-fix loop. The built-in fixes
// converge in one pass; the bound guards future fixes that might not.
const maxHealPasses = 3

// Issue is a defect the healer can detect.
type Issue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// Action records one healing session.
type Action struct {
	ID             string    `json:"id"`
	Language       string    `json:"language"`
	OriginalLength int       `json:"original_length"`
	HealedLength   int       `json:"healed_length"`
	IssuesFixed    []string  `json:"issues_fixed"`
	Attempts       int       `json:"attempts"`
	HealedAt       time.Time `json:"healed_at"`
}

// Stats aggregates the healing history.
type Stats struct {
	TotalSessions    int     `json:"total_sessions"`
	TotalIssuesFixed int     `json:"total_issues_fixed"`
	AveragePerHeal   float64 `json:"average_issues_per_heal"`
}

// Provider heals code and remembers what it changed.
type Provider struct {
	mu      sync.Mutex
	cfg     providers.RaindropConfig
	logger  *zap.Logger
	history []Action
	now     func() time.Time
	newID   func() string
}

// NewProvider builds a raindrop provider. A zero HistorySize keeps the
// whole history.
func NewProvider(cfg providers.RaindropConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "raindrop")),
		now:    time.Now,
		newID:  func() string { return uuid.NewString()[:8] },
	}
}

// WithClock overrides the history clock. Test hook.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	if now != nil {
		p.now = now
	}
	return p
}

// WithIDSource overrides heal id generation. Test hook.
func (p *Provider) WithIDSource(f func() string) *Provider {
	if f != nil {
		p.newID = f
	}
	return p
}

func (p *Provider) Name() string { return "raindrop" }

// Heal repairs the code in detect-and-fix passes until it is clean or
// the pass budget runs out. Clean input comes back unchanged.
func (p *Provider) Heal(ctx context.Context, code, language string) (*providers.HealResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	healed := code
	var fixed []string
	attempts := 0
	for attempts < maxHealPasses {
		attempts++
		issues := detect(healed, language)
		if len(issues) == 0 {
			break
		}
		for _, issue := range issues {
			healed = fix(healed, issue)
			fixed = append(fixed, issue.Description)
		}
	}

	action := p.record(code, healed, language, fixed, attempts)
	if len(fixed) > 0 {
		p.logger.Debug("code healed", append(providers.ContextFields(ctx),
			zap.String("heal_id", action.ID),
			zap.Int("issues_fixed", len(fixed)),
			zap.Int("attempts", attempts))...)
	}
	return &providers.HealResult{Code: healed, IssuesFixed: len(fixed), Issues: fixed}, nil
}

// Validate detects issues without repairing them.
func (p *Provider) Validate(code, language string) []Issue {
	return detect(code, language)
}

// History returns a copy of the recorded healing sessions, oldest first.
func (p *Provider) History() []Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Action, len(p.history))
	copy(out, p.history)
	return out
}

// Stats aggregates the history into session and issue counts.
func (p *Provider) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := Stats{TotalSessions: len(p.history)}
	for _, action := range p.history {
		stats.TotalIssuesFixed += len(action.IssuesFixed)
	}
	if stats.TotalSessions > 0 {
		stats.AveragePerHeal = float64(stats.TotalIssuesFixed) / float64(stats.TotalSessions)
	}
	return stats
}

func (p *Provider) record(original, healed, language string, fixed []string, attempts int) Action {
	action := Action{
		ID:             "heal_" + p.newID(),
		Language:       language,
		OriginalLength: len(original),
		HealedLength:   len(healed),
		IssuesFixed:    append([]string(nil), fixed...),
		Attempts:       attempts,
		HealedAt:       p.now(),
	}
	p.mu.Lock()
	p.history = append(p.history, action)
	if p.cfg.HistorySize > 0 {
		for len(p.history) > p.cfg.HistorySize {
			p.history = p.history[1:]
		}
	}
	p.mu.Unlock()
	return action
}

const (
	issuePackageClause      = "missing_package_clause"
	issueMissingImport      = "missing_import"
	issueTrailingWhitespace = "trailing_whitespace"
)

// stdlibPackages are the selector heads the import check knows about,
// sorted so inserted import blocks come out ordered.
var stdlibPackages = []string{"errors", "fmt", "os", "strings", "time"}

var identRef = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\.`)

func detect(code, language string) []Issue {
	var issues []Issue
	switch language {
	case "go", "golang", "":
		if !strings.Contains(code, "package ") {
			issues = append(issues, Issue{
				Type:        issuePackageClause,
				Severity:    "high",
				Description: "missing package clause",
			})
		}
		if missing := missingImports(code); len(missing) > 0 {
			issues = append(issues, Issue{
				Type:        issueMissingImport,
				Severity:    "medium",
				Description: "missing import for " + strings.Join(missing, ", "),
			})
		}
	}
	if hasTrailingWhitespace(code) {
		issues = append(issues, Issue{
			Type:        issueTrailingWhitespace,
			Severity:    "low",
			Description: "trailing whitespace",
		})
	}
	return issues
}

func fix(code string, issue Issue) string {
	switch issue.Type {
	case issuePackageClause:
		return "package main\n\n" + code
	case issueMissingImport:
		return insertImports(code, missingImports(code))
	case issueTrailingWhitespace:
		return stripTrailingWhitespace(code)
	}
	return code
}

// missingImports reports stdlib packages the code references when no
// import statement exists at all. Codes that already import anything
// are left alone.
func missingImports(code string) []string {
	if strings.Contains(code, "import") {
		return nil
	}
	refs := make(map[string]bool)
	for _, m := range identRef.FindAllStringSubmatch(code, -1) {
		refs[m[1]] = true
	}
	var missing []string
	for _, pkg := range stdlibPackages {
		if refs[pkg] {
			missing = append(missing, pkg)
		}
	}
	return missing
}

// insertImports places an import declaration after the package clause.
func insertImports(code string, pkgs []string) string {
	if len(pkgs) == 0 {
		return code
	}
	var decl []string
	if len(pkgs) == 1 {
		decl = []string{fmt.Sprintf("import %q", pkgs[0])}
	} else {
		decl = append(decl, "import (")
		for _, pkg := range pkgs {
			decl = append(decl, fmt.Sprintf("\t%q", pkg))
		}
		decl = append(decl, ")")
	}

	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "package ") {
			out := make([]string, 0, len(lines)+len(decl)+1)
			out = append(out, lines[:i+1]...)
			out = append(out, "")
			out = append(out, decl...)
			out = append(out, lines[i+1:]...)
			return strings.Join(out, "\n")
		}
	}
	return strings.Join(decl, "\n") + "\n\n" + code
}

func hasTrailingWhitespace(code string) bool {
	for _, line := range strings.Split(code, "\n") {
		if line != strings.TrimRight(line, " \t") {
			return true
		}
	}
	return false
}

func stripTrailingWhitespace(code string) string {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
