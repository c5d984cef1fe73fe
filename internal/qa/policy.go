package qa

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/data-qa/internal/model"
)

// Policy post-processes a final score, letting deployments plug in
// custom scoring rules. Returning a nil result keeps the scorer's
// own verdict.
type Policy interface {
	Override(ctx context.Context, res *model.Resource, result *model.ScoreResult) (*model.ScoreResult, error)
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(ctx context.Context, res *model.Resource, result *model.ScoreResult) (*model.ScoreResult, error)

// Override calls f.
func (f PolicyFunc) Override(ctx context.Context, res *model.Resource, result *model.ScoreResult) (*model.ScoreResult, error) {
	return f(ctx, res, result)
}

// PolicyRule overrides the score for resources matching a format or a
// URL substring. Empty match fields match everything.
type PolicyRule struct {
	Format      string `yaml:"format,omitempty"`
	URLContains string `yaml:"url_contains,omitempty"`
	Score       int    `yaml:"score"`
	Reason      string `yaml:"reason"`
}

func (r *PolicyRule) matches(res *model.Resource, result *model.ScoreResult) bool {
	if r.Format != "" && !strings.EqualFold(r.Format, result.Format) {
		return false
	}
	if r.URLContains != "" && !strings.Contains(res.URL, r.URLContains) {
		return false
	}
	return r.Format != "" || r.URLContains != ""
}

// RulePolicy applies the first matching rule from a YAML policy file.
type RulePolicy struct {
	Rules []PolicyRule `yaml:"rules"`
}

// LoadRulePolicy parses a YAML policy document from disk. Rules with
// a score outside [0,5] are a configuration error.
func LoadRulePolicy(path string) (*RulePolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "qa: read policy file %s", path)
	}
	var policy RulePolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, eris.Wrapf(err, "qa: parse policy file %s", path)
	}
	for i, rule := range policy.Rules {
		if rule.Score < 0 || rule.Score > 5 {
			return nil, eris.Errorf("qa: policy rule %d has score %d, must be 0 to 5", i, rule.Score)
		}
	}
	return &policy, nil
}

// Override applies the first matching rule, if any.
func (p *RulePolicy) Override(ctx context.Context, res *model.Resource, result *model.ScoreResult) (*model.ScoreResult, error) {
	for _, rule := range p.Rules {
		if !rule.matches(res, result) {
			continue
		}
		zap.L().Info("policy rule overrides score",
			zap.String("resource_id", res.ID),
			zap.Int("score", rule.Score),
		)
		overridden := *result
		overridden.OpennessScore = rule.Score
		if rule.Reason != "" {
			overridden.OpennessScoreReason = rule.Reason
		}
		return &overridden, nil
	}
	return nil, nil
}
