package discount

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/grupomeridio/pricedesk-backend/pkg/db/models"
	"github.com/grupomeridio/pricedesk-backend/pkg/enums"
	pkgerrors "github.com/grupomeridio/pricedesk-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Resolve finds the single discount rule applicable to the client for the
// given product code, or nil when none applies. When several scopes match,
// the most specific one wins; ties inside one scope resolve to the oldest
// rule so resolution stays deterministic (ingestion flags such duplicates).
func Resolve(client models.Client, productCode string, rules []models.DiscountRule) *models.DiscountRule {
	var best *models.DiscountRule
	for i := range rules {
		rule := &rules[i]
		if rule.ProductCode != productCode {
			continue
		}
		if !Matches(*rule, client) {
			continue
		}
		if best == nil || rule.Scope().Specificity() > best.Scope().Specificity() {
			best = rule
		}
	}
	return best
}

// Matches reports whether the rule's scope is satisfied by the client's
// network identity. Inert rules never match.
func Matches(rule models.DiscountRule, client models.Client) bool {
	clientSub := ""
	if client.SubNetwork != nil {
		clientSub = *client.SubNetwork
	}

	switch rule.Scope() {
	case enums.RuleScopeNetworkAndSubNetwork:
		return client.Network == *rule.Network && clientSub == *rule.SubNetwork
	case enums.RuleScopeNetwork:
		return client.Network == *rule.Network
	case enums.RuleScopeSubNetwork:
		return clientSub == *rule.SubNetwork
	default:
		return false
	}
}

// Apply computes the discounted price for the requested price, rounded to
// 2 decimals: price × (1 − percent/100).
func Apply(requestedPrice, percent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(percent.Div(hundred))
	return requestedPrice.Mul(factor).Round(2)
}

// RuleSetIssue describes one data-quality finding in a rule set.
type RuleSetIssue struct {
	RuleID  string `json:"rule_id"`
	Problem string `json:"problem"`
}

// ValidateRuleSet surfaces integrity problems at ingestion time: inert rules
// and pairs of rules that would tie at the same scope for the same product.
// Request-time resolution never guesses past the specificity ordering.
func ValidateRuleSet(rules []models.DiscountRule) []RuleSetIssue {
	var issues []RuleSetIssue
	seen := map[string]string{}

	for _, rule := range rules {
		scope := rule.Scope()
		if scope == enums.RuleScopeInert {
			issues = append(issues, RuleSetIssue{
				RuleID:  rule.ID.String(),
				Problem: "rule binds neither network nor sub-network and will never match",
			})
			continue
		}

		key := fmt.Sprintf("%s|%s|%s|%s", rule.ProductCode, scope, deref(rule.Network), deref(rule.SubNetwork))
		if firstID, dup := seen[key]; dup {
			issues = append(issues, RuleSetIssue{
				RuleID:  rule.ID.String(),
				Problem: fmt.Sprintf("duplicates rule %s at equal scope for product %s", firstID, rule.ProductCode),
			})
			continue
		}
		seen[key] = rule.ID.String()
	}
	return issues
}

// RequireCleanRuleSet converts integrity findings into a policy error.
func RequireCleanRuleSet(rules []models.DiscountRule) error {
	issues := ValidateRuleSet(rules)
	if len(issues) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodePolicy, "discount rule set has integrity issues").
		WithDetails(map[string]any{"issues": issues})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
