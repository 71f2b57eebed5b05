package enums

// RuleScope describes which commercial grouping a discount rule binds to.
type RuleScope string

const (
	// RuleScopeNetworkAndSubNetwork matches when both groupings equal the rule's values.
	RuleScopeNetworkAndSubNetwork RuleScope = "network_and_sub_network"
	// RuleScopeNetwork matches on the network alone.
	RuleScopeNetwork RuleScope = "network"
	// RuleScopeSubNetwork matches on the sub-network alone.
	RuleScopeSubNetwork RuleScope = "sub_network"
	// RuleScopeInert never matches; kept so malformed rows can be flagged at ingestion.
	RuleScopeInert RuleScope = "inert"
)

// String implements fmt.Stringer.
func (r RuleScope) String() string {
	return string(r)
}

// Specificity orders the non-inert scopes; higher wins when several rules match.
func (r RuleScope) Specificity() int {
	switch r {
	case RuleScopeNetworkAndSubNetwork:
		return 3
	case RuleScopeNetwork:
		return 2
	case RuleScopeSubNetwork:
		return 1
	default:
		return 0
	}
}
