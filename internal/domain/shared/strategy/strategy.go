// Package strategy holds the base contract for pluggable domain
// strategies, currently receipt allocation and payment scoring.
package strategy

// StrategyType classifies what concern a strategy implements
type StrategyType string

const (
	StrategyTypeAllocation StrategyType = "allocation"
	StrategyTypeScoring    StrategyType = "scoring"
)

func (t StrategyType) String() string { return string(t) }

// IsValid reports whether t is one of the known strategy types
func (t StrategyType) IsValid() bool {
	return t == StrategyTypeAllocation || t == StrategyTypeScoring
}

// AllStrategyTypes lists every known strategy type
func AllStrategyTypes() []StrategyType {
	return []StrategyType{StrategyTypeAllocation, StrategyTypeScoring}
}

// Strategy is the common surface of all strategies. Concrete strategy
// interfaces embed it and add their domain-specific operations.
type Strategy interface {
	Name() string
	Type() StrategyType
	Description() string
}

// BaseStrategy implements the Strategy identity methods so concrete
// strategies only carry their behavior.
type BaseStrategy struct {
	name         string
	strategyType StrategyType
	description  string
}

var _ Strategy = BaseStrategy{}

// NewBaseStrategy builds the identity portion of a strategy
func NewBaseStrategy(name string, strategyType StrategyType, description string) BaseStrategy {
	return BaseStrategy{name: name, strategyType: strategyType, description: description}
}

// Name returns the strategy's unique name
func (s BaseStrategy) Name() string { return s.name }

// Type returns the strategy's classification
func (s BaseStrategy) Type() StrategyType { return s.strategyType }

// Description returns a human-readable summary
func (s BaseStrategy) Description() string { return s.description }
