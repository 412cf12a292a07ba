// Package filter describes metadata predicates applied before vector ranking.
package filter

import "fmt"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 16

// Expression is a tag filter with must/should/must_not boolean semantics.
// The zero value matches everything.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Eq is a shortcut for an expression with a single must condition.
func Eq(key, value string) Expression {
	return Expression{must: []Condition{{key: key, match: value}}}
}

// And returns a copy of e with an extra must condition.
func (e Expression) And(key, value string) Expression {
	out := e
	out.must = append(append([]Condition(nil), e.must...), Condition{key: key, match: value})
	return out
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Matches evaluates the expression against a tag set.
// All must conditions hold, at least one should condition holds (if any), no must_not holds.
func (e Expression) Matches(tags map[string]string) bool {
	for _, c := range e.must {
		if !c.holds(tags) {
			return false
		}
	}
	for _, c := range e.mustNot {
		if c.holds(tags) {
			return false
		}
	}
	if len(e.should) == 0 {
		return true
	}
	for _, c := range e.should {
		if c.holds(tags) {
			return true
		}
	}
	return false
}

// Condition is an exact tag match.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

func (c Condition) holds(tags map[string]string) bool {
	v, ok := tags[c.key]
	return ok && v == c.match
}
