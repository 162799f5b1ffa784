// Package filter builds and parses the filter expressions understood by the
// search engines:
//
//	manufacturer_name:=`Acme` && (distributor_names:`Global` || distributor_names:`Other`)
//
// `:=` is exact equality, `:` is membership in an array field, `||` joins
// clauses of one group and `&&` joins groups. Values are backtick-quoted.
package filter

import (
	"fmt"
	"strings"
)

// Operator is a clause comparison operator.
type Operator string

const (
	OpEquals   Operator = ":="
	OpContains Operator = ":"
)

// Clause compares one document field with one value.
type Clause struct {
	Field string
	Op    Operator
	Value string
}

func (c Clause) String() string {
	return c.Field + string(c.Op) + "`" + c.Value + "`"
}

// Matches reports whether any of the field's values satisfies the clause.
// Equality is exact; membership ignores case.
func (c Clause) Matches(values []string) bool {
	for _, v := range values {
		switch c.Op {
		case OpEquals:
			if v == c.Value {
				return true
			}
		case OpContains:
			if strings.EqualFold(v, c.Value) {
				return true
			}
		}
	}
	return false
}

// Group is a disjunction of clauses.
type Group []Clause

func (g Group) String() string {
	parts := make([]string, len(g))
	for i, c := range g {
		parts[i] = c.String()
	}
	s := strings.Join(parts, " || ")
	if len(g) > 1 {
		return "(" + s + ")"
	}
	return s
}

// Expression is a conjunction of groups. The zero value matches everything.
type Expression []Group

func (e Expression) String() string {
	parts := make([]string, 0, len(e))
	for _, g := range e {
		if len(g) == 0 {
			continue
		}
		parts = append(parts, g.String())
	}
	return strings.Join(parts, " && ")
}

// IsEmpty reports whether e has no clauses.
func (e Expression) IsEmpty() bool {
	for _, g := range e {
		if len(g) > 0 {
			return false
		}
	}
	return true
}

// Fields returns the distinct fields referenced by e in order of appearance.
func (e Expression) Fields() []string {
	var out []string
	seen := map[string]bool{}
	for _, g := range e {
		for _, c := range g {
			if !seen[c.Field] {
				seen[c.Field] = true
				out = append(out, c.Field)
			}
		}
	}
	return out
}

// Equals builds an OR group of equality clauses on field.
func Equals(field string, values ...string) Group {
	return anyOf(field, OpEquals, values)
}

// Contains builds an OR group of membership clauses on field.
func Contains(field string, values ...string) Group {
	return anyOf(field, OpContains, values)
}

// ValidateValue reports whether v can be quoted. Backticks cannot be escaped
// in the expression syntax.
func ValidateValue(v string) error {
	if strings.Contains(v, "`") {
		return fmt.Errorf("filter: value %q must not contain a backtick", v)
	}
	return nil
}

// anyOf trims values and drops blank and duplicate ones. Values are kept
// otherwise verbatim; callers check them with ValidateValue first.
func anyOf(field string, op Operator, values []string) Group {
	var g Group
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		g = append(g, Clause{Field: field, Op: op, Value: v})
	}
	return g
}

// And combines groups, skipping empty ones. No non-empty group yields nil.
func And(groups ...Group) Expression {
	var e Expression
	for _, g := range groups {
		if len(g) > 0 {
			e = append(e, g)
		}
	}
	return e
}
