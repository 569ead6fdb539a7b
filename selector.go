package snooze

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// A MatchType is the strategy a Matcher applies to a field.
// The zero value is not a valid type, so a matcher decoded without one
// fails validation.
type MatchType int

const (
	MatchExact MatchType = iota + 1
	MatchContains
	MatchPrefix
	MatchSuffix
	MatchRegex
)

var matchTypeNames = [...]string{
	MatchExact:    "exact",
	MatchContains: "contains",
	MatchPrefix:   "prefix",
	MatchSuffix:   "suffix",
	MatchRegex:    "regex",
}

var matchTypeVerbs = [...]string{
	MatchExact:    "equals",
	MatchContains: "contains",
	MatchPrefix:   "starts with",
	MatchSuffix:   "ends with",
	MatchRegex:    "matches",
}

func (t MatchType) valid() bool {
	return t >= MatchExact && t <= MatchRegex
}

func (t MatchType) String() string {
	if !t.valid() {
		return fmt.Sprintf("MatchType(%d)", int(t))
	}
	return matchTypeNames[t]
}

func (t MatchType) MarshalText() ([]byte, error) {
	if !t.valid() {
		return nil, fmt.Errorf("bad match type %d", int(t))
	}
	return []byte(matchTypeNames[t]), nil
}

func (t *MatchType) UnmarshalText(b []byte) error {
	i := slices.Index(matchTypeNames[:], string(b))
	if i <= 0 {
		return fmt.Errorf("bad match type %q", b)
	}
	*t = MatchType(i)
	return nil
}

// An Operator combines the selectors of a schedule.
type Operator int

const (
	And Operator = iota
	Or
)

func (op Operator) String() string {
	if op == Or {
		return "or"
	}
	return "and"
}

func (op Operator) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

func (op *Operator) UnmarshalText(b []byte) (err error) {
	*op, err = ParseOperator(string(b))
	return
}

// ParseOperator parses "and" or "or". The empty string means And.
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "", "and":
		return And, nil
	case "or":
		return Or, nil
	}
	return And, fmt.Errorf("operator must be 'and' or 'or', got %q", s)
}

// A Matcher tests a single string field.
// An empty Pattern leaves the field unconstrained.
type Matcher struct {
	Pattern string    `json:"pattern" yaml:"pattern"`
	Type    MatchType `json:"type" yaml:"type"`
}

// A Selector is a conjunctive rule over instance fields.
// Nil matchers and an empty Provider leave their fields unconstrained.
type Selector struct {
	Name     *Matcher            `json:"name,omitempty" yaml:"name,omitempty"`
	Provider string              `json:"provider,omitempty" yaml:"provider,omitempty"`
	Region   *Matcher            `json:"region,omitempty" yaml:"region,omitempty"`
	Engine   *Matcher            `json:"engine,omitempty" yaml:"engine,omitempty"`
	Tags     map[string]*Matcher `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// EmptySelector returns the default shape offered to an editor.
func EmptySelector() Selector {
	return Selector{Name: &Matcher{Type: MatchContains}}
}

type compileFunc func(pattern string) (*regexp.Regexp, error)

func compileFold(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// MatchInstance reports whether an instance is targeted by selectors
// combined with op. An empty selector list matches nothing.
func MatchInstance(inst Instance, selectors []Selector, op Operator) bool {
	return matchInstance(inst, selectors, op, compileFold)
}

func matchInstance(
	inst Instance, selectors []Selector, op Operator, re compileFunc,
) bool {
	if len(selectors) == 0 {
		return false
	}
	for _, sel := range selectors {
		ok := matchSelector(inst, sel, re)
		if op == Or && ok {
			return true
		}
		if op == And && !ok {
			return false
		}
	}
	return op == And
}

// MatchSelector reports whether every populated field of sel matches.
func MatchSelector(inst Instance, sel Selector) bool {
	return matchSelector(inst, sel, compileFold)
}

func matchSelector(inst Instance, sel Selector, re compileFunc) bool {
	if !matchField(inst.Name, sel.Name, re) {
		return false
	}
	if sel.Provider != "" && sel.Provider != ProviderClass(inst.Provider) {
		return false
	}
	if !matchField(inst.Region, sel.Region, re) {
		return false
	}
	if !matchField(inst.Engine, sel.Engine, re) {
		return false
	}
	for key, m := range sel.Tags {
		if m == nil || m.Pattern == "" {
			continue
		}
		v, ok := inst.Tags[key]
		if !ok || !matchField(v, m, re) {
			return false
		}
	}
	return true
}

// MatchField applies m to value.
// Exact comparison is case-sensitive; every other type ignores case.
// A regex that does not compile never matches.
func MatchField(value string, m *Matcher) bool {
	return matchField(value, m, compileFold)
}

func matchField(value string, m *Matcher, re compileFunc) bool {
	if m == nil || m.Pattern == "" {
		return true
	}
	switch m.Type {
	case MatchExact:
		return value == m.Pattern
	case MatchContains:
		return strings.Contains(
			strings.ToLower(value), strings.ToLower(m.Pattern))
	case MatchPrefix:
		return strings.HasPrefix(
			strings.ToLower(value), strings.ToLower(m.Pattern))
	case MatchSuffix:
		return strings.HasSuffix(
			strings.ToLower(value), strings.ToLower(m.Pattern))
	case MatchRegex:
		r, err := re(m.Pattern)
		if err != nil {
			return false
		}
		return r.MatchString(value)
	}
	return false
}

// ValidateRegex returns "" if pattern compiles, or the compiler's message.
func ValidateRegex(pattern string) string {
	if pattern == "" {
		return ""
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return err.Error()
	}
	return ""
}

// ValidateSelectors reports the first matcher with a missing or unknown
// type, or with a regex that does not compile.
func ValidateSelectors(selectors []Selector) error {
	for i, sel := range selectors {
		for _, f := range sel.fields() {
			if !f.m.Type.valid() {
				return fmt.Errorf("selector %d %s: bad match type %v",
					i+1, f.name, f.m.Type)
			}
			if f.m.Type != MatchRegex {
				continue
			}
			if msg := ValidateRegex(f.m.Pattern); msg != "" {
				return fmt.Errorf("selector %d %s: %s", i+1, f.name, msg)
			}
		}
	}
	return nil
}

type field struct {
	name string
	m    *Matcher
}

// fields lists the populated matchers of sel in display order.
// Tags are sorted by key.
func (sel Selector) fields() (fs []field) {
	for _, f := range []field{
		{"name", sel.Name},
		{"region", sel.Region},
		{"engine", sel.Engine},
	} {
		if f.m != nil && f.m.Pattern != "" {
			fs = append(fs, f)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(sel.Tags)) {
		if m := sel.Tags[k]; m != nil && m.Pattern != "" {
			fs = append(fs, field{fmt.Sprintf("tag %q", k), m})
		}
	}
	return fs
}

// DescribeSelectorRule renders sel as text, e.g.
//
//	name starts with "prod" AND provider is AWS
func DescribeSelectorRule(sel Selector) string {
	var parts []string
	clause := func(f field) string {
		verb := f.m.Type.String()
		if f.m.Type.valid() {
			verb = matchTypeVerbs[f.m.Type]
		}
		return fmt.Sprintf("%s %s %q", f.name, verb, f.m.Pattern)
	}
	fs := sel.fields()
	for len(fs) > 0 && fs[0].name == "name" {
		parts = append(parts, clause(fs[0]))
		fs = fs[1:]
	}
	if sel.Provider != "" {
		parts = append(parts, "provider is "+strings.ToUpper(sel.Provider))
	}
	for _, f := range fs {
		parts = append(parts, clause(f))
	}
	if len(parts) == 0 {
		return "No conditions"
	}
	return strings.Join(parts, " AND ")
}

// A Target is a selector set whose regular expressions have been
// validated and compiled once. Its Match agrees with MatchInstance.
type Target struct {
	selectors []Selector
	op        Operator
	compiled  map[string]*regexp.Regexp
}

// NewTarget validates selectors and compiles their regular expressions.
func NewTarget(selectors []Selector, op Operator) (*Target, error) {
	if err := ValidateSelectors(selectors); err != nil {
		return nil, err
	}
	t := &Target{
		selectors: make([]Selector, len(selectors)),
		op:        op,
		compiled:  make(map[string]*regexp.Regexp),
	}
	for i, sel := range selectors {
		t.selectors[i] = sel.clone()
	}
	for _, sel := range t.selectors {
		for _, f := range sel.fields() {
			if f.m.Type != MatchRegex {
				continue
			}
			if _, ok := t.compiled[f.m.Pattern]; ok {
				continue
			}
			r, err := compileFold(f.m.Pattern)
			if err != nil {
				return nil, err
			}
			t.compiled[f.m.Pattern] = r
		}
	}
	return t, nil
}

// Match reports whether inst is targeted.
func (t *Target) Match(inst Instance) bool {
	return matchInstance(inst, t.selectors, t.op, t.lookup)
}

// Operator returns the operator t combines its selectors with.
func (t *Target) Operator() Operator { return t.op }

func (t *Target) lookup(pattern string) (*regexp.Regexp, error) {
	if r, ok := t.compiled[pattern]; ok {
		return r, nil
	}
	return compileFold(pattern)
}

// clone returns a copy of sel sharing no matchers with it.
func (sel Selector) clone() Selector {
	sel.Name = sel.Name.clone()
	sel.Region = sel.Region.clone()
	sel.Engine = sel.Engine.clone()
	if sel.Tags != nil {
		tags := make(map[string]*Matcher, len(sel.Tags))
		for k, m := range sel.Tags {
			tags[k] = m.clone()
		}
		sel.Tags = tags
	}
	return sel
}

func (m *Matcher) clone() *Matcher {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}
