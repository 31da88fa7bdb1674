package decode

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abs-tudelft/vhdmmio-sub000/addr"
)

// A Synthesizer compiles a set of masked address patterns into a
// decision tree. Patterns are registered with Add and compiled with
// Synthesize.
type Synthesizer struct {
	width          int
	optimize       bool
	allowOverlap   bool
	allowDuplicate bool

	actions map[string][]Action
}

// Builder can build decoder synthesizers.
type Builder struct {
	width          int
	optimize       bool
	allowOverlap   bool
	allowDuplicate bool
}

// MakeBuilder returns a new Builder with a 32-bit address width.
func MakeBuilder() Builder {
	return Builder{width: 32}
}

// WithWidth sets the address width in bits.
func (b Builder) WithWidth(width int) Builder {
	b.width = width
	return b
}

// WithOptimize makes the synthesizer assume that addresses without a
// registered pattern can never occur, allowing it to omit guards that
// only reject such addresses.
func (b Builder) WithOptimize() Builder {
	b.optimize = true
	return b
}

// WithAllowOverlap permits patterns that overlap each other through
// their don't-care bits; every matching pattern then fires.
func (b Builder) WithAllowOverlap() Builder {
	b.allowOverlap = true
	return b
}

// WithAllowDuplicate permits registering more than one action for the
// exact same pattern.
func (b Builder) WithAllowDuplicate() Builder {
	b.allowDuplicate = true
	return b
}

// Build builds the synthesizer.
func (b Builder) Build() *Synthesizer {
	if b.width <= 0 || b.width > 64 {
		panic(fmt.Sprintf("invalid decoder width %d", b.width))
	}
	return &Synthesizer{
		width:          b.width,
		optimize:       b.optimize,
		allowOverlap:   b.allowOverlap,
		allowDuplicate: b.allowDuplicate,
		actions:        make(map[string][]Action),
	}
}

// A DuplicateError reports two actions registered for the exact same
// pattern.
type DuplicateError struct {
	Pattern string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("decode: duplicate address 0b%s", e.Pattern)
}

// An OverlapError reports two pattern shapes that can match the same
// address, found while discriminating the given bit position.
type OverlapError struct {
	Bit    int
	Prefix string
	Suffix string
	Span   int
}

// Category returns the diagnostic category of this error.
func (e *OverlapError) Category() string {
	return "decode conflict"
}

func (e *OverlapError) Error() string {
	mid := strings.Repeat("#", e.Span-1)
	return fmt.Sprintf(
		"decode: addresses overlap at bit %d: found both %s-%s%s and %s0%s%s and/or %s1%s%s",
		e.Bit,
		e.Prefix, mid, e.Suffix,
		e.Prefix, mid, e.Suffix,
		e.Prefix, mid, e.Suffix)
}

// Add registers an action to fire when the address matches the given
// pattern.
func (s *Synthesizer) Add(pattern addr.MaskedAddress, action Action) error {
	key := pattern.BitString(s.width)
	if _, ok := s.actions[key]; ok && !s.allowDuplicate {
		return &DuplicateError{Pattern: key}
	}
	s.actions[key] = append(s.actions[key], action)
	return nil
}

// Synthesize compiles the registered patterns into a decision tree.
// The tree is nil when no patterns were registered.
func (s *Synthesizer) Synthesize() (Node, error) {
	if len(s.actions) == 0 {
		return nil, nil
	}

	patterns := make([]string, 0, len(s.actions))
	for pattern := range s.actions {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	return s.build(s.width-1, 0, "", "", patterns)
}

// build recursively discriminates the bit span [low, high] of the
// given patterns. prefix and suffix hold the already-matched pattern
// bits on the MSB and LSB sides.
func (s *Synthesizer) build(
	high, low int,
	prefix, suffix string,
	patterns []string,
) (Node, error) {
	// All bits matched; exactly one pattern must remain.
	if high < low {
		pattern := prefix + suffix
		return &Leaf{Pattern: pattern, Actions: s.actions[pattern]}, nil
	}

	// A common prefix run discriminates nothing among the candidates:
	// a don't-care run is dropped outright, a literal run only needs a
	// guard to reject unlisted addresses.
	if common := commonPrefix(patterns); common != "" {
		if n := countUpTo(common, isCare); n > 0 {
			return s.build(
				high-n, low, prefix+common[:n], suffix, stripPrefix(patterns, n))
		}

		n := countUpTo(common, isDontCare)
		child, err := s.build(
			high-n, low, prefix+common[:n], suffix, stripPrefix(patterns, n))
		if err != nil {
			return nil, err
		}
		if s.optimize {
			return child, nil
		}
		return &Guard{
			High:    high,
			Low:     high - n + 1,
			Literal: common[:n],
			Then:    child,
		}, nil
	}

	// Same on the LSB side.
	if common := commonSuffix(patterns); common != "" {
		if n := countUpTo(reverse(common), isCare); n > 0 {
			run := common[len(common)-n:]
			return s.build(
				high, low+n, prefix, run+suffix, stripSuffix(patterns, n))
		}

		n := countUpTo(reverse(common), isDontCare)
		run := common[len(common)-n:]
		child, err := s.build(
			high, low+n, prefix, run+suffix, stripSuffix(patterns, n))
		if err != nil {
			return nil, err
		}
		if s.optimize {
			return child, nil
		}
		return &Guard{
			High:    low + n - 1,
			Low:     low,
			Literal: run,
			Then:    child,
		}, nil
	}

	// Find the longest span at the MSB side over which every candidate
	// is a literal, then branch on the distinct literal values.
	if common := commonPrefix(normalized(patterns)); common != "" {
		if n := countUpTo(common, isDontCare); n > 0 {
			return s.branch(high, low, prefix, suffix, patterns, n)
		}
	}

	// Every remaining discrimination has a candidate that is wildcard
	// where another is literal: true pattern overlap.
	if !s.allowOverlap {
		return nil, &OverlapError{
			Bit:    high,
			Prefix: prefix,
			Suffix: suffix,
			Span:   high - low + 1,
		}
	}

	// Partition into literal-at-high and wildcard-at-high candidates
	// and emit both groups in sequence; both may fire.
	var literals, wildcards []string
	for _, pattern := range patterns {
		if pattern[0] == '-' {
			wildcards = append(wildcards, pattern)
		} else {
			literals = append(literals, pattern)
		}
	}
	first, err := s.build(high, low, prefix, suffix, literals)
	if err != nil {
		return nil, err
	}
	second, err := s.build(high, low, prefix, suffix, wildcards)
	if err != nil {
		return nil, err
	}
	return &Sequence{Parts: []Node{first, second}}, nil
}

// branch emits a Branch over the top span bits of the patterns.
func (s *Synthesizer) branch(
	high, low int,
	prefix, suffix string,
	patterns []string,
	span int,
) (Node, error) {
	options := make(map[string]bool)
	for _, pattern := range patterns {
		options[pattern[:span]] = true
	}
	literals := make([]string, 0, len(options))
	for option := range options {
		literals = append(literals, option)
	}
	sort.Strings(literals)

	node := &Branch{High: high, Low: high - span + 1}
	for index, literal := range literals {
		var group []string
		for _, pattern := range patterns {
			if strings.HasPrefix(pattern, literal) {
				group = append(group, pattern[span:])
			}
		}
		child, err := s.build(high-span, low, prefix+literal, suffix, group)
		if err != nil {
			return nil, err
		}
		node.Arms = append(node.Arms, Arm{
			Literal:   literal,
			Child:     child,
			Absorbing: s.optimize && index == len(literals)-1,
		})
	}
	node.OthersNull = !s.optimize && span > 1
	return node, nil
}

func isCare(c byte) bool {
	return c != '-'
}

func isDontCare(c byte) bool {
	return c == '-'
}

// countUpTo counts the leading characters of s for which cond is false.
func countUpTo(s string, cond func(byte) bool) int {
	for i := 0; i < len(s); i++ {
		if cond(s[i]) {
			return i
		}
	}
	return len(s)
}

func commonPrefix(patterns []string) string {
	common := patterns[0]
	for _, pattern := range patterns[1:] {
		if common == "" {
			break
		}
		for !strings.HasPrefix(pattern, common) {
			common = common[:len(common)-1]
			if common == "" {
				break
			}
		}
	}
	return common
}

func commonSuffix(patterns []string) string {
	common := patterns[0]
	for _, pattern := range patterns[1:] {
		if common == "" {
			break
		}
		for !strings.HasSuffix(pattern, common) {
			common = common[1:]
			if common == "" {
				break
			}
		}
	}
	return common
}

// normalized folds '1' bits onto '0' so only the care/don't-care
// distinction remains.
func normalized(patterns []string) []string {
	result := make([]string, len(patterns))
	for i, pattern := range patterns {
		result[i] = strings.ReplaceAll(pattern, "1", "0")
	}
	return result
}

func stripPrefix(patterns []string, n int) []string {
	result := make([]string, len(patterns))
	for i, pattern := range patterns {
		result[i] = pattern[n:]
	}
	return result
}

func stripSuffix(patterns []string, n int) []string {
	result := make([]string, len(patterns))
	for i, pattern := range patterns {
		result[i] = pattern[:len(pattern)-n]
	}
	return result
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
