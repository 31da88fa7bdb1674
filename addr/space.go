package addr

import "fmt"

// Direction selects one of the two bus channels.
type Direction int

// The two bus directions.
const (
	Read Direction = iota
	Write
)

func (d Direction) String() string {
	if d == Read {
		return "read"
	}
	return "write"
}

// A Claim is one ownership record within a Space.
type Claim struct {
	Pattern MaskedAddress
	Owner   string

	// shared claims may be repeated with an identical pattern; used for
	// internal bookkeeping entries, never for normal field claims.
	shared bool
}

// A Space owns all address claims for one bus direction and checks each
// newly claimed pattern against the existing ones.
type Space struct {
	direction Direction
	width     int
	claims    []Claim
	frozen    bool
}

// NewSpace creates an address space for one bus direction with the
// given address width in bits.
func NewSpace(direction Direction, width int) *Space {
	if width <= 0 || width > 64 {
		panic(fmt.Sprintf("invalid address width %d", width))
	}
	return &Space{direction: direction, width: width}
}

// Direction returns the bus direction this space decodes for.
func (s *Space) Direction() Direction {
	return s.direction
}

// Width returns the address width in bits.
func (s *Space) Width() int {
	return s.width
}

// Claims returns the accepted claims in claim order.
func (s *Space) Claims() []Claim {
	return s.claims
}

// Freeze shields the space against further claims.
func (s *Space) Freeze() {
	s.frozen = true
}

// Claim records that owner decodes the given pattern. It fails with a
// ConflictError when the pattern can match an address that an earlier
// claim also matches.
func (s *Space) Claim(pattern MaskedAddress, owner string) error {
	return s.claim(pattern, owner, false)
}

// ClaimShared is like Claim, but tolerates exact duplicates of earlier
// shared claims. Partial overlap is still a conflict.
func (s *Space) ClaimShared(pattern MaskedAddress, owner string) error {
	return s.claim(pattern, owner, true)
}

func (s *Space) claim(pattern MaskedAddress, owner string, shared bool) error {
	if s.frozen {
		panic("claim on a frozen address space")
	}

	for _, other := range s.claims {
		if shared && other.shared && other.Pattern == pattern {
			return nil
		}
		if common, ok := pattern.Common(other.Pattern); ok {
			return &ConflictError{
				Direction: s.direction,
				Width:     s.width,
				OwnerA:    other.Owner,
				OwnerB:    owner,
				PatternA:  other.Pattern,
				PatternB:  pattern,
				Address:   common,
			}
		}
	}

	s.claims = append(s.claims, Claim{Pattern: pattern, Owner: owner, shared: shared})
	return nil
}

// A ConflictError reports two claims whose patterns can both match the
// same address.
type ConflictError struct {
	Direction Direction
	Width     int
	OwnerA    string
	OwnerB    string
	PatternA  MaskedAddress
	PatternB  MaskedAddress
	Address   uint64
}

// Category returns the diagnostic category of this error.
func (e *ConflictError) Category() string {
	return "decode conflict"
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"addr: address conflict between %s (%s = %s) and %s (%s = %s) at 0x%X in %s mode",
		e.OwnerA, e.PatternA.HexPair(e.Width), e.PatternA.BitString(e.Width),
		e.OwnerB, e.PatternB.HexPair(e.Width), e.PatternB.BitString(e.Width),
		e.Address, e.Direction)
}
