package bank

import "fmt"

// Endianness decides how the words of a multi-word register map onto
// its ascending block addresses.
type Endianness int

const (
	// LittleEndian registers keep their least significant word at the
	// lowest address.
	LittleEndian Endianness = iota

	// BigEndian registers keep their most significant word at the
	// lowest address.
	BigEndian
)

func (e Endianness) String() string {
	switch e {
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	}
	panic(fmt.Sprintf("invalid endianness %d", int(e)))
}
