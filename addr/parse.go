package addr

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses the textual address specification syntax into a
// MaskedAddress. ignoreLSBs is the number of LSBs ignored by default
// (the sub-word bits for word-addressed buses), width the bit width of
// the address signal.
//
// The grammar accepts decimal numbers, hexadecimal numbers with "-"
// don't-care digits and "[01-]"-bracketed bit sub-patterns, binary
// numbers with "-" don't-care bits, and "_" digit separators. A suffix
// of the form "/size" matches a naturally aligned block of 2^size
// addresses, "|ignoremask" clears the given mask bits from the match,
// and "&caremask" replaces the care mask entirely.
func Parse(spec string, ignoreLSBs, width int) (MaskedAddress, error) {
	fullMask := widthMask(width)
	defaultMask := fullMask &^ (uint64(1)<<ignoreLSBs - 1)

	value := spec
	mask := defaultMask
	switch {
	case strings.Contains(spec, "/"):
		parts := strings.SplitN(spec, "/", 2)
		value = parts[0]
		size, err := strconv.Atoi(parts[1])
		if err != nil || size < 0 {
			return MaskedAddress{}, fmt.Errorf(
				"addr: invalid block size in %q", spec)
		}
		if size >= 64 {
			mask = 0
		} else {
			mask = ^(uint64(1)<<size - 1)
		}
	case strings.Contains(spec, "|"):
		parts := strings.SplitN(spec, "|", 2)
		value = parts[0]
		ignore, err := strconv.ParseUint(parts[1], 0, 64)
		if err != nil {
			return MaskedAddress{}, fmt.Errorf(
				"addr: invalid ignore mask in %q", spec)
		}
		mask = ^ignore
	case strings.Contains(spec, "&"):
		parts := strings.SplitN(spec, "&", 2)
		value = parts[0]
		care, err := strconv.ParseUint(parts[1], 0, 64)
		if err != nil {
			return MaskedAddress{}, fmt.Errorf(
				"addr: invalid care mask in %q", spec)
		}
		mask = care
	}

	parsedValue, parsedMask, err := parseValue(value, fullMask)
	if err != nil {
		return MaskedAddress{}, err
	}
	mask &= parsedMask

	if parsedValue&^fullMask != 0 {
		return MaskedAddress{}, fmt.Errorf(
			"addr: address 0x%X is out of range for %d bits", parsedValue, width)
	}

	mask &= fullMask
	return New(parsedValue, mask), nil
}

// parseValue parses the number part of an address specification,
// returning the value and the care mask implied by any don't-care
// digits in it.
func parseValue(value string, fullMask uint64) (uint64, uint64, error) {
	switch {
	case strings.HasPrefix(value, "0x"), strings.HasPrefix(value, "0X"):
		return parseHex(value[2:], fullMask)
	case strings.HasPrefix(value, "0b"), strings.HasPrefix(value, "0B"):
		return parseBin(value[2:], fullMask)
	}
	parsed, err := strconv.ParseUint(strings.ReplaceAll(value, "_", ""), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("addr: invalid address %q", value)
	}
	return parsed, fullMask, nil
}

func parseHex(value string, fullMask uint64) (uint64, uint64, error) {
	var parsedValue, parsedMask uint64
	parsedMask = fullMask
	for len(value) > 0 {
		switch {
		case value[0] == '_':
			value = value[1:]
		case value[0] == '-':
			parsedValue <<= 4
			parsedMask <<= 4
			value = value[1:]
		case value[0] == '[':
			if len(value) < 6 || value[5] != ']' {
				return 0, 0, fmt.Errorf(
					"addr: bracketed sub-pattern must hold exactly 4 bits")
			}
			for idx := 1; idx <= 4; idx++ {
				parsedValue <<= 1
				parsedMask <<= 1
				switch value[idx] {
				case '1':
					parsedValue |= 1
					parsedMask |= 1
				case '0':
					parsedMask |= 1
				case '-':
				default:
					return 0, 0, fmt.Errorf(
						"addr: invalid bit %q in sub-pattern", value[idx])
				}
			}
			value = value[6:]
		default:
			digit, err := strconv.ParseUint(value[:1], 16, 8)
			if err != nil {
				return 0, 0, fmt.Errorf(
					"addr: invalid hex digit %q", value[0])
			}
			parsedValue <<= 4
			parsedMask <<= 4
			parsedValue |= digit
			parsedMask |= 15
			value = value[1:]
		}
	}
	return parsedValue, parsedMask, nil
}

func parseBin(value string, fullMask uint64) (uint64, uint64, error) {
	var parsedValue, parsedMask uint64
	parsedMask = fullMask
	for len(value) > 0 {
		if value[0] == '_' {
			value = value[1:]
			continue
		}
		parsedValue <<= 1
		parsedMask <<= 1
		switch value[0] {
		case '1':
			parsedValue |= 1
			parsedMask |= 1
		case '0':
			parsedMask |= 1
		case '-':
		default:
			return 0, 0, fmt.Errorf("addr: invalid binary digit %q", value[0])
		}
		value = value[1:]
	}
	return parsedValue, parsedMask, nil
}
