package decode

// Match walks a synthesized tree for one concrete address over the
// given width and returns the actions that fire, in emission order.
// It mirrors what the generated hardware decoder does and exists for
// verification against the original pattern list.
func Match(node Node, address uint64, width int) []Action {
	var actions []Action
	match(node, address, width, &actions)
	return actions
}

func match(node Node, address uint64, width int, actions *[]Action) {
	switch n := node.(type) {
	case nil:
	case *Leaf:
		*actions = append(*actions, n.Actions...)
	case *Guard:
		if bitsOf(address, n.High, n.Low) == n.Literal {
			match(n.Then, address, width, actions)
		}
	case *Branch:
		value := bitsOf(address, n.High, n.Low)
		for _, arm := range n.Arms {
			if arm.Literal == value || arm.Absorbing {
				match(arm.Child, address, width, actions)
				return
			}
		}
	case *Sequence:
		for _, part := range n.Parts {
			match(part, address, width, actions)
		}
	default:
		panic("unknown node type")
	}
}

// bitsOf extracts the bit span [low, high] of an address as a binary
// string, MSB first.
func bitsOf(address uint64, high, low int) string {
	b := make([]byte, high-low+1)
	for i := range b {
		bit := high - i
		if address&(uint64(1)<<bit) != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}
