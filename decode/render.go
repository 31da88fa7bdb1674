package decode

import (
	"fmt"
	"strings"
)

// Render renders a synthesized tree as VHDL-style nested conditionals
// over the named address signal. Actions are rendered with fmt.Sprint;
// code generators typically register code blocks as strings.
func Render(node Node, signal string) []string {
	return render(node, signal)
}

// RenderString is Render joined with newlines.
func RenderString(node Node, signal string) string {
	return strings.Join(Render(node, signal), "\n")
}

func render(node Node, signal string) []string {
	switch n := node.(type) {
	case nil:
		return nil
	case *Leaf:
		lines := []string{fmt.Sprintf("-- %s = %s", signal, n.Pattern)}
		for _, action := range n.Actions {
			lines = append(lines, strings.Split(fmt.Sprint(action), "\n")...)
		}
		return lines
	case *Guard:
		var lines []string
		if n.High == n.Low {
			lines = append(lines, fmt.Sprintf(
				"if %s(%d) = '%s' then", signal, n.High, n.Literal))
		} else {
			lines = append(lines, fmt.Sprintf(
				"if %s(%d downto %d) = \"%s\" then", signal, n.High, n.Low, n.Literal))
		}
		lines = append(lines, indent(render(n.Then, signal), "  ")...)
		lines = append(lines, "end if;")
		return lines
	case *Branch:
		if n.High == n.Low {
			return renderBit(n, signal)
		}
		return renderCase(n, signal)
	case *Sequence:
		var lines []string
		for i, part := range n.Parts {
			if i > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, render(part, signal)...)
		}
		return lines
	default:
		panic("unknown node type")
	}
}

// renderBit renders a single-bit branch as an if-else statement,
// flattening a nested if in either arm into an elsif chain.
func renderBit(n *Branch, signal string) []string {
	zero := render(n.Arms[0].Child, signal)
	one := render(n.Arms[1].Child, signal)

	var lines []string

	if len(one) > 0 && strings.HasPrefix(one[0], "if ") {
		lines = append(lines, fmt.Sprintf("if %s(%d) = '0' then", signal, n.High))
		lines = append(lines, indent(zero, "  ")...)
		lines = append(lines, "els"+one[0])
		lines = append(lines, one[1:]...)
		return lines
	}

	if len(zero) > 0 && strings.HasPrefix(zero[0], "if ") {
		lines = append(lines, fmt.Sprintf("if %s(%d) = '1' then", signal, n.High))
		lines = append(lines, indent(one, "  ")...)
		lines = append(lines, "els"+zero[0])
		lines = append(lines, zero[1:]...)
		return lines
	}

	lines = append(lines, fmt.Sprintf("if %s(%d) = '0' then", signal, n.High))
	lines = append(lines, indent(zero, "  ")...)
	lines = append(lines, "else")
	lines = append(lines, indent(one, "  ")...)
	lines = append(lines, "end if;")
	return lines
}

func renderCase(n *Branch, signal string) []string {
	var lines []string
	lines = append(lines, fmt.Sprintf(
		"case %s(%d downto %d) is", signal, n.High, n.Low))
	for _, arm := range n.Arms {
		if arm.Absorbing {
			lines = append(lines, fmt.Sprintf("  when others => -- \"%s\"", arm.Literal))
		} else {
			lines = append(lines, fmt.Sprintf("  when \"%s\" =>", arm.Literal))
		}
		lines = append(lines, indent(render(arm.Child, signal), "    ")...)
	}
	if n.OthersNull {
		lines = append(lines, "  when others =>", "    null;")
	}
	lines = append(lines, "end case;")
	return lines
}

func indent(lines []string, by string) []string {
	result := make([]string, len(lines))
	for i, line := range lines {
		if line == "" {
			result[i] = line
			continue
		}
		result[i] = by + line
	}
	return result
}
