package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/turtacn/molnotation/internal/domain/molecule"
)

// Markup selects how counts and charges are decorated. The counts and their
// order never depend on it.
type Markup int

const (
	// Plain writes counts inline and charges in braces: C2H4O2, (NH4){+}.
	Plain Markup = iota
	// HTML wraps counts in <sub> and charges in <sup>.
	HTML
	// Unicode uses subscript and superscript digits: C₂H₄O₂, (NH₄)⁺.
	Unicode
)

var markupNames = map[Markup]string{
	Plain:   "plain",
	HTML:    "html",
	Unicode: "unicode",
}

func (m Markup) String() string {
	if s, ok := markupNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseMarkup maps "plain", "html" or "unicode" onto a Markup.
func ParseMarkup(s string) (Markup, error) {
	for m, name := range markupNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return Plain, fmt.Errorf("unknown markup %q, want plain, html or unicode", s)
}

var (
	subscripts   = []rune("₀₁₂₃₄₅₆₇₈₉")
	superscripts = []rune("⁰¹²³⁴⁵⁶⁷⁸⁹")
)

// sub decorates a count.
func (m Markup) sub(n int) string {
	s := strconv.Itoa(n)
	switch m {
	case HTML:
		return "<sub>" + s + "</sub>"
	case Unicode:
		var sb strings.Builder
		for _, c := range s {
			sb.WriteRune(subscripts[c-'0'])
		}
		return sb.String()
	}
	return s
}

// sup decorates a non-zero charge.
func (m Markup) sup(charge int) string {
	s := molecule.ChargeString(charge)
	if s == "" {
		return ""
	}
	switch m {
	case HTML:
		return "<sup>" + s + "</sup>"
	case Unicode:
		var sb strings.Builder
		for _, c := range s {
			switch {
			case c == '+':
				sb.WriteRune('⁺')
			case c == '-':
				sb.WriteRune('⁻')
			default:
				sb.WriteRune(superscripts[c-'0'])
			}
		}
		return sb.String()
	}
	return "{" + s + "}"
}

// elementString renders an element multiset with decorated counts.
func (m Markup) elementString(elements []molecule.ElementCount) string {
	var sb strings.Builder
	for _, e := range elements {
		sb.WriteString(e.Symbol)
		if e.Count != 1 {
			sb.WriteString(m.sub(e.Count))
		}
	}
	return sb.String()
}

// group renders a multiset, parenthesized unless it is a single atom of one
// element.
func (m Markup) group(elements []molecule.ElementCount) string {
	s := m.elementString(elements)
	if len(elements) > 1 || (len(elements) == 1 && elements[0].Count != 1) {
		return "(" + s + ")"
	}
	return s
}
