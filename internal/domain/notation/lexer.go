package notation

import (
	"regexp"
	"strconv"

	"github.com/turtacn/molnotation/internal/domain/molecule"
)

// ─────────────────────────────────────────────────────────────────────────────
// Lexical helpers
// ─────────────────────────────────────────────────────────────────────────────

var (
	chargeSigned   = regexp.MustCompile(`^([+-])([0-9]+)$`)
	chargeRepeated = regexp.MustCompile(`^(\++|-+)$`)
)

// extractBetween returns the text between the opener at text[start] and its
// matching closer, and the index of the closer. openCount is the number of
// openers left unclosed at the end of text; it is zero on success.
func extractBetween(text string, open, close byte, start int) (inner string, end int, openCount int) {
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start+1 : i], i, 0
			}
		}
	}
	return text[start+1:], len(text), depth
}

// parseCharge accepts "+n", "-n" or a run of one repeated sign.
func parseCharge(s string) (int, bool) {
	if m := chargeSigned.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return 0, false
		}
		if m[1] == "-" {
			n = -n
		}
		return n, true
	}
	if chargeRepeated.MatchString(s) {
		if s[0] == '-' {
			return -len(s), true
		}
		return len(s), true
	}
	return 0, false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

// extractInteger reads a run of decimal digits at pos. ok is false when there
// is none.
func extractInteger(text string, pos int) (n int, end int, ok bool) {
	end = pos
	for end < len(text) && isDigit(text[end]) {
		end++
	}
	if end == pos {
		return 0, pos, false
	}
	n, err := strconv.Atoi(text[pos:end])
	if err != nil {
		return 0, pos, false
	}
	return n, end, true
}

// ringToken is one ring-closure label read from the text.
type ringToken struct {
	digit  int
	offset int
	width  int
}

// lexRingDigits reads consecutive ring labels at pos: single digits or '%'
// followed by exactly two digits.
func lexRingDigits(text string, pos int) ([]ringToken, int, *lexError) {
	var out []ringToken
	seen := make(map[int]bool)
	for pos < len(text) {
		var tok ringToken
		switch {
		case isDigit(text[pos]):
			tok = ringToken{digit: int(text[pos] - '0'), offset: pos, width: 1}
		case text[pos] == '%':
			if pos+2 >= len(text) || !isDigit(text[pos+1]) || !isDigit(text[pos+2]) {
				end := pos + 3
				if end > len(text) {
					end = len(text)
				}
				return nil, pos, &lexError{pos, text[pos:end], "malformed ring label: '%' must be followed by two digits"}
			}
			tok = ringToken{digit: int(text[pos+1]-'0')*10 + int(text[pos+2]-'0'), offset: pos, width: 3}
		default:
			return out, pos, nil
		}
		if seen[tok.digit] {
			return nil, pos, &lexError{pos, text[pos : pos+tok.width], "duplicate ring label " + strconv.Itoa(tok.digit)}
		}
		seen[tok.digit] = true
		out = append(out, tok)
		pos += tok.width
	}
	return out, pos, nil
}

// lexError is a position-relative lexical failure; the parser turns it into
// a ParseError.
type lexError struct {
	offset  int
	span    string
	message string
}

// extractElement reads the longest element symbol at pos from the full
// periodic table. Lowercase aromatic spellings are accepted when aromatic is
// true. It returns the element symbol, whether the spelling was aromatic, and
// the number of bytes consumed (zero when nothing matched).
func extractElement(text string, pos int, aromatic bool) (string, bool, int) {
	if pos >= len(text) {
		return "", false, 0
	}
	c := text[pos]
	if isLower(c) {
		if !aromatic {
			return "", false, 0
		}
		if sym, ok := molecule.AromaticElement(string(c)); ok {
			return sym, true, 1
		}
		return "", false, 0
	}
	if !isUpper(c) {
		return "", false, 0
	}
	if pos+1 < len(text) && isLower(text[pos+1]) {
		if two := text[pos : pos+2]; molecule.IsElementSymbol(two) {
			return two, false, 2
		}
	}
	if one := text[pos : pos+1]; molecule.IsElementSymbol(one) {
		return one, false, 1
	}
	return "", false, 0
}

// extractOrganic reads an organic-subset atom at pos. A two-letter symbol
// outside the subset whose second letter is an aromatic spelling is split, so
// "Sc" reads as S followed by an aromatic c. The returned symbol is the full
// match when it is not organic, for error reporting.
func extractOrganic(text string, pos int, aromatic bool) (symbol string, isAromatic bool, n int, organic bool) {
	sym, arom, n := extractElement(text, pos, aromatic)
	if n == 0 {
		return "", false, 0, false
	}
	if molecule.IsOrganic(sym) {
		return sym, arom, n, true
	}
	if n == 2 && aromatic {
		one := text[pos : pos+1]
		if _, ok := molecule.AromaticElement(text[pos+1 : pos+2]); ok && molecule.IsOrganic(one) {
			return one, false, 1, true
		}
	}
	return sym, arom, n, false
}

// bracketAtom is the content of a "[...]" group.
type bracketAtom struct {
	mass     int
	elements []molecule.ElementCount
	charge   int
	radical  bool
	aromatic bool
}

// parseBracket parses mass? (element count?)+ charge? radical? from inner.
// Offsets in the returned lexError are relative to inner.
func parseBracket(inner string, aromatic bool) (bracketAtom, *lexError) {
	var b bracketAtom
	pos := 0
	if n, end, ok := extractInteger(inner, pos); ok {
		b.mass = n
		pos = end
	}
	for pos < len(inner) {
		sym, arom, n := extractElement(inner, pos, aromatic && len(b.elements) == 0)
		if n == 0 {
			break
		}
		if arom {
			b.aromatic = true
		}
		pos += n
		count := 1
		if c, end, ok := extractInteger(inner, pos); ok {
			count = c
			pos = end
		}
		if count == 0 {
			return b, &lexError{pos - 1, "0", "element count must be positive"}
		}
		b.elements = appendElement(b.elements, sym, count)
	}
	if len(b.elements) == 0 {
		span := inner
		if span == "" {
			span = "]"
		}
		return b, &lexError{pos, span, "expected element"}
	}
	rest := inner[pos:]
	if rest != "" && rest[0] != '+' && rest[0] != '-' && rest != "." {
		return b, &lexError{pos, rest[:1], "unexpected '" + rest[:1] + "' in bracket atom"}
	}
	if l := len(rest); l > 0 && rest[l-1] == '.' {
		b.radical = true
		rest = rest[:l-1]
	}
	if rest != "" {
		charge, ok := parseCharge(rest)
		if !ok {
			return b, &lexError{pos, rest, "invalid charge, expected +n, -n or repeated + or -"}
		}
		b.charge = charge
	}
	return b, nil
}

func appendElement(list []molecule.ElementCount, symbol string, n int) []molecule.ElementCount {
	for i := range list {
		if list[i].Symbol == symbol {
			list[i].Count += n
			return list
		}
	}
	return append(list, molecule.ElementCount{Symbol: symbol, Count: n})
}
