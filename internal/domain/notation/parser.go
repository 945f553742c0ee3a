package notation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/molnotation/internal/domain/molecule"
	"github.com/turtacn/molnotation/pkg/errors"
)

// Parser turns notation text into molecule graphs. It holds only options, so
// one Parser may serve concurrent callers; each Parse call runs a private
// session with its own identifier allocator.
type Parser struct {
	opts Options
}

// NewParser creates a Parser with opts.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts}
}

// Parse parses text with DefaultOptions.
func Parse(text string) (*ParseResult, error) {
	return NewParser(DefaultOptions()).Parse(text)
}

// Options returns the parser's options.
func (p *Parser) Options() Options {
	return p.opts
}

// Parse parses text. On failure the error is a *errors.ParseError whose Text
// is set so that Underline can point into the input.
func (p *Parser) Parse(text string) (*ParseResult, error) {
	s := newSession(text, p.opts)
	if perr := s.run(); perr != nil {
		perr.Text = text
		return nil, perr
	}
	return s.result(), nil
}

// session is the mutable state of one Parse call.
type session struct {
	text string
	opts Options
	ids  *molecule.IDAllocator

	molecules []*molecule.Molecule
	cur       *molecule.Molecule
	owner     map[int]*molecule.Molecule

	open  map[int]*molecule.Ring
	rings []*molecule.Ring

	reactionIndexes []int
	// dontBondNext is set by a separator and cleared by the next atom.
	dontBondNext  bool
	lastSeparator byte
}

func newSession(text string, opts Options) *session {
	s := &session{
		text:  text,
		opts:  opts,
		ids:   molecule.NewIDAllocator(),
		owner: make(map[int]*molecule.Molecule),
		open:  make(map[int]*molecule.Ring),
	}
	s.startMolecule()
	return s
}

func (s *session) startMolecule() {
	s.cur = molecule.New(s.ids)
	s.molecules = append(s.molecules, s.cur)
}

func (s *session) run() *errors.ParseError {
	if s.text == "" {
		return errors.NewSyntaxError(0, "", "empty chain")
	}
	if perr := s.parseChain(0, len(s.text), 0, nil); perr != nil {
		return perr
	}
	if len(s.reactionIndexes)%2 == 1 {
		return errors.NewSyntaxError(len(s.text), "", "\">\" expected (incomplete reaction)")
	}
	if s.dontBondNext {
		return errors.NewSyntaxError(len(s.text), "", "expected structure after '%c'", s.lastSeparator)
	}
	return s.finish()
}

// parseChain parses text[lo:hi] at the given branch depth. parent is the atom
// the first atom of a branch bonds to; it is nil at the top level.
func (s *session) parseChain(lo, hi, depth int, parent *molecule.Atom) *errors.ParseError {
	if lo >= hi {
		return errors.NewSyntaxError(lo, "", "empty chain")
	}
	text := s.text[:hi]

	var (
		last    *molecule.Atom
		bond    molecule.BondOrder
		bondPos = -1
	)

	attach := func(a *molecule.Atom) *errors.ParseError {
		s.cur.Add(a)
		s.owner[a.ID] = s.cur

		from := last
		if from == nil {
			from = parent
		}
		switch {
		case from == nil:
			if bond != molecule.BondUnset {
				if s.dontBondNext {
					return errors.NewSyntaxError(bondPos, bond.Symbol(), "attempted to create bond between separated structures")
				}
				return errors.NewSyntaxError(bondPos, bond.Symbol(), "unexpected bond")
			}
		case bond != molecule.BondUnset:
			if bond == molecule.BondAromatic {
				if len(s.open) == 0 {
					return errors.NewSyntaxError(bondPos, ":", "aromatic bond ':' only valid in rings")
				}
				for _, r := range s.open {
					r.Aromatic = true
				}
			}
			if !s.cur.AddBond(from.ID, bond, a.ID) {
				return errors.NewSemanticError(bondPos, bond.Symbol(), "duplicate bond between %s and %s", from, a)
			}
			if i := from.BondTo(a.ID); i != -1 {
				from.Bonds[i].Position = bondPos
			}
		default:
			order := molecule.BondSingle
			if from.Aromatic && a.Aromatic {
				order = molecule.BondAromatic
			}
			if !s.cur.AddBond(from.ID, order, a.ID) {
				return errors.NewSemanticError(a.Position, s.span(a), "duplicate bond between %s and %s", from, a)
			}
		}

		for _, r := range s.open {
			r.Members = append(r.Members, a.ID)
		}
		bond, bondPos = molecule.BondUnset, -1
		last = a
		s.dontBondNext = false
		return nil
	}

	pos := lo
	for pos < hi {
		c := text[pos]
		if molecule.IsBondSymbol(c) && (c != ':' || s.opts.Aromaticity) {
			bond, _ = molecule.ParseBondOrder(c)
			bondPos = pos
			pos++
			if pos >= hi {
				return errors.NewSyntaxError(bondPos, string(c), "unexpected bond at end of chain")
			}
			c = text[pos]
		}

		switch {
		case c == '{' && s.opts.Charges:
			if last == nil || bond != molecule.BondUnset {
				return errors.NewSyntaxError(pos, "{", "unexpected charge clause")
			}
			inner, end, open := extractBetween(text, '{', '}', pos)
			if open != 0 {
				return errors.NewSyntaxError(pos, "{", "unmatched '{'")
			}
			charge, ok := parseCharge(inner)
			if !ok {
				return errors.NewSyntaxError(pos, text[pos:end+1], "invalid charge clause, expected {+n}, {-n} or repeated + or -")
			}
			if last.Charge != 0 && !s.opts.CumulativeCharge {
				return errors.NewSyntaxError(pos, text[pos:end+1], "unexpected charge clause, %s is already charged", last)
			}
			last.Charge += charge
			pos = end + 1

		case c == '[' && s.opts.Inorganic:
			inner, end, open := extractBetween(text, '[', ']', pos)
			if open != 0 {
				return errors.NewSyntaxError(pos, "[", "unmatched '['")
			}
			b, lerr := parseBracket(inner, s.opts.Aromaticity)
			if lerr != nil {
				return errors.NewSyntaxError(pos+1+lerr.offset, lerr.span, "%s", lerr.message)
			}
			a := s.newAtom(pos, end+1-pos, depth)
			a.Elements = b.elements
			a.Charge = b.charge
			a.Mass = b.mass
			a.Radical = b.radical
			a.Aromatic = b.aromatic
			pos = end + 1
			if perr := attach(a); perr != nil {
				return perr
			}

		case c == '(' && s.opts.Branches:
			if bond != molecule.BondUnset {
				return errors.NewSyntaxError(bondPos, bond.Symbol(), "unexpected bond before branch")
			}
			if last == nil {
				return errors.NewSyntaxError(pos, "(", "branch without a preceding atom")
			}
			inner, end, open := extractBetween(text, '(', ')', pos)
			if open != 0 {
				return errors.NewSyntaxError(pos, "(", "unmatched '('")
			}
			if inner == "" {
				return errors.NewSyntaxError(pos, "()", "empty branch")
			}
			if perr := s.parseChain(pos+1, end, depth+1, last); perr != nil {
				return perr.WithContext(fmt.Sprintf("in branch at offset %d", pos))
			}
			pos = end + 1

		case (isDigit(c) || c == '%') && s.opts.Rings:
			if last == nil {
				return errors.NewSyntaxError(pos, string(c), "ring label without a preceding atom")
			}
			tokens, end, lerr := lexRingDigits(text, pos)
			if lerr != nil {
				return errors.NewSyntaxError(lerr.offset, lerr.span, "%s", lerr.message)
			}
			for i, tok := range tokens {
				order := molecule.BondUnset
				if i == 0 {
					order = bond
				}
				if perr := s.ringLabel(last, tok, order); perr != nil {
					return perr
				}
			}
			bond, bondPos = molecule.BondUnset, -1
			pos = end

		case c == '.' && s.opts.Disconnection && depth == 0:
			if bond != molecule.BondUnset {
				return errors.NewSyntaxError(bondPos, bond.Symbol(), "attempted to create bond between separated structures")
			}
			if s.dontBondNext || s.cur.Len() == 0 {
				return errors.NewSyntaxError(pos, ".", "expected structure before '.'")
			}
			s.startMolecule()
			s.dontBondNext, s.lastSeparator = true, '.'
			last = nil
			pos++

		case c == '>' && s.opts.Reactions && depth == 0:
			if perr := s.reactionArrow(pos, bond, bondPos); perr != nil {
				return perr
			}
			last = nil
			pos++

		default:
			sym, arom, n, organic := extractOrganic(text, pos, s.opts.Aromaticity)
			if n == 0 {
				r, size := utf8.DecodeRuneInString(text[pos:])
				return errors.NewSyntaxError(pos, text[pos:pos+size], "expected atom, got '%c'", r)
			}
			if !organic {
				return errors.NewSyntaxError(pos, text[pos:pos+n], "expected organic element [%s], got '%s'",
					strings.Join(molecule.OrganicSymbols(), ", "), sym)
			}
			a := s.newAtom(pos, n, depth)
			a.SetElement(sym)
			a.Aromatic = arom
			pos += n
			if perr := attach(a); perr != nil {
				return perr
			}
		}
	}
	return nil
}

func (s *session) reactionArrow(pos int, bond molecule.BondOrder, bondPos int) *errors.ParseError {
	if bond != molecule.BondUnset {
		return errors.NewSyntaxError(bondPos, bond.Symbol(), "attempted to create bond between separated structures")
	}
	if s.dontBondNext && s.lastSeparator == '.' {
		return errors.NewSyntaxError(pos, ">", "expected structure before '>'")
	}
	empty := s.cur.Len() == 0
	if empty && len(s.molecules) == 1 {
		return errors.NewSyntaxError(pos, ">", "expected structure before '>'")
	}
	if !s.opts.MultipleReactions && len(s.reactionIndexes) >= 2 {
		return errors.NewSyntaxError(pos, ">", "unexpected '>', only one reaction is allowed")
	}
	idx := len(s.molecules) - 1
	if empty {
		idx--
		seen := 0
		for _, i := range s.reactionIndexes {
			if i == idx {
				seen++
			}
		}
		if seen >= 2 {
			return errors.NewSyntaxError(pos, ">", "unexpected '>'")
		}
	}
	s.reactionIndexes = append(s.reactionIndexes, idx)
	if !empty {
		s.startMolecule()
	}
	s.dontBondNext, s.lastSeparator = true, '>'
	return nil
}

func (s *session) newAtom(pos, length, depth int) *molecule.Atom {
	return &molecule.Atom{ID: s.ids.Next(), Position: pos, Length: length, ChainDepth: depth}
}

// span returns the source text of a.
func (s *session) span(a *molecule.Atom) string {
	end := a.Position + a.Length
	if a.Length == 0 || end > len(s.text) {
		return ""
	}
	return s.text[a.Position:end]
}

// ringLabel opens or closes the ring labelled tok.digit at a. order is an
// explicit bond written before the label, or BondUnset.
func (s *session) ringLabel(a *molecule.Atom, tok ringToken, order molecule.BondOrder) *errors.ParseError {
	span := s.text[tok.offset : tok.offset+tok.width]
	r, ok := s.open[tok.digit]
	if !ok {
		r = &molecule.Ring{
			Digit:    tok.digit,
			Start:    a.ID,
			End:      -1,
			Members:  []int{a.ID},
			Order:    order,
			Position: tok.offset,
		}
		s.open[tok.digit] = r
		s.rings = append(s.rings, r)
		a.RingDigits = append(a.RingDigits, tok.digit)
		return nil
	}

	if r.Start == a.ID {
		return errors.NewSyntaxError(tok.offset, span, "duplicate ring endings, ring %d closes on its opening atom", tok.digit)
	}
	if order != molecule.BondUnset {
		if r.Order != molecule.BondUnset && r.Order != order {
			return errors.NewSyntaxError(tok.offset, span, "conflicting bond orders for ring %d", tok.digit)
		}
		r.Order = order
	}
	if r.Order == molecule.BondUnset && !r.Aromatic {
		if start := s.owner[r.Start].Atom(r.Start); start != nil && start.Aromatic && a.Aromatic {
			r.Order = molecule.BondAromatic
		}
	}
	r.End = a.ID
	r.Closed = true
	a.RingDigits = append(a.RingDigits, tok.digit)
	delete(s.open, tok.digit)
	return nil
}

// finish runs the post-parse steps in order: rings must stay inside one
// molecule, no ring may remain open, closure bonds are materialized, implicit
// hydrogens are added, valences are checked and ring membership is resolved.
func (s *session) finish() *errors.ParseError {
	for _, r := range s.rings {
		if r.Closed && s.owner[r.Start] != s.owner[r.End] {
			return errors.NewSemanticError(r.Position, s.ringSpan(r),
				"attempted to create bond between separated structures (ring %d)", r.Digit)
		}
	}

	for _, r := range s.rings {
		if !r.Closed {
			start := s.owner[r.Start].Atom(r.Start)
			return errors.NewSemanticError(start.Position, s.span(start), "unclosed ring %d", r.Digit)
		}
	}

	for _, r := range s.rings {
		m := s.owner[r.Start]
		if !m.AddBond(r.Start, r.ClosureOrder(), r.End) {
			return errors.NewSemanticError(r.Position, s.ringSpan(r),
				"duplicate ring endings, ring %d repeats an existing bond", r.Digit)
		}
		m.Rings = append(m.Rings, r)
	}

	if s.opts.ImplicitHydrogens {
		for _, m := range s.molecules {
			m.AddImplicitHydrogens()
		}
	}

	if s.opts.CheckValence {
		for _, m := range s.molecules {
			if v := m.CheckValence(); v != nil {
				return errors.NewSemanticError(v.Atom.Position, s.span(v.Atom), "%s", v.Error())
			}
		}
	}

	for _, m := range s.molecules {
		m.ResolveRingMembers()
	}
	return nil
}

func (s *session) ringSpan(r *molecule.Ring) string {
	if r.Position < 0 || r.Position >= len(s.text) {
		return ""
	}
	if s.text[r.Position] == '%' && r.Position+3 <= len(s.text) {
		return s.text[r.Position : r.Position+3]
	}
	return s.text[r.Position : r.Position+1]
}

func (s *session) result() *ParseResult {
	res := &ParseResult{
		Text:            s.text,
		Options:         s.opts,
		Molecules:       s.molecules,
		ReactionIndexes: s.reactionIndexes,
	}
	for _, r := range s.rings {
		if !r.Closed {
			res.OpenRings = append(res.OpenRings, r)
		}
	}
	res.assignRoles()
	return res
}
