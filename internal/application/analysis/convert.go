package analysis

import (
	"github.com/turtacn/molnotation/internal/domain/formula"
	"github.com/turtacn/molnotation/internal/domain/molecule"
	"github.com/turtacn/molnotation/internal/domain/notation"
	"github.com/turtacn/molnotation/internal/domain/reaction"
	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

func moleculeDTO(index int, m *molecule.Molecule, markup formula.Markup, showImplicit bool) mtypes.MoleculeDTO {
	dto := mtypes.MoleculeDTO{
		Index:            index,
		Role:             m.Role.String(),
		Notation:         notation.Generate(m, showImplicit),
		Formula:          formula.MolecularFormula(m, false, markup),
		EmpiricalFormula: formula.EmpiricalFormula(m, markup),
		CondensedFormula: formula.Condensed(m, markup),
		MolarMass:        formula.MolarMass(m),
		AtomCount:        m.Len(),
	}
	for _, a := range m.Atoms() {
		if a.Implicit && !showImplicit {
			continue
		}
		dto.Atoms = append(dto.Atoms, atomDTO(a))
	}
	for _, r := range m.Rings {
		dto.Rings = append(dto.Rings, mtypes.RingDTO{
			Digit:    r.Digit,
			Start:    r.Start,
			End:      r.End,
			Order:    r.ClosureOrder().String(),
			Aromatic: r.Aromatic,
			Members:  append([]int(nil), r.Members...),
		})
	}
	return dto
}

func atomDTO(a *molecule.Atom) mtypes.AtomDTO {
	dto := mtypes.AtomDTO{
		ID:       a.ID,
		Label:    notation.AtomText(a),
		Charge:   a.Charge,
		Radical:  a.Radical,
		Mass:     a.Mass,
		Aromatic: a.Aromatic,
		Implicit: a.Implicit,
		Position: a.Position,
		Length:   a.Length,
	}
	for _, b := range a.Bonds {
		dto.Bonds = append(dto.Bonds, mtypes.BondDTO{To: b.Dest, Order: b.Order.String()})
	}
	return dto
}

func groupDTO(g *reaction.Group, occurrences int) mtypes.GroupDTO {
	return mtypes.GroupDTO{ID: g.ID, Repr: g.Repr, Name: g.Name, Occurrences: occurrences}
}

func groupDTOs(matches []reaction.GroupMatch) []mtypes.GroupDTO {
	out := make([]mtypes.GroupDTO, 0, len(matches))
	for _, gm := range matches {
		out = append(out, groupDTO(gm.Group, len(gm.Matches)))
	}
	return out
}

// ruleDTO resolves the rule's group references against cat. A reference the
// catalog does not hold keeps only its id.
func ruleDTO(cat *reaction.Catalog, r *reaction.Rule) mtypes.RuleDTO {
	ref := func(id int) mtypes.GroupDTO {
		if g, ok := cat.Group(id); ok {
			return groupDTO(g, 0)
		}
		return mtypes.GroupDTO{ID: id}
	}
	dto := mtypes.RuleDTO{
		ID:         r.ID,
		Name:       r.Name,
		Type:       r.Type,
		From:       ref(r.From),
		To:         ref(r.To),
		Reagents:   r.Reagents,
		Conditions: r.Conditions,
		ReactOnce:  r.ReactOnce,
		Mutation:   r.Mutation,
	}
	if r.External != 0 {
		ext := ref(r.External)
		dto.External = &ext
	}
	return dto
}
