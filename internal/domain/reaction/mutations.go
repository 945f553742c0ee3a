package reaction

import (
	"fmt"
	"sort"

	"github.com/turtacn/molnotation/internal/domain/molecule"
	"github.com/turtacn/molnotation/internal/domain/pattern"
)

// Options tune how a rule rewrites the graph.
type Options struct {
	// AddHydrogens makes the hydrogens a rule introduces explicit atoms.
	AddHydrogens bool `json:"add_hydrogens" mapstructure:"add_hydrogens"`
	// Halogen is the element used by halogenation rules.
	Halogen string `json:"halogen" mapstructure:"halogen"`
}

// DefaultOptions returns bromine halogenation with implicit hydrogens.
func DefaultOptions() Options {
	return Options{Halogen: "Br"}
}

// Mutation is the working state handed to a procedure. Mol is the working
// copy of the reactant; when the rule takes a second reactant it has already
// been merged into Mol and Partner holds its bindings in Mol's identifiers.
type Mutation struct {
	Mol     *molecule.Molecule
	Bind    pattern.Bindings
	Partner pattern.Bindings
	Opts    Options
}

// Procedure rewrites one occurrence of a rule's starting group.
type Procedure func(mu *Mutation) error

var procedures = map[string]Procedure{
	"hydrogenate":              hydrogenate,
	"add-hx":                   addHX,
	"add-x2":                   addX2,
	"radical-halogenate":       radicalHalogenate,
	"cyanide-substitute":       cyanideSubstitute,
	"ammonia-substitute":       ammoniaSubstitute,
	"reduce-nitrile":           reduceNitrile,
	"hydrate":                  hydrate,
	"dehydrate":                dehydrate,
	"oxidise-secondary":        oxidiseToCarbonyl,
	"oxidise-primary-aldehyde": oxidiseToCarbonyl,
	"oxidise-primary-acid":     oxidiseToAcid,
	"reduce-carbonyl":          reduceCarbonyl,
	"add-hcn":                  addHCN,
	"hydrolyse-nitrile":        hydrolyseNitrile,
	"hydrolyse-hydroxynitrile": hydrolyseHydroxynitrile,
	"esterify":                 esterify,
	"esterify-alcohol":         esterifyAlcohol,
	"esterify-acyl-chloride":   esterifyAcylChloride,
	"hydrolyse-ester":          hydrolyseEster,
	"saponify":                 saponify,
	"reduce-acid":              reduceAcid,
	"chlorinate-acid":          chlorinateAcid,
	"hydrolyse-acyl-chloride":  hydrolyseAcylChloride,
	"amidate-acyl-chloride":    amidateAcylChloride,
	"amidate-amine":            amidateAmine,
	"condense-acid":            condenseAcid,
	"deaminate":                deaminate,
}

func lookupProcedure(name string) (Procedure, bool) {
	p, ok := procedures[name]
	return p, ok
}

// ProcedureNames lists the registered mutation names in sorted order.
func ProcedureNames() []string {
	out := make([]string, 0, len(procedures))
	for name := range procedures {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (mu *Mutation) atom(b pattern.Bindings, label string) (*molecule.Atom, error) {
	id, ok := b[label]
	if !ok {
		return nil, fmt.Errorf("pattern did not capture %q", label)
	}
	a := mu.Mol.Atom(id)
	if a == nil {
		return nil, fmt.Errorf("captured atom %d no longer exists", id)
	}
	return a, nil
}

// atoms resolves several labels of the primary bindings at once.
func (mu *Mutation) atoms(labels ...string) ([]*molecule.Atom, error) {
	out := make([]*molecule.Atom, len(labels))
	for i, l := range labels {
		a, err := mu.atom(mu.Bind, l)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func (mu *Mutation) addHydrogens(to *molecule.Atom, n int) {
	for i := 0; i < n; i++ {
		h := mu.Mol.NewAtom("H")
		h.Implicit = !mu.Opts.AddHydrogens
		mu.Mol.AddBond(to.ID, molecule.BondSingle, h.ID)
	}
}

func (mu *Mutation) addAtom(to *molecule.Atom, order molecule.BondOrder, symbol string) *molecule.Atom {
	a := mu.Mol.NewAtom(symbol)
	mu.Mol.AddBond(to.ID, order, a.ID)
	return a
}

func (mu *Mutation) setOrder(a, b *molecule.Atom, order molecule.BondOrder) error {
	if !mu.Mol.SetBondOrder(a.ID, b.ID, order) {
		return fmt.Errorf("atoms %d and %d are not bonded", a.ID, b.ID)
	}
	return nil
}

// hydrogensOf returns the single-bonded hydrogens of a.
func (mu *Mutation) hydrogensOf(a *molecule.Atom) []*molecule.Atom {
	var out []*molecule.Atom
	for _, b := range mu.Mol.AllBondsOf(a.ID) {
		if h := mu.Mol.Atom(b.Dest); b.Order == molecule.BondSingle && h.IsElement("H") {
			out = append(out, h)
		}
	}
	return out
}

// replaceElement turns a into a lone atom of symbol. A hydrogen that becomes
// anything else is no longer implicit.
func (mu *Mutation) replaceElement(a *molecule.Atom, symbol string) {
	a.SetElement(symbol)
	a.Implicit = symbol == "H" && !mu.Opts.AddHydrogens
	a.Charge = 0
}

func (mu *Mutation) halogen() string {
	if mu.Opts.Halogen == "" {
		return "Br"
	}
	return mu.Opts.Halogen
}

// ─────────────────────────────────────────────────────────────────────────────
// Additions to C=C
// ─────────────────────────────────────────────────────────────────────────────

func hydrogenate(mu *Mutation) error {
	at, err := mu.atoms("c", "c2")
	if err != nil {
		return err
	}
	if err := mu.setOrder(at[0], at[1], molecule.BondSingle); err != nil {
		return err
	}
	mu.addHydrogens(at[0], 1)
	mu.addHydrogens(at[1], 1)
	return nil
}

func addHX(mu *Mutation) error {
	at, err := mu.atoms("c", "c2")
	if err != nil {
		return err
	}
	if err := mu.setOrder(at[0], at[1], molecule.BondSingle); err != nil {
		return err
	}
	mu.addAtom(at[0], molecule.BondSingle, mu.halogen())
	mu.addHydrogens(at[1], 1)
	return nil
}

func addX2(mu *Mutation) error {
	at, err := mu.atoms("c", "c2")
	if err != nil {
		return err
	}
	if err := mu.setOrder(at[0], at[1], molecule.BondSingle); err != nil {
		return err
	}
	mu.addAtom(at[0], molecule.BondSingle, mu.halogen())
	mu.addAtom(at[1], molecule.BondSingle, mu.halogen())
	return nil
}

func hydrate(mu *Mutation) error {
	at, err := mu.atoms("c", "c2")
	if err != nil {
		return err
	}
	if err := mu.setOrder(at[0], at[1], molecule.BondSingle); err != nil {
		return err
	}
	o := mu.addAtom(at[0], molecule.BondSingle, "O")
	mu.addHydrogens(o, 1)
	mu.addHydrogens(at[1], 1)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Substitutions
// ─────────────────────────────────────────────────────────────────────────────

// radicalHalogenate swaps the captured hydrogen for a halogen.
func radicalHalogenate(mu *Mutation) error {
	at, err := mu.atoms("h")
	if err != nil {
		return err
	}
	mu.replaceElement(at[0], mu.halogen())
	return nil
}

func cyanideSubstitute(mu *Mutation) error {
	at, err := mu.atoms("x")
	if err != nil {
		return err
	}
	mu.replaceElement(at[0], "C")
	mu.addAtom(at[0], molecule.BondTriple, "N")
	return nil
}

func ammoniaSubstitute(mu *Mutation) error {
	at, err := mu.atoms("x")
	if err != nil {
		return err
	}
	mu.replaceElement(at[0], "N")
	mu.addHydrogens(at[0], 2)
	return nil
}

// deaminate turns R-NH2 into R-OH.
func deaminate(mu *Mutation) error {
	at, err := mu.atoms("n", "h2")
	if err != nil {
		return err
	}
	mu.Mol.RemoveAtom(at[1].ID)
	mu.replaceElement(at[0], "O")
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Alcohols and carbonyls
// ─────────────────────────────────────────────────────────────────────────────

func dehydrate(mu *Mutation) error {
	at, err := mu.atoms("c", "o", "h")
	if err != nil {
		return err
	}
	c, o, h := at[0], at[1], at[2]
	var other, otherH *molecule.Atom
	for _, b := range mu.Mol.AllBondsOf(c.ID) {
		cand := mu.Mol.Atom(b.Dest)
		if b.Order != molecule.BondSingle || !cand.IsElement("C") {
			continue
		}
		if hs := mu.hydrogensOf(cand); len(hs) > 0 {
			other, otherH = cand, hs[0]
			break
		}
	}
	if other == nil {
		return fmt.Errorf("the hydroxyl carbon needs a neighbouring carbon that carries a hydrogen")
	}
	mu.Mol.RemoveAtom(otherH.ID)
	mu.Mol.RemoveAtom(h.ID)
	mu.Mol.RemoveAtom(o.ID)
	return mu.setOrder(c, other, molecule.BondDouble)
}

// oxidiseToCarbonyl removes the hydroxyl hydrogen and one hydrogen of the
// carbon, then doubles the C-O bond.
func oxidiseToCarbonyl(mu *Mutation) error {
	at, err := mu.atoms("c", "o", "h")
	if err != nil {
		return err
	}
	c, o, h := at[0], at[1], at[2]
	hs := mu.hydrogensOf(c)
	if len(hs) == 0 {
		return fmt.Errorf("the hydroxyl carbon must carry a hydrogen")
	}
	mu.Mol.RemoveAtom(hs[0].ID)
	mu.Mol.RemoveAtom(h.ID)
	return mu.setOrder(c, o, molecule.BondDouble)
}

// oxidiseToAcid replaces two hydrogens of the carbon with =O and keeps the
// hydroxyl.
func oxidiseToAcid(mu *Mutation) error {
	at, err := mu.atoms("c")
	if err != nil {
		return err
	}
	c := at[0]
	hs := mu.hydrogensOf(c)
	if len(hs) < 2 {
		return fmt.Errorf("the hydroxyl carbon must carry two hydrogens")
	}
	mu.Mol.RemoveAtom(hs[0].ID)
	mu.Mol.RemoveAtom(hs[1].ID)
	mu.addAtom(c, molecule.BondDouble, "O")
	return nil
}

func reduceCarbonyl(mu *Mutation) error {
	at, err := mu.atoms("c", "o")
	if err != nil {
		return err
	}
	if err := mu.setOrder(at[0], at[1], molecule.BondSingle); err != nil {
		return err
	}
	mu.addHydrogens(at[0], 1)
	mu.addHydrogens(at[1], 1)
	return nil
}

// addHCN opens C=O to C-OH and attaches a nitrile carbon.
func addHCN(mu *Mutation) error {
	at, err := mu.atoms("c", "o")
	if err != nil {
		return err
	}
	c, o := at[0], at[1]
	if err := mu.setOrder(c, o, molecule.BondSingle); err != nil {
		return err
	}
	mu.addHydrogens(o, 1)
	cn := mu.addAtom(c, molecule.BondSingle, "C")
	mu.addAtom(cn, molecule.BondTriple, "N")
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Nitriles
// ─────────────────────────────────────────────────────────────────────────────

func reduceNitrile(mu *Mutation) error {
	at, err := mu.atoms("c", "n")
	if err != nil {
		return err
	}
	if err := mu.setOrder(at[0], at[1], molecule.BondSingle); err != nil {
		return err
	}
	mu.addHydrogens(at[0], 2)
	mu.addHydrogens(at[1], 2)
	return nil
}

// toCarboxyl replaces the nitrile nitrogen of c with =O and -OH.
func (mu *Mutation) toCarboxyl(c, n *molecule.Atom) {
	mu.Mol.RemoveAtom(n.ID)
	mu.addAtom(c, molecule.BondDouble, "O")
	o := mu.addAtom(c, molecule.BondSingle, "O")
	mu.addHydrogens(o, 1)
}

func hydrolyseNitrile(mu *Mutation) error {
	at, err := mu.atoms("c", "n")
	if err != nil {
		return err
	}
	mu.toCarboxyl(at[0], at[1])
	return nil
}

func hydrolyseHydroxynitrile(mu *Mutation) error {
	at, err := mu.atoms("c2", "n")
	if err != nil {
		return err
	}
	mu.toCarboxyl(at[0], at[1])
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Acids and derivatives
// ─────────────────────────────────────────────────────────────────────────────

// reduceAcid turns -C(=O)OH into -CH2OH.
func reduceAcid(mu *Mutation) error {
	at, err := mu.atoms("c", "o")
	if err != nil {
		return err
	}
	mu.Mol.RemoveAtom(at[1].ID)
	mu.addHydrogens(at[0], 2)
	return nil
}

// chlorinateAcid turns -C(=O)OH into -C(=O)Cl.
func chlorinateAcid(mu *Mutation) error {
	at, err := mu.atoms("o2", "h")
	if err != nil {
		return err
	}
	mu.Mol.RemoveAtom(at[1].ID)
	mu.replaceElement(at[0], "Cl")
	return nil
}

func hydrolyseAcylChloride(mu *Mutation) error {
	at, err := mu.atoms("x")
	if err != nil {
		return err
	}
	mu.replaceElement(at[0], "O")
	mu.addHydrogens(at[0], 1)
	return nil
}

func amidateAcylChloride(mu *Mutation) error {
	at, err := mu.atoms("x")
	if err != nil {
		return err
	}
	mu.replaceElement(at[0], "N")
	mu.addHydrogens(at[0], 2)
	return nil
}

// joinAcyl bonds the acyl carbon c to the partner heteroatom het after
// dropping leaving (the acid's OH oxygen or the chloride) and hydrogen,
// the partner's hydrogen.
func (mu *Mutation) joinAcyl(c, leaving, het, hydrogen *molecule.Atom) error {
	for _, b := range mu.Mol.AllBondsOf(leaving.ID) {
		if b.Dest != c.ID {
			mu.Mol.RemoveAtom(b.Dest)
		}
	}
	mu.Mol.RemoveAtom(leaving.ID)
	mu.Mol.RemoveAtom(hydrogen.ID)
	if !mu.Mol.AddBond(c.ID, molecule.BondSingle, het.ID) {
		return fmt.Errorf("cannot bond atoms %d and %d", c.ID, het.ID)
	}
	return nil
}

// esterify condenses the acid in Bind with the alcohol in Partner.
func esterify(mu *Mutation) error {
	return mu.condense(mu.Bind, "o2", mu.Partner, "o")
}

// esterifyAlcohol condenses the alcohol in Bind with the acid in Partner.
func esterifyAlcohol(mu *Mutation) error {
	return mu.condense(mu.Partner, "o2", mu.Bind, "o")
}

func esterifyAcylChloride(mu *Mutation) error {
	return mu.condense(mu.Bind, "x", mu.Partner, "o")
}

// amidateAmine joins an acyl chloride to a primary amine's nitrogen.
func amidateAmine(mu *Mutation) error {
	return mu.condense(mu.Bind, "x", mu.Partner, "n")
}

// condenseAcid joins two acids into an anhydride.
func condenseAcid(mu *Mutation) error {
	return mu.condense(mu.Bind, "o2", mu.Partner, "o2")
}

// condense bonds the acyl carbon "c" of acyl to the heteroatom het of nu,
// releasing the leaving group of acyl together with nu's hydrogen "h".
func (mu *Mutation) condense(acyl pattern.Bindings, leaving string, nu pattern.Bindings, het string) error {
	if nu == nil {
		return fmt.Errorf("a second reactant is required")
	}
	c, err := mu.atom(acyl, "c")
	if err != nil {
		return err
	}
	l, err := mu.atom(acyl, leaving)
	if err != nil {
		return err
	}
	x, err := mu.atom(nu, het)
	if err != nil {
		return err
	}
	h, err := mu.atom(nu, "h")
	if err != nil {
		return err
	}
	return mu.joinAcyl(c, l, x, h)
}

// hydrolyseEster cuts the O-R bond of the ester, giving the acid and the
// alcohol as separate fragments.
func hydrolyseEster(mu *Mutation) error {
	return mu.cleaveEster(false)
}

// saponify is hydrolyseEster under base: the acid side ends as a
// carboxylate.
func saponify(mu *Mutation) error {
	return mu.cleaveEster(true)
}

func (mu *Mutation) cleaveEster(base bool) error {
	at, err := mu.atoms("o2", "c2")
	if err != nil {
		return err
	}
	o2, c2 := at[0], at[1]
	if !mu.Mol.SeverBond(o2.ID, c2.ID) {
		return fmt.Errorf("atoms %d and %d are not bonded", o2.ID, c2.ID)
	}
	if base {
		o2.Charge = -1
	} else {
		mu.addHydrogens(o2, 1)
	}
	o := mu.addAtom(c2, molecule.BondSingle, "O")
	mu.addHydrogens(o, 1)
	return nil
}
