package notation

// Options switches grammar features and normalization steps on and off. A
// disabled feature's trigger character is no longer special and falls through
// to the organic-atom rule, where it is reported as unexpected.
type Options struct {
	// Inorganic enables bracket atoms "[...]". Default true.
	Inorganic bool `json:"inorganic" mapstructure:"inorganic"`
	// Charges enables charge clauses "{+}", "{-2}". Default true.
	Charges bool `json:"charges" mapstructure:"charges"`
	// Branches enables "(...)". Default true.
	Branches bool `json:"branches" mapstructure:"branches"`
	// Rings enables ring-closure labels "1" and "%12". Default true.
	Rings bool `json:"rings" mapstructure:"rings"`
	// Aromaticity enables the ':' bond and lowercase aromatic atoms.
	// Default true.
	Aromaticity bool `json:"aromaticity" mapstructure:"aromaticity"`
	// Disconnection enables "." between structures. Default true.
	Disconnection bool `json:"disconnection" mapstructure:"disconnection"`
	// Reactions enables ">" separators. Default true.
	Reactions bool `json:"reactions" mapstructure:"reactions"`
	// MultipleReactions allows more than two ">" groups. Default false.
	MultipleReactions bool `json:"multiple_reactions" mapstructure:"multiple_reactions"`
	// CumulativeCharge allows several charge clauses on one atom, as in
	// "O{-}{-}". Default false.
	CumulativeCharge bool `json:"cumulative_charge" mapstructure:"cumulative_charge"`
	// ImplicitHydrogens saturates organic-subset atoms with hydrogens.
	// Default true.
	ImplicitHydrogens bool `json:"implicit_hydrogens" mapstructure:"implicit_hydrogens"`
	// CheckValence rejects organic-subset atoms with an impermissible bond
	// order sum. Default true.
	CheckValence bool `json:"check_valence" mapstructure:"check_valence"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Inorganic:         true,
		Charges:           true,
		Branches:          true,
		Rings:             true,
		Aromaticity:       true,
		Disconnection:     true,
		Reactions:         true,
		MultipleReactions: false,
		CumulativeCharge:  false,
		ImplicitHydrogens: true,
		CheckValence:      true,
	}
}
