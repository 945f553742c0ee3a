package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// NewReactCmd creates the react command.
func NewReactCmd() *cobra.Command {
	flags := &notationFlags{}
	var (
		rule         int
		partner      string
		halogen      string
		addHydrogens bool
	)

	cmd := &cobra.Command{
		Use:   "react <notation>",
		Short: "Apply a catalog reaction rule to a molecule",
		Example: `  molnote react C=C --rule 1
  molnote react CC(=O)O --rule 19 --partner CO
  molnote react C=C --rule 3 --halogen Cl --add-hydrogens`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, ctx, cancel, err := commandSetup(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			opts, err := flags.options()
			if err != nil {
				return err
			}
			out, err := svc.React(ctx, &mtypes.ReactRequest{
				Notation:     args[0],
				Rule:         rule,
				Partner:      partner,
				Options:      opts,
				AddHydrogens: addHydrogens,
				Halogen:      halogen,
				Markup:       flags.markup,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, reactionView{out})
		},
	}
	flags.register(cmd)
	fl := cmd.Flags()
	fl.IntVar(&rule, "rule", 0, "reaction rule id (see molnote reactions)")
	fl.StringVar(&partner, "partner", "", "second reactant for rules that need one")
	fl.StringVar(&halogen, "halogen", "", "halogen for halogenation rules: F, Cl, Br or I (default from config)")
	fl.BoolVar(&addHydrogens, "add-hydrogens", false, "saturate products with implicit hydrogens")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}

type reactionView struct {
	*mtypes.ReactionDTO
}

func (v reactionView) MarshalJSON() ([]byte, error) { return json.Marshal(v.ReactionDTO) }

func (v reactionView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Rule %d: %s\n", v.Rule.ID, ruleSummary(v.Rule))
	fmt.Fprintf(&sb, "%s\n", v.Equation)
	for _, p := range v.Products {
		fmt.Fprintf(&sb, "  product %s  %s  %.3f g/mol\n", p.Notation, p.Formula, p.MolarMass)
	}
	fmt.Fprintf(&sb, "applied %d time(s)", v.Applied)
	if v.Truncated {
		sb.WriteString(", stopped at the application limit")
	}
	sb.WriteByte('\n')
	return sb.String()
}

func (v reactionView) TableHeaders() []string {
	return []string{"Product", "Notation", "Formula", "Molar Mass"}
}

func (v reactionView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Products))
	for i, p := range v.Products {
		rows = append(rows, []string{strconv.Itoa(i), p.Notation, p.Formula, fmt.Sprintf("%.3f", p.MolarMass)})
	}
	return rows
}

// ruleSummary renders "Name: from -> to [reagents, conditions]".
func ruleSummary(r mtypes.RuleDTO) string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	if r.Type != "" {
		fmt.Fprintf(&sb, " (%s)", r.Type)
	}
	fmt.Fprintf(&sb, ": %s", r.From.Repr)
	if r.External != nil {
		fmt.Fprintf(&sb, " + %s", r.External.Repr)
	}
	fmt.Fprintf(&sb, " -> %s", r.To.Repr)
	var cond []string
	if r.Reagents != "" {
		cond = append(cond, r.Reagents)
	}
	if r.Conditions != "" {
		cond = append(cond, r.Conditions)
	}
	if len(cond) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(cond, ", "))
	}
	return sb.String()
}
