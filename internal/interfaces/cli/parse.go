package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	flags := &notationFlags{}
	var groups bool

	cmd := &cobra.Command{
		Use:   "parse <notation>",
		Short: "Parse notation and describe the molecules it contains",
		Example: `  molnote parse CCO
  molnote parse "C=C.O>>CCO" -o table
  molnote parse c1ccccc1 --groups -v
  molnote parse "C1CC" --disable rings`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, svc, ctx, cancel, err := commandSetup(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			req, err := flags.analyzeRequest(args[0], groups)
			if err != nil {
				return err
			}
			out, err := svc.Analyze(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, analysisView{AnalysisDTO: out, verbose: cliCtx.Verbose})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&groups, "groups", false, "classify functional groups")
	return cmd
}

// analysisView renders an analysis. Verbose output lists every atom.
type analysisView struct {
	*mtypes.AnalysisDTO
	verbose bool
}

func (v analysisView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Canonical: %s\n", v.Canonical)
	for _, m := range v.Molecules {
		fmt.Fprintf(&sb, "[%d] %s", m.Index, m.Notation)
		if v.Reaction {
			fmt.Fprintf(&sb, " (%s)", m.Role)
		}
		fmt.Fprintf(&sb, "\n    formula:    %s\n", m.Formula)
		fmt.Fprintf(&sb, "    empirical:  %s\n", m.EmpiricalFormula)
		fmt.Fprintf(&sb, "    condensed:  %s\n", m.CondensedFormula)
		fmt.Fprintf(&sb, "    molar mass: %.3f g/mol\n", m.MolarMass)
		fmt.Fprintf(&sb, "    atoms:      %d\n", m.AtomCount)
		if len(m.Rings) > 0 {
			fmt.Fprintf(&sb, "    rings:      %d\n", len(m.Rings))
		}
		if len(m.Groups) > 0 {
			fmt.Fprintf(&sb, "    groups:     %s\n", groupList(m.Groups))
		}
		if v.verbose {
			for _, a := range m.Atoms {
				fmt.Fprintf(&sb, "      #%-3d %-6s %s\n", a.ID, a.Label, bondList(a.Bonds))
			}
			for _, r := range m.Rings {
				fmt.Fprintf(&sb, "      ring %d: %s closure between #%d and #%d\n", r.Digit, r.Order, r.Start, r.End)
			}
		}
	}
	return sb.String()
}

func (v analysisView) TableHeaders() []string {
	if v.verbose {
		return []string{"Molecule", "ID", "Atom", "Charge", "Aromatic", "Position", "Bonds"}
	}
	return []string{"Index", "Role", "Notation", "Formula", "Molar Mass", "Atoms", "Rings", "Groups"}
}

func (v analysisView) TableRows() [][]string {
	var rows [][]string
	for _, m := range v.Molecules {
		if !v.verbose {
			rows = append(rows, []string{
				strconv.Itoa(m.Index),
				m.Role,
				m.Notation,
				m.Formula,
				fmt.Sprintf("%.3f", m.MolarMass),
				strconv.Itoa(m.AtomCount),
				strconv.Itoa(len(m.Rings)),
				groupList(m.Groups),
			})
			continue
		}
		for _, a := range m.Atoms {
			rows = append(rows, []string{
				strconv.Itoa(m.Index),
				strconv.Itoa(a.ID),
				a.Label,
				strconv.Itoa(a.Charge),
				strconv.FormatBool(a.Aromatic),
				strconv.Itoa(a.Position),
				bondList(a.Bonds),
			})
		}
	}
	return rows
}

func groupList(groups []mtypes.GroupDTO) string {
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		if g.Occurrences > 1 {
			parts = append(parts, fmt.Sprintf("%s x%d", g.Repr, g.Occurrences))
		} else {
			parts = append(parts, g.Repr)
		}
	}
	return strings.Join(parts, ", ")
}

func bondList(bonds []mtypes.BondDTO) string {
	parts := make([]string, 0, len(bonds))
	for _, b := range bonds {
		parts = append(parts, fmt.Sprintf("%s->#%d", b.Order, b.To))
	}
	return strings.Join(parts, " ")
}
