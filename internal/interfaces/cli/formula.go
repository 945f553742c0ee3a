package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// NewFormulaCmd creates the formula command.
func NewFormulaCmd() *cobra.Command {
	flags := &notationFlags{}
	var kind string

	cmd := &cobra.Command{
		Use:   "formula <notation>",
		Short: "Print the formula of each molecule in the notation",
		Example: `  molnote formula CCO
  molnote formula "OCC(O)CO" --kind empirical
  molnote formula CC(=O)O --kind condensed --markup unicode`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, ctx, cancel, err := commandSetup(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			switch kind {
			case "molecular", "empirical", "condensed", "all":
			default:
				return fmt.Errorf("invalid --kind %q (must be molecular|empirical|condensed|all)", kind)
			}
			req, err := flags.analyzeRequest(args[0], false)
			if err != nil {
				return err
			}
			out, err := svc.Analyze(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, formulaView{molecules: out.Molecules, kind: kind})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&kind, "kind", "molecular", "formula kind: molecular, empirical, condensed or all")
	return cmd
}

// FormulaRow is the JSON shape of one molecule's formulas.
type FormulaRow struct {
	Index     int     `json:"index"`
	Role      string  `json:"role"`
	Notation  string  `json:"notation"`
	Molecular string  `json:"molecular"`
	Empirical string  `json:"empirical"`
	Condensed string  `json:"condensed"`
	MolarMass float64 `json:"molar_mass"`
}

type formulaView struct {
	molecules []mtypes.MoleculeDTO
	kind      string
}

func (v formulaView) rows() []FormulaRow {
	rows := make([]FormulaRow, 0, len(v.molecules))
	for _, m := range v.molecules {
		rows = append(rows, FormulaRow{
			Index:     m.Index,
			Role:      m.Role,
			Notation:  m.Notation,
			Molecular: m.Formula,
			Empirical: m.EmpiricalFormula,
			Condensed: m.CondensedFormula,
			MolarMass: m.MolarMass,
		})
	}
	return rows
}

func (v formulaView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.rows())
}

// String prints one formula per line; reaction members are prefixed with
// their role.
func (v formulaView) String() string {
	var sb strings.Builder
	for _, r := range v.rows() {
		if r.Role != "generic" {
			fmt.Fprintf(&sb, "%s: ", r.Role)
		}
		switch v.kind {
		case "empirical":
			sb.WriteString(r.Empirical)
		case "condensed":
			sb.WriteString(r.Condensed)
		case "all":
			fmt.Fprintf(&sb, "%s  (empirical %s, condensed %s, %.3f g/mol)", r.Molecular, r.Empirical, r.Condensed, r.MolarMass)
		default:
			sb.WriteString(r.Molecular)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (v formulaView) TableHeaders() []string {
	return []string{"Index", "Role", "Notation", "Molecular", "Empirical", "Condensed", "Molar Mass"}
}

func (v formulaView) TableRows() [][]string {
	var out [][]string
	for _, r := range v.rows() {
		out = append(out, []string{
			strconv.Itoa(r.Index), r.Role, r.Notation, r.Molecular, r.Empirical, r.Condensed,
			fmt.Sprintf("%.3f", r.MolarMass),
		})
	}
	return out
}
