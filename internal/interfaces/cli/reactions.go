package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// NewReactionsCmd creates the reactions command, which lists the catalog.
func NewReactionsCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "reactions",
		Short: "List the reaction rules of the catalog",
		Example: `  molnote reactions
  molnote reactions --from alkene -o table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, ctx, cancel, err := commandSetup(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			rules := svc.Rules(ctx)
			if from != "" {
				rules = filterRules(rules, from)
			}
			return PrintResult(cmd, rulesView(rules))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "only rules starting from this group (id or repr)")
	return cmd
}

func filterRules(rules []mtypes.RuleDTO, from string) []mtypes.RuleDTO {
	id, idErr := strconv.Atoi(from)
	out := make([]mtypes.RuleDTO, 0, len(rules))
	for _, r := range rules {
		if (idErr == nil && r.From.ID == id) || strings.EqualFold(r.From.Repr, from) {
			out = append(out, r)
		}
	}
	return out
}

type rulesView []mtypes.RuleDTO

func (v rulesView) String() string {
	var sb strings.Builder
	for _, r := range v {
		fmt.Fprintf(&sb, "%3d  %s\n", r.ID, ruleSummary(r))
	}
	return sb.String()
}

func (v rulesView) TableHeaders() []string {
	return []string{"ID", "Name", "Type", "From", "To", "Partner", "Reagents", "Conditions", "Mutation"}
}

func (v rulesView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, r := range v {
		partner := ""
		if r.External != nil {
			partner = r.External.Repr
		}
		rows = append(rows, []string{
			strconv.Itoa(r.ID), r.Name, r.Type, r.From.Repr, r.To.Repr, partner, r.Reagents, r.Conditions, r.Mutation,
		})
	}
	return rows
}
