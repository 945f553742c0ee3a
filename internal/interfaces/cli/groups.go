package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// NewGroupsCmd creates the groups command. Without an argument it lists
// the catalog's functional groups.
func NewGroupsCmd() *cobra.Command {
	flags := &notationFlags{}

	cmd := &cobra.Command{
		Use:   "groups [notation]",
		Short: "Classify the functional groups of a molecule, or list all groups",
		Example: `  molnote groups
  molnote groups OCCO
  molnote groups "CC(=O)OC" -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, svc, ctx, cancel, err := commandSetup(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			if len(args) == 0 {
				return PrintResult(cmd, catalogGroupsView(svc.Groups(ctx)))
			}
			req, err := flags.analyzeRequest(args[0], true)
			if err != nil {
				return err
			}
			out, err := svc.Analyze(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, matchedGroupsView(out.Molecules))
		},
	}
	flags.register(cmd)
	return cmd
}

type catalogGroupsView []mtypes.GroupDTO

func (v catalogGroupsView) String() string {
	var sb strings.Builder
	for _, g := range v {
		fmt.Fprintf(&sb, "%3d  %-20s %s\n", g.ID, g.Repr, g.Name)
	}
	return sb.String()
}

func (v catalogGroupsView) TableHeaders() []string { return []string{"ID", "Repr", "Name"} }

func (v catalogGroupsView) TableRows() [][]string {
	rows := make([][]string, 0, len(v))
	for _, g := range v {
		rows = append(rows, []string{strconv.Itoa(g.ID), g.Repr, g.Name})
	}
	return rows
}

type matchedGroupsView []mtypes.MoleculeDTO

// GroupMatchRow is the JSON shape of the groups found in one molecule.
type GroupMatchRow struct {
	Index    int               `json:"index"`
	Notation string            `json:"notation"`
	Groups   []mtypes.GroupDTO `json:"groups"`
}

func (v matchedGroupsView) MarshalJSON() ([]byte, error) {
	rows := make([]GroupMatchRow, 0, len(v))
	for _, m := range v {
		groups := m.Groups
		if groups == nil {
			groups = []mtypes.GroupDTO{}
		}
		rows = append(rows, GroupMatchRow{Index: m.Index, Notation: m.Notation, Groups: groups})
	}
	return json.Marshal(rows)
}

func (v matchedGroupsView) String() string {
	var sb strings.Builder
	for _, m := range v {
		if len(v) > 1 {
			fmt.Fprintf(&sb, "[%d] %s\n", m.Index, m.Notation)
		}
		if len(m.Groups) == 0 {
			sb.WriteString("  no functional groups\n")
			continue
		}
		for _, g := range m.Groups {
			fmt.Fprintf(&sb, "  %-20s %-24s x%d\n", g.Repr, g.Name, g.Occurrences)
		}
	}
	return sb.String()
}

func (v matchedGroupsView) TableHeaders() []string {
	return []string{"Molecule", "Notation", "ID", "Repr", "Name", "Occurrences"}
}

func (v matchedGroupsView) TableRows() [][]string {
	var rows [][]string
	for _, m := range v {
		for _, g := range m.Groups {
			rows = append(rows, []string{
				strconv.Itoa(m.Index), m.Notation, strconv.Itoa(g.ID), g.Repr, g.Name, strconv.Itoa(g.Occurrences),
			})
		}
	}
	return rows
}
