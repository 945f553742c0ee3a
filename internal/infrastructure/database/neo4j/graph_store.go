package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/turtacn/molnotation/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molnotation/pkg/errors"
	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// GraphStore persists analysed molecules. Molecules are keyed by their
// canonical notation so that saving the same molecule twice is a no-op.
type GraphStore interface {
	SaveAnalysis(ctx context.Context, a *mtypes.AnalysisDTO) error
	// FindByFormula returns the canonical notations stored under a
	// molecular formula, at most limit of them.
	FindByFormula(ctx context.Context, formula string, limit int) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// executor is the part of *Driver the store needs.
type executor interface {
	ExecuteRead(ctx context.Context, work TransactionWork) (any, error)
	ExecuteWrite(ctx context.Context, work TransactionWork) (any, error)
	HealthCheck(ctx context.Context) error
}

// Atoms are keyed by their index within the molecule, in ascending atom id
// order, and are written only when the molecule node is first created.
const (
	mergeMoleculeCypher = `
MERGE (m:Molecule {notation: $notation})
  ON CREATE SET m.created_at = datetime(), m.fresh = true
  ON MATCH SET m.fresh = false
SET m.formula = $formula,
    m.empirical_formula = $empirical,
    m.molar_mass = $molar_mass,
    m.groups = $groups
RETURN m.fresh AS fresh`

	createAtomsCypher = `
MATCH (m:Molecule {notation: $notation})
UNWIND $atoms AS atom
CREATE (m)-[:HAS_ATOM]->(:Atom {molecule: $notation, index: atom.index, label: atom.label,
  charge: atom.charge, aromatic: atom.aromatic, implicit: atom.implicit})`

	createBondsCypher = `
UNWIND $bonds AS bond
MATCH (a:Atom {molecule: $notation, index: bond.from})
MATCH (b:Atom {molecule: $notation, index: bond.to})
CREATE (a)-[:BOND {order: bond.order}]->(b)`

	mergeAnalysisCypher = `
MERGE (x:Analysis {id: $id})
SET x.notation = $notation, x.reaction = $reaction
WITH x
UNWIND $members AS member
MATCH (m:Molecule {notation: member.notation})
MERGE (x)-[r:CONTAINS {index: member.index}]->(m)
SET r.role = member.role`

	findByFormulaCypher = `
MATCH (m:Molecule {formula: $formula})
RETURN m.notation AS notation
ORDER BY notation
LIMIT $limit`
)

type graphStore struct {
	exec   executor
	logger logging.Logger
}

// NewGraphStore builds a store over d.
func NewGraphStore(d *Driver, log logging.Logger) GraphStore {
	return newGraphStore(d, log)
}

func newGraphStore(exec executor, log logging.Logger) *graphStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &graphStore{exec: exec, logger: log.Named("graph")}
}

// SaveAnalysis writes every molecule of a, then links them to an Analysis
// node, in one write transaction.
func (s *graphStore) SaveAnalysis(ctx context.Context, a *mtypes.AnalysisDTO) error {
	if a == nil || len(a.Molecules) == 0 {
		return errors.InvalidParam("analysis has no molecules")
	}
	_, err := s.exec.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
		members := make([]map[string]any, 0, len(a.Molecules))
		for _, m := range a.Molecules {
			if err := saveMolecule(ctx, tx, m); err != nil {
				return nil, err
			}
			members = append(members, map[string]any{"notation": m.Notation, "index": m.Index, "role": m.Role})
		}
		return nil, runConsumed(ctx, tx, mergeAnalysisCypher, map[string]any{
			"id":       string(a.ID),
			"notation": a.Notation,
			"reaction": a.Reaction,
			"members":  members,
		})
	})
	if err != nil {
		return err
	}
	s.logger.Debug("analysis saved", logging.String("analysis_id", string(a.ID)), logging.Int("molecules", len(a.Molecules)))
	return nil
}

func (s *graphStore) FindByFormula(ctx context.Context, formula string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	out, err := s.exec.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		res, err := tx.Run(ctx, findByFormulaCypher, map[string]any{"formula": formula, "limit": limit})
		if err != nil {
			return nil, err
		}
		return CollectRecords(ctx, res, func(r *neo4j.Record) (string, error) {
			v, _, err := neo4j.GetRecordValue[string](r, "notation")
			return v, err
		})
	})
	if err != nil {
		return nil, err
	}
	notations, _ := out.([]string)
	return notations, nil
}

func (s *graphStore) HealthCheck(ctx context.Context) error {
	return s.exec.HealthCheck(ctx)
}

func runConsumed(ctx context.Context, tx Transaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	for res.Next(ctx) {
	}
	return res.Err()
}

func saveMolecule(ctx context.Context, tx Transaction, m mtypes.MoleculeDTO) error {
	res, err := tx.Run(ctx, mergeMoleculeCypher, moleculeParams(m))
	if err != nil {
		return err
	}
	fresh := false
	if res.Next(ctx) {
		fresh, _, _ = neo4j.GetRecordValue[bool](res.Record(), "fresh")
	}
	if err := res.Err(); err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	index := make(map[int]int, len(m.Atoms))
	for i, a := range m.Atoms {
		index[a.ID] = i
	}
	if err := runConsumed(ctx, tx, createAtomsCypher, map[string]any{
		"notation": m.Notation,
		"atoms":    atomParams(m, index),
	}); err != nil {
		return err
	}
	bonds := bondParams(m, index)
	if len(bonds) == 0 {
		return nil
	}
	return runConsumed(ctx, tx, createBondsCypher, map[string]any{"notation": m.Notation, "bonds": bonds})
}

func moleculeParams(m mtypes.MoleculeDTO) map[string]any {
	groups := make([]string, 0, len(m.Groups))
	for _, g := range m.Groups {
		groups = append(groups, g.Repr)
	}
	return map[string]any{
		"notation":   m.Notation,
		"formula":    m.Formula,
		"empirical":  m.EmpiricalFormula,
		"molar_mass": m.MolarMass,
		"groups":     groups,
	}
}

func atomParams(m mtypes.MoleculeDTO, index map[int]int) []map[string]any {
	atoms := make([]map[string]any, 0, len(m.Atoms))
	for _, a := range m.Atoms {
		atoms = append(atoms, map[string]any{
			"index":    index[a.ID],
			"label":    a.Label,
			"charge":   a.Charge,
			"aromatic": a.Aromatic,
			"implicit": a.Implicit,
		})
	}
	return atoms
}

func bondParams(m mtypes.MoleculeDTO, index map[int]int) []map[string]any {
	var bonds []map[string]any
	for _, a := range m.Atoms {
		for _, b := range a.Bonds {
			to, ok := index[b.To]
			if !ok {
				continue
			}
			bonds = append(bonds, map[string]any{"from": index[a.ID], "to": to, "order": b.Order})
		}
	}
	return bonds
}
