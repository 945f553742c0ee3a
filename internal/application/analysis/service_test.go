package analysis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molnotation/internal/domain/formula"
	"github.com/turtacn/molnotation/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molnotation/internal/testutil"
	pkgerrors "github.com/turtacn/molnotation/pkg/errors"
	"github.com/turtacn/molnotation/pkg/types/common"
	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type memoryCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	pingErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) GetOrCompute(ctx context.Context, key string, dest interface{}, compute func(ctx context.Context) (interface{}, error)) (bool, error) {
	c.mu.Lock()
	raw, ok := c.data[key]
	c.mu.Unlock()
	if ok {
		return true, json.Unmarshal(raw, dest)
	}
	v, err := compute(ctx)
	if err != nil {
		return false, err
	}
	raw, err = json.Marshal(v)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.data[key] = raw
	c.mu.Unlock()
	return false, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Ping(ctx context.Context) error { return c.pingErr }

type mockGraph struct{ mock.Mock }

func (m *mockGraph) SaveAnalysis(ctx context.Context, a *mtypes.AnalysisDTO) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockGraph) FindByFormula(ctx context.Context, f string, limit int) ([]string, error) {
	args := m.Called(ctx, f, limit)
	out, _ := args.Get(0).([]string)
	return out, args.Error(1)
}

func (m *mockGraph) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishJSON(ctx context.Context, topic, key string, v interface{}) error {
	return m.Called(ctx, topic, key, v).Error(0)
}

type recorder struct {
	mu        sync.Mutex
	parses    int
	parseErrs int
	matches   int
	reactions []int
	jobs      []string
}

func (r *recorder) RecordParse(d time.Duration, atoms int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parses++
	if err != nil {
		r.parseErrs++
	}
}

func (r *recorder) RecordMatch(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches++
}

func (r *recorder) RecordReaction(rule int, d time.Duration, truncated bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reactions = append(r.reactions, rule)
}

func (r *recorder) RecordJob(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, status)
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, deps Deps) Service {
	t.Helper()
	deps.Now = func() time.Time { return fixedNow }
	n := 0
	deps.NewID = func() common.ID {
		n++
		return common.ID("id-" + string(rune('0'+n)))
	}
	return NewService(deps, DefaultDefaults())
}

func boolPtr(b bool) *bool { return &b }

// ─────────────────────────────────────────────────────────────────────────────
// Analyze
// ─────────────────────────────────────────────────────────────────────────────

func TestAnalyze_Ethanol(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, Deps{Recorder: rec})

	out, err := svc.Analyze(context.Background(), &mtypes.AnalyzeRequest{Notation: "CCO"})
	require.NoError(t, err)

	assert.Equal(t, common.ID("id-1"), out.ID)
	assert.Equal(t, "CCO", out.Notation)
	assert.Equal(t, "CCO", out.Canonical)
	assert.False(t, out.Reaction)
	assert.Equal(t, "plain", out.Markup)
	assert.False(t, out.Cached)
	assert.Equal(t, common.Timestamp(fixedNow), out.CreatedAt)

	require.Len(t, out.Molecules, 1)
	m := out.Molecules[0]
	assert.Equal(t, "generic", m.Role)
	assert.Equal(t, "CCO", m.Notation)
	assert.Equal(t, "C2H6O", m.Formula)
	assert.Equal(t, "C2H6O", m.EmpiricalFormula)
	assert.InDelta(t, 46.07, m.MolarMass, 0.01)
	require.Len(t, m.Atoms, 3)
	assert.Equal(t, []string{"C", "C", "O"}, []string{m.Atoms[0].Label, m.Atoms[1].Label, m.Atoms[2].Label})
	assert.Empty(t, m.Groups)

	assert.Equal(t, 1, rec.parses)
	assert.Zero(t, rec.matches)
}

func TestAnalyze_ReactionRoles(t *testing.T) {
	svc := newTestService(t, Deps{})

	out, err := svc.Analyze(context.Background(), &mtypes.AnalyzeRequest{Notation: "C=C.O>>CCO"})
	require.NoError(t, err)

	assert.True(t, out.Reaction)
	require.Len(t, out.Molecules, 3)
	assert.Equal(t, "reactant", out.Molecules[0].Role)
	assert.Equal(t, "reactant", out.Molecules[1].Role)
	assert.Equal(t, "product", out.Molecules[2].Role)
}

func TestAnalyze_Groups(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, Deps{Recorder: rec})

	out, err := svc.Analyze(context.Background(), &mtypes.AnalyzeRequest{Notation: "OCCO", Groups: true})
	require.NoError(t, err)
	require.Len(t, out.Molecules, 1)

	occurrences := map[string]int{}
	for _, g := range out.Molecules[0].Groups {
		occurrences[g.Repr] = g.Occurrences
	}
	assert.Equal(t, 2, occurrences["1-alcohol"])
	assert.Equal(t, 2, occurrences["alcohol"])
	assert.Equal(t, 1, rec.matches)
}

func TestAnalyze_MarkupAndImplicit(t *testing.T) {
	svc := newTestService(t, Deps{})

	out, err := svc.Analyze(context.Background(), &mtypes.AnalyzeRequest{Notation: "C", Markup: "Unicode", ShowImplicit: true})
	require.NoError(t, err)

	assert.Equal(t, "unicode", out.Markup)
	assert.Equal(t, "CH₄", out.Molecules[0].Formula)
	assert.Equal(t, "C([H])([H])([H])[H]", out.Canonical)
	assert.Len(t, out.Molecules[0].Atoms, 5)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  *mtypes.AnalyzeRequest
		code pkgerrors.ErrorCode
	}{
		{"nil request", nil, pkgerrors.ErrCodeBadRequest},
		{"blank notation", &mtypes.AnalyzeRequest{Notation: "  "}, pkgerrors.ErrCodeNotationEmpty},
		{"bad markup", &mtypes.AnalyzeRequest{Notation: "C", Markup: "latex"}, pkgerrors.ErrCodeBadRequest},
		{"syntax", &mtypes.AnalyzeRequest{Notation: "CC(C"}, pkgerrors.ErrCodeNotationSyntax},
		{"semantic", &mtypes.AnalyzeRequest{Notation: "C1CC"}, pkgerrors.ErrCodeNotationSemantic},
		{"rings disabled", &mtypes.AnalyzeRequest{Notation: "C1CC1", Options: &mtypes.ParseOptions{Rings: boolPtr(false)}}, pkgerrors.ErrCodeNotationSyntax},
	}
	svc := newTestService(t, Deps{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Analyze(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, pkgerrors.GetCode(err))
		})
	}
}

func TestAnalyze_ParseErrorStaysReachable(t *testing.T) {
	svc := newTestService(t, Deps{})

	_, err := svc.Analyze(context.Background(), &mtypes.AnalyzeRequest{Notation: "CC(C"})
	require.Error(t, err)

	pe, ok := pkgerrors.AsParseError(err)
	require.True(t, ok)
	assert.Equal(t, 2, pe.Offset)

	d := ErrorDetail(err)
	assert.Equal(t, string(pkgerrors.ErrCodeNotationSyntax), d.Code)
	assert.Equal(t, 2, d.Details["offset"])
	assert.Contains(t, d.Details["underline"], "CC(C\n  ^")
}

func TestAnalyze_MatchTimeout(t *testing.T) {
	svc := newTestService(t, Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, &mtypes.AnalyzeRequest{Notation: "CCO", Groups: true})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ErrCodeMatchTimeout, pkgerrors.GetCode(err))
}

func TestAnalyze_CacheAndExport(t *testing.T) {
	graph := &mockGraph{}
	graph.On("SaveAnalysis", mock.Anything, mock.AnythingOfType("*molecule.AnalysisDTO")).Return(nil).Once()
	svc := newTestService(t, Deps{Cache: newMemoryCache(), Graph: graph})
	req := &mtypes.AnalyzeRequest{Notation: "CCO"}

	first, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Molecules, second.Molecules)

	third, err := svc.Analyze(context.Background(), &mtypes.AnalyzeRequest{Notation: "CCO", Groups: true})
	require.NoError(t, err)
	assert.False(t, third.Cached, "different parameters must not share a cache entry")

	graph.AssertNumberOfCalls(t, "SaveAnalysis", 2)
}

func TestAnalyze_ExportFailureIsLogged(t *testing.T) {
	log := testutil.NewMockLogger()
	graph := &mockGraph{}
	graph.On("SaveAnalysis", mock.Anything, mock.Anything).Return(stderrors.New("neo4j down"))
	svc := newTestService(t, Deps{Graph: graph, Logger: log})

	out, err := svc.Analyze(context.Background(), &mtypes.AnalyzeRequest{Notation: "CC"})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.True(t, log.HasMessage("warn", "graph export failed"))
}

func TestUpdateDefaults(t *testing.T) {
	svc := newTestService(t, Deps{})
	d := svc.Defaults()
	d.Markup = formula.HTML
	d.Parse.Branches = false
	svc.UpdateDefaults(d)

	out, err := svc.Analyze(context.Background(), &mtypes.AnalyzeRequest{Notation: "CCO"})
	require.NoError(t, err)
	assert.Equal(t, "html", out.Markup)
	assert.Equal(t, "C<sub>2</sub>H<sub>6</sub>O", out.Molecules[0].Formula)

	_, err = svc.Analyze(context.Background(), &mtypes.AnalyzeRequest{Notation: "CC(C)C"})
	assert.Error(t, err)

	_, err = svc.Analyze(context.Background(), &mtypes.AnalyzeRequest{
		Notation: "CC(C)C",
		Options:  &mtypes.ParseOptions{Branches: boolPtr(true)},
	})
	assert.NoError(t, err)
}

// ─────────────────────────────────────────────────────────────────────────────
// React
// ─────────────────────────────────────────────────────────────────────────────

func TestReact(t *testing.T) {
	rec := &recorder{}
	svc := newTestService(t, Deps{Recorder: rec})

	out, err := svc.React(context.Background(), &mtypes.ReactRequest{Notation: "C=C", Rule: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Rule.ID)
	assert.Equal(t, "alkene", out.Rule.From.Repr)
	assert.Equal(t, "alkane", out.Rule.To.Repr)
	assert.Equal(t, "C=C", out.Reactant)
	require.Len(t, out.Products, 1)
	assert.Equal(t, "C2H6", out.Products[0].Formula)
	assert.Equal(t, "product", out.Products[0].Role)
	assert.Equal(t, 1, out.Applied)
	assert.Equal(t, "C=C>>CC", out.Equation)
	assert.Equal(t, []int{1}, rec.reactions)
}

func TestReact_WithPartner(t *testing.T) {
	svc := newTestService(t, Deps{})

	out, err := svc.React(context.Background(), &mtypes.ReactRequest{Notation: "CC(=O)O", Partner: "CO", Rule: 19})
	require.NoError(t, err)

	assert.Equal(t, "CO", out.Partner)
	require.NotNil(t, out.Rule.External)
	require.Len(t, out.Products, 1)
	assert.Equal(t, "C3H6O2", out.Products[0].Formula)
	assert.Contains(t, out.Equation, "CC(=O)O.CO>>")
}

func TestReact_Halogen(t *testing.T) {
	svc := newTestService(t, Deps{})

	out, err := svc.React(context.Background(), &mtypes.ReactRequest{Notation: "C=C", Rule: 3, Halogen: "Cl"})
	require.NoError(t, err)
	assert.Equal(t, "C2H4Cl2", out.Products[0].Formula)
}

func TestReact_Errors(t *testing.T) {
	tests := []struct {
		name string
		req  *mtypes.ReactRequest
		code pkgerrors.ErrorCode
	}{
		{"nil", nil, pkgerrors.ErrCodeBadRequest},
		{"zero rule", &mtypes.ReactRequest{Notation: "C=C"}, pkgerrors.ErrCodeBadRequest},
		{"two molecules", &mtypes.ReactRequest{Notation: "C=C.CC", Rule: 1}, pkgerrors.ErrCodeBadRequest},
		{"reaction text", &mtypes.ReactRequest{Notation: "C=C>>CC", Rule: 1}, pkgerrors.ErrCodeBadRequest},
		{"bad partner", &mtypes.ReactRequest{Notation: "CC(=O)O", Partner: "C(", Rule: 19}, pkgerrors.ErrCodeNotationSyntax},
		{"unknown rule", &mtypes.ReactRequest{Notation: "C=C", Rule: 999}, pkgerrors.ErrCodeReactionNotFound},
		{"bad markup", &mtypes.ReactRequest{Notation: "C=C", Rule: 1, Markup: "tex"}, pkgerrors.ErrCodeBadRequest},
	}
	svc := newTestService(t, Deps{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.React(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, pkgerrors.GetCode(err))
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Catalog listings
// ─────────────────────────────────────────────────────────────────────────────

func TestRulesAndGroups(t *testing.T) {
	svc := newTestService(t, Deps{})

	rules := svc.Rules(context.Background())
	require.NotEmpty(t, rules)
	assert.Equal(t, 1, rules[0].ID)
	for _, r := range rules {
		assert.NotEmpty(t, r.Name, "rule %d", r.ID)
		assert.NotEmpty(t, r.From.Repr, "rule %d", r.ID)
	}

	groups := svc.Groups(context.Background())
	require.NotEmpty(t, groups)
	var reprs []string
	for _, g := range groups {
		reprs = append(reprs, g.Repr)
		assert.Zero(t, g.Occurrences)
	}
	assert.Contains(t, reprs, "alkane")
	assert.Contains(t, reprs, "carboxylic-acid")
}

// ─────────────────────────────────────────────────────────────────────────────
// Graph lookup, job submission and health
// ─────────────────────────────────────────────────────────────────────────────

func TestFindByFormula(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		_, err := newTestService(t, Deps{}).FindByFormula(context.Background(), "C2H6O", 10)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeFeatureDisabled))
	})

	t.Run("blank formula", func(t *testing.T) {
		_, err := newTestService(t, Deps{Graph: &mockGraph{}}).FindByFormula(context.Background(), " ", 10)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeBadRequest))
	})

	t.Run("delegates", func(t *testing.T) {
		graph := &mockGraph{}
		graph.On("FindByFormula", mock.Anything, "C2H6O", 5).Return([]string{"CCO", "COC"}, nil)
		got, err := newTestService(t, Deps{Graph: graph}).FindByFormula(context.Background(), "C2H6O", 5)
		require.NoError(t, err)
		assert.Equal(t, []string{"CCO", "COC"}, got)
		graph.AssertExpectations(t)
	})
}

func TestSubmit(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		_, err := newTestService(t, Deps{}).Submit(context.Background(), &mtypes.AnalyzeRequest{Notation: "C"})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeFeatureDisabled))
	})

	t.Run("invalid request", func(t *testing.T) {
		_, err := newTestService(t, Deps{Jobs: &mockPublisher{}}).Submit(context.Background(), &mtypes.AnalyzeRequest{})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeBadRequest))
	})

	t.Run("publishes job", func(t *testing.T) {
		pub := &mockPublisher{}
		pub.On("PublishJSON", mock.Anything, kafka.TopicAnalysisRequested, "id-1", mock.MatchedBy(func(v interface{}) bool {
			job, ok := v.(mtypes.AnalysisJob)
			return ok && job.Request.Notation == "CCO" && job.Attempt == 1 && job.JobID == "id-1"
		})).Return(nil)

		id, err := newTestService(t, Deps{Jobs: pub}).Submit(context.Background(), &mtypes.AnalyzeRequest{Notation: "CCO"})
		require.NoError(t, err)
		assert.Equal(t, common.ID("id-1"), id)
		pub.AssertExpectations(t)
	})

	t.Run("publish failure", func(t *testing.T) {
		pub := &mockPublisher{}
		pub.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(pkgerrors.New(pkgerrors.ErrCodeMessagingError, "broker unavailable"))
		_, err := newTestService(t, Deps{Jobs: pub}).Submit(context.Background(), &mtypes.AnalyzeRequest{Notation: "CCO"})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeMessagingError))
	})
}

func TestHealth(t *testing.T) {
	t.Run("nothing configured", func(t *testing.T) {
		for _, h := range newTestService(t, Deps{}).Health(context.Background()) {
			assert.Equal(t, common.HealthDisabled, h.Status, h.Name)
		}
	})

	t.Run("mixed", func(t *testing.T) {
		cache := newMemoryCache()
		graph := &mockGraph{}
		graph.On("HealthCheck", mock.Anything).Return(stderrors.New("unreachable"))
		got := newTestService(t, Deps{Cache: cache, Graph: graph, Jobs: &mockPublisher{}}).Health(context.Background())

		byName := map[string]common.ComponentHealth{}
		for _, h := range got {
			byName[h.Name] = h
		}
		assert.Equal(t, common.HealthUp, byName["cache"].Status)
		assert.Equal(t, common.HealthDown, byName["graph"].Status)
		assert.Equal(t, "unreachable", byName["graph"].Message)
		assert.Equal(t, common.HealthUp, byName["jobs"].Status)
	})
}

func TestMergeOptions(t *testing.T) {
	base := DefaultDefaults().Parse
	assert.Equal(t, base, mergeOptions(base, nil))

	got := mergeOptions(base, &mtypes.ParseOptions{Rings: boolPtr(false), CheckValence: boolPtr(!base.CheckValence)})
	assert.False(t, got.Rings)
	assert.Equal(t, !base.CheckValence, got.CheckValence)
	assert.Equal(t, base.Branches, got.Branches)
}

func TestResolveMarkup(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    formula.Markup
		wantErr bool
	}{
		{"empty keeps the default", "", formula.HTML, false},
		{"named", "unicode", formula.Unicode, false},
		{"case folded", "PLAIN", formula.Plain, false},
		{"unknown", "latex", formula.HTML, true},
		{"padded", " html ", formula.HTML, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveMarkup(formula.HTML, tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, pkgerrors.ErrCodeBadRequest, pkgerrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
