// Package analysis is the application service behind the CLI, the HTTP API
// and the worker. It parses notation, derives formulas, classifies
// functional groups and applies reaction rules, and wires in the optional
// cache, graph store and job queue.
package analysis

import (
	"context"
	stderrors "errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/turtacn/molnotation/internal/domain/formula"
	"github.com/turtacn/molnotation/internal/domain/molecule"
	"github.com/turtacn/molnotation/internal/domain/notation"
	"github.com/turtacn/molnotation/internal/domain/reaction"
	"github.com/turtacn/molnotation/internal/infrastructure/database/redis"
	"github.com/turtacn/molnotation/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molnotation/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molnotation/pkg/errors"
	"github.com/turtacn/molnotation/pkg/types/common"
	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

// Service defines the analysis operations.
type Service interface {
	Analyze(ctx context.Context, req *mtypes.AnalyzeRequest) (*mtypes.AnalysisDTO, error)
	React(ctx context.Context, req *mtypes.ReactRequest) (*mtypes.ReactionDTO, error)
	Rules(ctx context.Context) []mtypes.RuleDTO
	Groups(ctx context.Context) []mtypes.GroupDTO
	// FindByFormula lists stored notations with the given molecular formula.
	FindByFormula(ctx context.Context, formula string, limit int) ([]string, error)
	// Submit queues req for the worker pool and returns the job id.
	Submit(ctx context.Context, req *mtypes.AnalyzeRequest) (common.ID, error)
	Health(ctx context.Context) []common.ComponentHealth
	// UpdateDefaults replaces the defaults used by later calls.
	UpdateDefaults(d Defaults)
	Defaults() Defaults
}

// Defaults are the settings a request falls back to.
type Defaults struct {
	Parse        notation.Options
	Markup       formula.Markup
	ShowImplicit bool
	// MatchTimeout bounds classification; zero means no bound.
	MatchTimeout time.Duration
	Reaction     reaction.Options
}

// DefaultDefaults mirrors the built-in parser and reaction defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Parse:        notation.DefaultOptions(),
		Markup:       formula.Plain,
		MatchTimeout: 2 * time.Second,
		Reaction:     reaction.DefaultOptions(),
	}
}

// Cache is the part of redis.AnalysisCache the service uses.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, dest interface{}, compute func(ctx context.Context) (interface{}, error)) (bool, error)
	Ping(ctx context.Context) error
}

// GraphStore is the part of neo4j.GraphStore the service uses.
type GraphStore interface {
	SaveAnalysis(ctx context.Context, a *mtypes.AnalysisDTO) error
	FindByFormula(ctx context.Context, formula string, limit int) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// JobPublisher is the part of kafka.Producer the service uses.
type JobPublisher interface {
	PublishJSON(ctx context.Context, topic, key string, v interface{}) error
}

// Recorder receives engine measurements; prometheus.EngineMetrics
// implements it.
type Recorder interface {
	RecordParse(d time.Duration, atoms int, err error)
	RecordMatch(d time.Duration)
	RecordReaction(rule int, d time.Duration, truncated bool, err error)
}

// Deps are the collaborators of the service. Only Engine is required.
type Deps struct {
	Engine   *reaction.Engine
	Cache    Cache
	Graph    GraphStore
	Jobs     JobPublisher
	Recorder Recorder
	Logger   logging.Logger
	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() common.ID
}

type serviceImpl struct {
	deps     Deps
	defaults atomic.Pointer[Defaults]
	logger   logging.Logger
}

// NewService creates the analysis service.
func NewService(deps Deps, defaults Defaults) Service {
	if deps.Engine == nil {
		deps.Engine = reaction.NewEngine(nil)
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = common.NewID
	}
	s := &serviceImpl{deps: deps, logger: deps.Logger.Named("analysis")}
	s.defaults.Store(&defaults)
	return s
}

func (s *serviceImpl) UpdateDefaults(d Defaults) {
	s.defaults.Store(&d)
	s.logger.Info("defaults updated",
		logging.String("markup", d.Markup.String()),
		logging.Bool("show_implicit", d.ShowImplicit),
		logging.Duration("match_timeout", d.MatchTimeout))
}

func (s *serviceImpl) Defaults() Defaults {
	return *s.defaults.Load()
}

// analysisKey holds every input that changes an analysis.
type analysisKey struct {
	Options      notation.Options `json:"options"`
	Markup       string           `json:"markup"`
	ShowImplicit bool             `json:"show_implicit"`
	Groups       bool             `json:"groups"`
}

func (s *serviceImpl) Analyze(ctx context.Context, req *mtypes.AnalyzeRequest) (*mtypes.AnalysisDTO, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if strings.TrimSpace(req.Notation) == "" {
		return nil, errors.New(errors.ErrCodeNotationEmpty, "notation is required")
	}
	if err := req.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}

	d := s.Defaults()
	opts := mergeOptions(d.Parse, req.Options)
	markup, err := resolveMarkup(d.Markup, req.Markup)
	if err != nil {
		return nil, err
	}
	showImplicit := req.ShowImplicit || d.ShowImplicit

	compute := func(ctx context.Context) (interface{}, error) {
		return s.analyze(ctx, req.Notation, opts, markup, showImplicit, req.Groups, d.MatchTimeout)
	}

	if s.deps.Cache == nil {
		out, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		dto := out.(*mtypes.AnalysisDTO)
		s.export(ctx, dto)
		return dto, nil
	}

	key := redis.Key("analysis", req.Notation, analysisKey{
		Options:      opts,
		Markup:       markup.String(),
		ShowImplicit: showImplicit,
		Groups:       req.Groups,
	})
	var dto mtypes.AnalysisDTO
	hit, err := s.deps.Cache.GetOrCompute(ctx, key, &dto, compute)
	if err != nil {
		return nil, err
	}
	dto.Cached = hit
	if !hit {
		s.export(ctx, &dto)
	}
	return &dto, nil
}

func (s *serviceImpl) analyze(ctx context.Context, text string, opts notation.Options, markup formula.Markup, showImplicit, groups bool, matchTimeout time.Duration) (*mtypes.AnalysisDTO, error) {
	res, err := s.parse(text, opts)
	if err != nil {
		return nil, err
	}

	dto := &mtypes.AnalysisDTO{
		ID:        s.deps.NewID(),
		Notation:  text,
		Canonical: res.Generate(showImplicit),
		Reaction:  res.IsReaction(),
		Markup:    markup.String(),
		Molecules: make([]mtypes.MoleculeDTO, 0, len(res.Molecules)),
		CreatedAt: common.Timestamp(s.deps.Now().UTC()),
	}
	for i, m := range res.Molecules {
		dto.Molecules = append(dto.Molecules, moleculeDTO(i, m, markup, showImplicit))
	}
	if groups {
		if err := s.classifyAll(ctx, res.Molecules, dto.Molecules, matchTimeout); err != nil {
			return nil, err
		}
	}
	return dto, nil
}

// parse runs the parser and wraps a ParseError into an AppError carrying the
// notation code, keeping the ParseError reachable through errors.As.
func (s *serviceImpl) parse(text string, opts notation.Options) (*notation.ParseResult, error) {
	start := time.Now()
	res, err := notation.NewParser(opts).Parse(text)
	atoms := 0
	if res != nil {
		atoms = res.AtomCount()
	}
	s.deps.Recorder.RecordParse(time.Since(start), atoms, err)
	if err != nil {
		if pe, ok := errors.AsParseError(err); ok {
			s.logger.Debug("parse failed", logging.Notation(text), logging.Int("offset", pe.Offset), logging.Err(err))
			return nil, errors.Wrap(pe, pe.Code(), pe.Message)
		}
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "parse failed")
	}
	return res, nil
}

func (s *serviceImpl) classifyAll(ctx context.Context, mols []*molecule.Molecule, out []mtypes.MoleculeDTO, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cat := s.deps.Engine.Catalog()
	start := time.Now()
	defer func() { s.deps.Recorder.RecordMatch(time.Since(start)) }()

	for i, m := range mols {
		matches, err := cat.Classify(ctx, m)
		if err != nil {
			if errors.IsCode(err, errors.ErrCodeMatchTimeout) {
				return err
			}
			if stderrors.Is(err, context.DeadlineExceeded) {
				return errors.Wrap(err, errors.ErrCodeMatchTimeout, "functional group classification timed out")
			}
			return errors.Wrap(err, errors.ErrCodeInternal, "functional group classification failed")
		}
		out[i].Groups = groupDTOs(matches)
	}
	return nil
}

// export writes a fresh analysis to the graph store. A failed export is
// logged and does not fail the request.
func (s *serviceImpl) export(ctx context.Context, dto *mtypes.AnalysisDTO) {
	if s.deps.Graph == nil {
		return
	}
	if err := s.deps.Graph.SaveAnalysis(ctx, dto); err != nil {
		s.logger.Warn("graph export failed", logging.String("analysis_id", string(dto.ID)), logging.Err(err))
	}
}

func (s *serviceImpl) React(ctx context.Context, req *mtypes.ReactRequest) (*mtypes.ReactionDTO, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}
	d := s.Defaults()
	opts := mergeOptions(d.Parse, req.Options)
	markup, err := resolveMarkup(d.Markup, req.Markup)
	if err != nil {
		return nil, err
	}

	reactant, err := s.single(req.Notation, opts, "reactant")
	if err != nil {
		return nil, err
	}
	var partner *molecule.Molecule
	if req.Partner != "" {
		if partner, err = s.single(req.Partner, opts, "partner"); err != nil {
			return nil, err
		}
	}

	ropts := d.Reaction
	if req.Halogen != "" {
		ropts.Halogen = req.Halogen
	}
	ropts.AddHydrogens = ropts.AddHydrogens || req.AddHydrogens

	start := time.Now()
	outcome, err := s.deps.Engine.React(ctx, reactant, req.Rule, ropts, partner)
	truncated := outcome != nil && outcome.Truncated
	s.deps.Recorder.RecordReaction(req.Rule, time.Since(start), truncated, err)
	if err != nil {
		s.logger.Debug("reaction failed", logging.Int("rule", req.Rule), logging.Notation(req.Notation), logging.Err(err))
		return nil, err
	}
	if outcome.Truncated {
		s.logger.Warn("reaction stopped at application limit",
			logging.Int("rule", req.Rule), logging.Int("applied", outcome.Applied))
	}

	out := &mtypes.ReactionDTO{
		Rule:      ruleDTO(s.deps.Engine.Catalog(), outcome.Rule),
		Reactant:  notation.Generate(reactant, false),
		Products:  make([]mtypes.MoleculeDTO, 0, len(outcome.Products)),
		Applied:   outcome.Applied,
		Truncated: outcome.Truncated,
	}
	left := []string{out.Reactant}
	if partner != nil && outcome.Rule.External != 0 {
		out.Partner = notation.Generate(partner, false)
		left = append(left, out.Partner)
	}
	right := make([]string, 0, len(outcome.Products))
	for i, p := range outcome.Products {
		p.Role = molecule.RoleProduct
		dto := moleculeDTO(i, p, markup, false)
		out.Products = append(out.Products, dto)
		right = append(right, dto.Notation)
	}
	out.Equation = strings.Join(left, ".") + ">>" + strings.Join(right, ".")
	return out, nil
}

// single parses text that must hold exactly one molecule.
func (s *serviceImpl) single(text string, opts notation.Options, what string) (*molecule.Molecule, error) {
	res, err := s.parse(text, opts)
	if err != nil {
		return nil, err
	}
	if res.IsReaction() || len(res.Molecules) != 1 {
		return nil, errors.InvalidParam(what + " must be a single molecule")
	}
	return res.Molecules[0], nil
}

func (s *serviceImpl) Rules(ctx context.Context) []mtypes.RuleDTO {
	cat := s.deps.Engine.Catalog()
	rules := cat.Rules()
	out := make([]mtypes.RuleDTO, 0, len(rules))
	for _, r := range rules {
		out = append(out, ruleDTO(cat, r))
	}
	return out
}

func (s *serviceImpl) Groups(ctx context.Context) []mtypes.GroupDTO {
	groups := s.deps.Engine.Catalog().Groups()
	out := make([]mtypes.GroupDTO, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupDTO(g, 0))
	}
	return out
}

func (s *serviceImpl) FindByFormula(ctx context.Context, f string, limit int) ([]string, error) {
	if s.deps.Graph == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "graph store is not configured")
	}
	if strings.TrimSpace(f) == "" {
		return nil, errors.InvalidParam("formula is required")
	}
	return s.deps.Graph.FindByFormula(ctx, f, limit)
}

func (s *serviceImpl) Submit(ctx context.Context, req *mtypes.AnalyzeRequest) (common.ID, error) {
	if s.deps.Jobs == nil {
		return "", errors.New(errors.ErrCodeFeatureDisabled, "job queue is not configured")
	}
	if req == nil {
		return "", errors.InvalidParam("request is required")
	}
	if err := req.Validate(); err != nil {
		return "", errors.InvalidParam(err.Error())
	}
	job := mtypes.AnalysisJob{
		JobID:       s.deps.NewID(),
		Request:     *req,
		RequestedAt: common.Timestamp(s.deps.Now().UTC()),
		Attempt:     1,
	}
	if err := s.deps.Jobs.PublishJSON(ctx, kafka.TopicAnalysisRequested, string(job.JobID), job); err != nil {
		return "", err
	}
	s.logger.Info("analysis job submitted", logging.String("job_id", string(job.JobID)))
	return job.JobID, nil
}

func (s *serviceImpl) Health(ctx context.Context) []common.ComponentHealth {
	return []common.ComponentHealth{
		s.check(ctx, "cache", s.deps.Cache != nil, func(ctx context.Context) error { return s.deps.Cache.Ping(ctx) }),
		s.check(ctx, "graph", s.deps.Graph != nil, func(ctx context.Context) error { return s.deps.Graph.HealthCheck(ctx) }),
		{Name: "jobs", Status: enabledStatus(s.deps.Jobs != nil)},
	}
}

func (s *serviceImpl) check(ctx context.Context, name string, enabled bool, probe func(context.Context) error) common.ComponentHealth {
	h := common.ComponentHealth{Name: name, Status: common.HealthDisabled}
	if !enabled {
		return h
	}
	start := time.Now()
	err := probe(ctx)
	h.Latency = time.Since(start)
	if err != nil {
		h.Status = common.HealthDown
		h.Message = err.Error()
		return h
	}
	h.Status = common.HealthUp
	return h
}

func enabledStatus(enabled bool) common.HealthStatus {
	if enabled {
		return common.HealthUp
	}
	return common.HealthDisabled
}

// resolveMarkup returns the markup named by raw, or def when raw is empty.
func resolveMarkup(def formula.Markup, raw string) (formula.Markup, error) {
	if raw == "" {
		return def, nil
	}
	m, err := formula.ParseMarkup(raw)
	if err != nil {
		return def, errors.InvalidParam(err.Error())
	}
	return m, nil
}

// mergeOptions overlays the non-nil fields of o on base.
func mergeOptions(base notation.Options, o *mtypes.ParseOptions) notation.Options {
	if o == nil {
		return base
	}
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&base.Inorganic, o.Inorganic)
	set(&base.Charges, o.Charges)
	set(&base.Branches, o.Branches)
	set(&base.Rings, o.Rings)
	set(&base.Aromaticity, o.Aromaticity)
	set(&base.Disconnection, o.Disconnection)
	set(&base.Reactions, o.Reactions)
	set(&base.MultipleReactions, o.MultipleReactions)
	set(&base.CumulativeCharge, o.CumulativeCharge)
	set(&base.ImplicitHydrogens, o.ImplicitHydrogens)
	set(&base.CheckValence, o.CheckValence)
	return base
}

type nopRecorder struct{}

func (nopRecorder) RecordParse(time.Duration, int, error)          {}
func (nopRecorder) RecordMatch(time.Duration)                      {}
func (nopRecorder) RecordReaction(int, time.Duration, bool, error) {}
