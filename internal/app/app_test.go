package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molnotation/internal/config"
	"github.com/turtacn/molnotation/internal/domain/formula"
	"github.com/turtacn/molnotation/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molnotation/internal/testutil"
	"github.com/turtacn/molnotation/pkg/types/common"
	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

const twoRuleCatalog = `
groups:
  - id: 1
    repr: alkene
    name: Alkene
    pattern: {atom: C, capture: c, bonded: [{atom: C, bond: "=", capture: c2}]}
  - id: 2
    repr: alkane
    name: Alkane
    pattern: {atom: C, bonded: [{atom: C, bond: "-"}]}
reactions:
  - {id: 1, name: Hydrogenation, from: 1, to: 2, mutation: hydrogenate}
  - {id: 2, name: Polymerisation, from: 1, to: 2}
`

const oneRuleCatalog = `
groups:
  - id: 1
    repr: alkene
    name: Alkene
    pattern: {atom: C, capture: c, bonded: [{atom: C, bond: "=", capture: c2}]}
  - id: 2
    repr: alkane
    name: Alkane
    pattern: {atom: C, bonded: [{atom: C, bond: "-"}]}
reactions:
  - {id: 1, name: Hydrogenation, from: 1, to: 2, mutation: hydrogenate}
`

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(context.Background(), config.NewDefaultConfig(), WithLogger(testutil.NewMockLogger()))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Neo4j)
	assert.Nil(t, a.Producer)
	assert.Len(t, a.Registry.Current().Rules(), 29)

	out, err := a.Service.Analyze(context.Background(), &mtypes.AnalyzeRequest{Notation: "CC(=O)O"})
	require.NoError(t, err)
	assert.Equal(t, "C2H4O2", out.Molecules[0].Formula)

	for _, h := range a.Service.Health(context.Background()) {
		assert.Equal(t, common.HealthDisabled, h.Status, h.Name)
	}
	a.Close()
}

func TestNew_OfflineIgnoresInfrastructure(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Kafka.Enabled = true

	a, err := New(context.Background(), cfg, WithLogger(testutil.NewMockLogger()), Offline())
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Producer)
}

func TestNew_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.NewDefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	a, err := New(context.Background(), cfg, WithLogger(testutil.NewMockLogger()))
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Cache)
	require.NotNil(t, a.Claims)

	req := &mtypes.AnalyzeRequest{Notation: "CCO"}
	first, err := a.Service.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := a.Service.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.ID, second.ID)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "molnote:analysis:")
}

func TestNew_RedisUnavailable(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.DialTimeout = 100 * time.Millisecond

	_, err := New(context.Background(), cfg, WithLogger(testutil.NewMockLogger()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestNew_CatalogOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeFile(t, path, twoRuleCatalog)

	cfg := config.NewDefaultConfig()
	cfg.Catalog.Path = path
	a, err := New(context.Background(), cfg, WithLogger(testutil.NewMockLogger()))
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.Service.Rules(context.Background()), 2)
	assert.Len(t, a.Service.Groups(context.Background()), 2)
}

func TestNew_CatalogInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeFile(t, path, "groups: [")

	cfg := config.NewDefaultConfig()
	cfg.Catalog.Path = path
	_, err := New(context.Background(), cfg, WithLogger(testutil.NewMockLogger()))
	assert.Error(t, err)
}

func TestStart_WatchesCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeFile(t, path, twoRuleCatalog)

	cfg := config.NewDefaultConfig()
	cfg.Catalog.Path = path
	cfg.Catalog.Watch = true
	cfg.Catalog.Debounce = 20 * time.Millisecond
	log := testutil.NewMockLogger()

	a, err := New(context.Background(), cfg, WithLogger(log))
	require.NoError(t, err)
	defer a.Close()
	require.Len(t, a.Registry.Current().Rules(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)

	writeFile(t, path, oneRuleCatalog)
	assert.Eventually(t, func() bool {
		return len(a.Service.Rules(context.Background())) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, log.HasMessage("info", "catalog reloaded"))

	writeFile(t, path, "reactions: {")
	assert.Eventually(t, func() bool {
		return log.HasMessage("error", "catalog reload failed, keeping previous catalog")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Len(t, a.Service.Rules(context.Background()), 1)
}

func TestApplyConfig(t *testing.T) {
	a, err := New(context.Background(), config.NewDefaultConfig(), WithLogger(testutil.NewMockLogger()))
	require.NoError(t, err)
	defer a.Close()

	cfg := config.NewDefaultConfig()
	cfg.Render.Markup = "html"
	cfg.Engine.Halogen = "Cl"
	a.ApplyConfig(cfg)

	d := a.Service.Defaults()
	assert.Equal(t, formula.HTML, d.Markup)
	assert.Equal(t, "Cl", d.Reaction.Halogen)
}

func TestDefaults(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Render.Markup = "bogus"
	cfg.Render.ShowImplicit = true
	cfg.Engine.AddHydrogens = true
	cfg.Engine.MatchTimeout = time.Second

	d := Defaults(cfg)
	assert.Equal(t, formula.Plain, d.Markup)
	assert.True(t, d.ShowImplicit)
	assert.True(t, d.Reaction.AddHydrogens)
	assert.Equal(t, "Br", d.Reaction.Halogen)
	assert.Equal(t, time.Second, d.MatchTimeout)
	assert.Equal(t, cfg.Engine.Options, d.Parse)
}

func TestAdapters(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Kafka.Brokers = []string{"k1:9092", "k2:9092"}
	cfg.Kafka.SASLEnabled = true
	cfg.Kafka.SASLMechanism = "PLAIN"
	cfg.Redis.Mode = "cluster"
	cfg.Redis.ClusterAddrs = []string{"r1:6379"}
	cfg.Neo4j.Database = "molecules"
	cfg.Metrics.Enabled = false

	pc := ProducerConfig(cfg)
	assert.Equal(t, cfg.Kafka.Brokers, pc.Brokers)
	assert.True(t, pc.SASLEnabled)

	cc := ConsumerConfig(cfg, kafka.TopicAnalysisRequested)
	assert.Equal(t, []string{kafka.TopicAnalysisRequested}, cc.Topics)
	assert.Equal(t, config.DefaultKafkaGroupID, cc.GroupID)
	assert.Equal(t, kafka.TopicAnalysisDeadLetter, cc.Retry.DeadLetterTopic)
	assert.Equal(t, 3, cc.Retry.MaxRetries)

	rc := RedisConfig(cfg)
	assert.Equal(t, "cluster", rc.Mode)
	assert.Equal(t, []string{"r1:6379"}, rc.ClusterAddrs)

	assert.Equal(t, "molecules", Neo4jConfig(cfg).Database)

	mc := CollectorConfig(cfg)
	assert.Equal(t, "molnote", mc.Namespace)
	assert.False(t, mc.EnableGoMetrics)

	lc := LogConfig(cfg)
	assert.Equal(t, "info", lc.Level)
	assert.Equal(t, "json", lc.Format)
}
