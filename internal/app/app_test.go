package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shopscraper/internal/config"
	"shopscraper/internal/fetcher"
	"shopscraper/internal/job"
)

func TestRegisterTargetsWiresKnownExtractors(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		TargetSeq: []string{"books", "products", "furniture"},
		Targets: map[string]config.TargetConfig{
			"books":     {URLs: []string{"https://books.toscrape.com/"}},
			"products":  {URLs: []string{"https://webscraper.io/test-sites/e-commerce/allinone"}},
			"furniture": {URLs: []string{"https://example.com/furniture"}},
		},
	}

	client := fetcher.New(fetcher.Config{Timeout: time.Second}, zap.NewNop(), nil)
	runner := job.NewRunner(job.RunnerConfig{OutputDir: t.TempDir()}, nil, nil, nil, nil, zap.NewNop())

	registerTargets(runner, cfg, client, zap.NewNop(), nil)

	names := runner.Targets()
	require.ElementsMatch(t, []string{"books", "products"}, names,
		"a target without an extractor is skipped, not registered")
}
