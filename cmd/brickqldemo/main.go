// brickqldemo loads a schema snapshot, a policy config, and a JSON query
// plan from disk and runs them through brickql.ValidateAndCompile,
// printing the resulting parameterized SQL and bound parameters.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/brickql/brickql-go/pkg/brickql"
	"github.com/brickql/brickql-go/pkg/brickql/dialect"
	"github.com/brickql/brickql-go/pkg/brickql/policy"
	"github.com/brickql/brickql-go/pkg/brickql/schema"
)

func main() {
	planPath := flag.String("plan", "cmd/brickqldemo/testdata/plan.json", "path to a JSON query plan")
	flag.Parse()

	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*planPath, cfg, logger); err != nil {
		logger.Error("compilation failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(planPath string, cfg *Config, logger *zap.Logger) error {
	snap, err := loadSnapshot(cfg.SnapshotPath)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	pol, err := loadPolicy(cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("loading policy: %w", err)
	}
	dial, err := buildDialect(snap, cfg)
	if err != nil {
		return fmt.Errorf("building dialect profile: %w", err)
	}
	planJSON, err := os.ReadFile(planPath)
	if err != nil {
		return fmt.Errorf("reading plan: %w", err)
	}

	logger.Info("compiling query plan",
		zap.String("plan_path", planPath),
		zap.String("dialect", string(dial.Target)))

	compiled, err := brickql.Logging(logger, planJSON, snap, dial, pol)
	if err != nil {
		return err
	}

	fmt.Println(compiled.SQL)
	fmt.Println()
	fmt.Printf("params: %v\n", compiled.Params)
	if len(compiled.RequiredParams) > 0 {
		fmt.Printf("required runtime params: %v\n", compiled.RequiredParams)
	}
	return nil
}

func loadSnapshot(path string) (*schema.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	snap, err := schema.LoadSnapshotYAML(data)
	if err != nil {
		return nil, err
	}
	return schema.InferRelationships(snap), nil
}

func loadPolicy(path string) (*policy.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pol := &policy.Config{}
	if err := yaml.Unmarshal(data, pol); err != nil {
		return nil, err
	}
	return pol, nil
}

func buildDialect(snap *schema.Snapshot, cfg *Config) (*dialect.Profile, error) {
	return dialect.Builder(snap.TableNames(), dialect.Target(cfg.DialectTarget), cfg.MaxLimit).
		Joins(cfg.MaxJoinDepth).
		Aggregations().
		Subqueries().
		CTEs().
		SetOperations().
		WindowFunctions().
		Build()
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zap.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
