// Command anacostia loads a pipeline topology from a YAML file and runs
// it, exposing the node-trigger HTTP surface and (optionally) Prometheus
// metrics while it runs.
//
// Grounded on smileynet-capsule/cmd/capsule/main.go's kong CLI structure
// (top-level CLI struct of Cmd fields, one Run() method per command,
// loadConfig-then-override-from-flags idiom, signal.NotifyContext for
// graceful shutdown).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smilemakc/anacostia/internal/config"
	"github.com/smilemakc/anacostia/internal/gate"
	"github.com/smilemakc/anacostia/internal/httptrigger"
	"github.com/smilemakc/anacostia/internal/logging"
	"github.com/smilemakc/anacostia/internal/mailbox"
	"github.com/smilemakc/anacostia/internal/metadata"
	"github.com/smilemakc/anacostia/internal/node"
	"github.com/smilemakc/anacostia/internal/pipeline"
	"github.com/smilemakc/anacostia/internal/resource"
	"github.com/smilemakc/anacostia/internal/telemetry"
)

var version = "dev"

// CLI is the top-level command structure for anacostia.
type CLI struct {
	Version  kong.VersionFlag `help:"Show version." short:"V"`
	Run      RunCmd           `cmd:"" help:"Launch a pipeline from a YAML topology file and serve its trigger surface."`
	Validate ValidateCmd      `cmd:"" help:"Parse and topologically validate a pipeline YAML file without running it."`
}

// RunCmd launches a pipeline and keeps it running until interrupted.
type RunCmd struct {
	ConfigPath  string `arg:"" help:"Path to the pipeline topology YAML file."`
	LogLevel    string `help:"Log level (debug, info, warn, error)." default:""`
	HTTPAddr    string `help:"Address for the node-trigger HTTP server." default:""`
	MetricsAddr string `help:"Address for the Prometheus metrics server." default:""`
	MetadataDSN string `help:"Metadata store DSN, or \"memory\" for an in-process store." default:""`
	Telemetry   bool   `help:"Enable Prometheus metrics collection and serve /metrics." default:"false"`
}

// ValidateCmd parses a pipeline YAML file and runs the same topological
// validation Run would, without launching any node.
type ValidateCmd struct {
	ConfigPath string `arg:"" help:"Path to the pipeline topology YAML file."`
}

// Run executes the validate command.
func (v *ValidateCmd) Run() error {
	data, err := os.ReadFile(v.ConfigPath)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	def, err := config.LoadPipelineYAML(data)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	evaluator := gate.NewEvaluator()
	var resources []*resource.ResourceNode
	factory := buildNodeFactory(evaluator, nil, &resources)
	p, err := pipeline.FromYAML(def, factory, logging.Noop)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	for _, rn := range resources {
		pipeline.WireResourceReaders(rn)
	}

	fmt.Printf("pipeline %q: %d nodes, launch order:\n", def.Name, len(p.TopologicalOrder()))
	for i, n := range p.TopologicalOrder() {
		fmt.Printf("  %d. %s (%s)\n", i+1, n.Name, n.Kind)
	}
	return nil
}

// Run executes the run command.
func (r *RunCmd) Run() error {
	cfg := config.Load()
	if r.LogLevel != "" {
		cfg.LogLevel = r.LogLevel
	}
	if r.HTTPAddr != "" {
		cfg.HTTPAddr = r.HTTPAddr
	}
	if r.MetricsAddr != "" {
		cfg.MetricsAddr = r.MetricsAddr
	}
	if r.MetadataDSN != "" {
		cfg.MetadataDSN = r.MetadataDSN
	}

	log := logging.NewZerologSink("anacostia", cfg.LogLevel)

	data, err := os.ReadFile(r.ConfigPath)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	def, err := config.LoadPipelineYAML(data)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	store, err := buildMetadataStore(cfg.MetadataDSN)
	if err != nil {
		return fmt.Errorf("run: metadata store: %w", err)
	}

	var metrics *telemetry.Metrics
	if r.Telemetry {
		metrics = telemetry.NewMetrics(prometheus.DefaultRegisterer)
	} else {
		metrics = telemetry.NoopMetrics()
	}

	evaluator := gate.NewEvaluator()
	var resources []*resource.ResourceNode
	factory := buildNodeFactory(evaluator, metrics, &resources)

	p, err := pipeline.FromYAML(def, factory, log)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	for _, rn := range resources {
		pipeline.WireResourceReaders(rn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runID, err := store.StartRun(ctx)
	if err != nil {
		log.Error("starting run record", err)
	}

	p.Launch()
	log.Info("pipeline launched", logging.F("name", def.Name), logging.F("nodes", len(def.Nodes)))

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: httptrigger.New(p, log)}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("trigger server stopped", err)
		}
	}()

	var metricsSrv *http.Server
	if r.Telemetry {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server stopped", err)
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutdown signal received", logging.F("name", def.Name))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	p.Terminate()
	_ = store.EndRun(shutdownCtx, runID)
	log.Info("pipeline terminated", logging.F("name", def.Name))
	return nil
}

// buildMetadataStore chooses a metadata.Store implementation by DSN: an
// empty DSN or the literal "memory" selects an in-process store (useful
// for local runs), anything else is treated as a Postgres DSN for
// metadata.NewBunStore.
func buildMetadataStore(dsn string) (metadata.Store, error) {
	if dsn == "" || dsn == "memory" {
		return metadata.NewMemoryStore(), nil
	}
	store, err := metadata.NewBunStore(dsn)
	if err != nil {
		return nil, err
	}
	if err := store.InitSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// buildNodeFactory returns a pipeline.NodeFactory dispatching on
// config.NodeDef.Kind. Barrier nodes need their producer/consumer nodes to
// already exist before internal/barrier.New can build their fan-in gate,
// which conflicts with NodeFactory's per-node build order; pipeline.FromYAML
// therefore builds them itself from config.PipelineDef.Barriers after every
// NodeDef has been built, rather than through this factory. Resource nodes
// are wrapped with resource.New and appended to resources so the caller can
// latch their expected-reader count with pipeline.WireResourceReaders once
// FromYAML has populated successors.
func buildNodeFactory(evaluator *gate.Evaluator, metrics *telemetry.Metrics, resources *[]*resource.ResourceNode) pipeline.NodeFactory {
	return func(def config.NodeDef) (*node.Node, error) {
		opts := []node.Option{node.WithAutoTrigger(def.AutoTrigger)}
		switch def.Kind {
		case "", "trivial":
			return node.NewTrivialNode(def.Name, mailbox.Success, opts...), nil
		case "action":
			exec := conditionExecute(evaluator, def.Condition, metrics, def.Name)
			return node.NewActionNode(def.Name, exec, opts...), nil
		case "resource":
			rn := resource.New(node.New(def.Name, node.KindResource, opts...))
			*resources = append(*resources, rn)
			return rn.Node, nil
		case "barrier":
			return nil, fmt.Errorf("barrier node %q: declare it under the pipeline's top-level \"barriers\" list, not as a node", def.Name)
		default:
			return nil, fmt.Errorf("node %q: unknown kind %q", def.Name, def.Kind)
		}
	}
}

// conditionExecute builds an Execute hook that evaluates condition (an
// expr-lang/expr boolean expression over the node's variables) when set,
// otherwise always succeeds.
func conditionExecute(evaluator *gate.Evaluator, condition string, metrics *telemetry.Metrics, nodeName string) func(ctx context.Context, n *node.Node) (bool, error) {
	return func(ctx context.Context, n *node.Node) (bool, error) {
		start := time.Now()
		ok, err := evaluator.Eval(condition, n.SnapshotVariables())
		metrics.RecordExecuteDuration(nodeName, time.Since(start))
		if err != nil {
			return false, err
		}
		outcome := "failure"
		if ok {
			outcome = "success"
		}
		metrics.RecordExecution(nodeName, outcome)
		return ok, nil
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, kong.Vars{"version": version})
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
