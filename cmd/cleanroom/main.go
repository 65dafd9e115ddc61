package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/pubsub"
	"github.com/docopt/docopt-go"

	"github.com/datagruntio/cleanroom/internal/collab"
	"github.com/datagruntio/cleanroom/internal/config"
	"github.com/datagruntio/cleanroom/internal/diagnostics"
	"github.com/datagruntio/cleanroom/internal/jsonutil"
	"github.com/datagruntio/cleanroom/internal/lakehouse"
	"github.com/datagruntio/cleanroom/internal/logging"
	"github.com/datagruntio/cleanroom/internal/model"
	"github.com/datagruntio/cleanroom/internal/objectstore"
	"github.com/datagruntio/cleanroom/internal/orchestrator"
	"github.com/datagruntio/cleanroom/internal/stage"
)

const usage = `cleanroom

Usage:
  cleanroom run --config=<path> --bucket=<bucket> --object=<name> [--size=<bytes>] [--env=<path>]
  cleanroom serve --config=<path> --subscription=<sub> [--env=<path>]
  cleanroom load --config=<path> --subscription=<sub> [--env=<path>]
  cleanroom validate-config --config=<path> [--env=<path>]
  cleanroom inspect-raw-file <file>
  cleanroom -h | --help

Options:
  -h --help              Show this message.
  --config=<path>        Path to the pipeline config YAML.
  --env=<path>           Optional .env file to load before config overrides.
  --bucket=<bucket>      Bucket name for a one-shot run.
  --object=<name>        Object name for a one-shot run.
  --size=<bytes>         Object size in bytes for a one-shot run [default: 0].
  --subscription=<sub>   Pub/Sub subscription ID to serve from ("serve") or
                         to drive the Lakehouse Loader from ("load").
`

func main() {
	arguments, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatalf("cleanroom: failed to parse arguments: %v", err)
	}

	if v, _ := arguments.Bool("validate-config"); v {
		runValidateConfig(arguments)
		return
	}
	if v, _ := arguments.Bool("run"); v {
		runOnce(arguments)
		return
	}
	if v, _ := arguments.Bool("serve"); v {
		runServe(arguments)
		return
	}
	if v, _ := arguments.Bool("load"); v {
		runLoad(arguments)
		return
	}
	if v, _ := arguments.Bool("inspect-raw-file"); v {
		runInspectRawFile(arguments)
		return
	}
}

func runInspectRawFile(arguments docopt.Opts) {
	filePath, _ := arguments.String("<file>")
	report, err := diagnostics.InspectRawFile(filePath)
	if err != nil {
		log.Fatalf("cleanroom: %v", err)
	}
	data, err := jsonutil.MarshalIndent(report)
	if err != nil {
		log.Fatalf("cleanroom: failed to encode report: %v", err)
	}
	fmt.Println(string(data))
}

func runValidateConfig(arguments docopt.Opts) {
	cfg := loadConfig(arguments)
	_ = cfg
	fmt.Println("Configuration is valid.")
}

func runOnce(arguments docopt.Opts) {
	ctx := context.Background()
	cfg := loadConfig(arguments)
	orch := buildOrchestrator(ctx, cfg)

	bucket, _ := arguments.String("--bucket")
	name, _ := arguments.String("--object")
	size, _ := arguments.Int("--size")

	evt := model.ObjectEvent{Bucket: bucket, Name: name, Size: int64(size)}
	if err := orch.ProcessEvent(ctx, evt); err != nil {
		log.Fatalf("cleanroom: run failed: %v", err)
	}
}

func runServe(arguments docopt.Opts) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(arguments)
	orch := buildOrchestrator(ctx, cfg)

	subID, _ := arguments.String("--subscription")
	client, err := pubsub.NewClient(ctx, cfg.Lakehouse.ProjectID)
	if err != nil {
		log.Fatalf("cleanroom: failed to open pubsub client: %v", err)
	}
	defer client.Close()

	source := collab.NewPubSubEventSource(client.Subscription(subID))
	source.Start(ctx)
	defer source.Stop()

	logging.Info(orch.Logger, "msg", "serving", "subscription", subID)
	for {
		evt, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logging.Info(orch.Logger, "msg", "shutting down")
				return
			}
			logging.Error(orch.Logger, "msg", "event source failed", "err", err)
			return
		}
		if err := orch.ProcessEvent(ctx, evt); err != nil {
			logging.Error(orch.Logger, "msg", "process event failed", "err", err, "object", evt.Name)
		}
	}
}

func runLoad(arguments docopt.Opts) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := loadConfig(arguments)
	logger := logging.New(cfg.LogLevel)

	bus, err := collab.NewPubSubBus(ctx, cfg.Lakehouse.ProjectID, cfg.EventBusTopic, cfg.EventBusTopic+"-completion")
	if err != nil {
		log.Fatalf("cleanroom: %v", err)
	}
	writer, err := lakehouse.NewWriter(ctx, cfg.Lakehouse.ProjectID, cfg.Lakehouse.IcebergBasePath, cfg.Lakehouse.ConnectionHandle)
	if err != nil {
		log.Fatalf("cleanroom: %v", err)
	}
	defer writer.Close()

	consumer := &orchestrator.LoadConsumer{
		Writer: stage.BigQueryWriter{Writer: writer},
		Bus:    bus,
		Logger: logger,
	}

	subID, _ := arguments.String("--subscription")
	client, err := pubsub.NewClient(ctx, cfg.Lakehouse.ProjectID)
	if err != nil {
		log.Fatalf("cleanroom: failed to open pubsub client: %v", err)
	}
	defer client.Close()

	source := collab.NewPubSubLoadRequestSource(client.Subscription(subID))
	source.Start(ctx)
	defer source.Stop()

	logging.Info(logger, "msg", "serving lakehouse loader", "subscription", subID)
	for {
		req, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logging.Info(logger, "msg", "shutting down")
				return
			}
			logging.Error(logger, "msg", "load request source failed", "err", err)
			return
		}
		if err := consumer.ProcessLoadRequest(ctx, req); err != nil {
			logging.Error(logger, "msg", "process load request failed", "err", err, "table", req.TargetTable)
		}
	}
}

func loadConfig(arguments docopt.Opts) *config.Config {
	configPath, _ := arguments.String("--config")
	envPath, _ := arguments.String("--env")
	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		log.Fatalf("cleanroom: %v", err)
	}
	return cfg
}

func buildOrchestrator(ctx context.Context, cfg *config.Config) *orchestrator.Orchestrator {
	store, err := objectstore.NewGCSStore(ctx, cfg.Buckets.Inbox, cfg.Buckets.Staging, cfg.Buckets.Archive)
	if err != nil {
		log.Fatalf("cleanroom: %v", err)
	}

	bus, err := collab.NewPubSubBus(ctx, cfg.Lakehouse.ProjectID, cfg.EventBusTopic, cfg.EventBusTopic+"-completion")
	if err != nil {
		log.Fatalf("cleanroom: %v", err)
	}

	return &orchestrator.Orchestrator{
		Config:         cfg,
		Store:          store,
		Bus:            bus,
		StateRegistry:  collab.NoopStateRegistry{},
		HeaderDetector: collab.NoopHeaderDetector{},
		PIIDetector:    collab.NoopPIIDetector{},
		Loader:         stage.FormatLoader{},
		Scanner:        stage.QualityScanner{},
		Cleaner:        stage.CleaningEngine{},
		Exporter:       stage.ParquetExporter{},
		Logger:         logging.New(cfg.LogLevel),
	}
}
