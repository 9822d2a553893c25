// Command blueprint drives a heads-up no-limit hold'em blueprint solve:
// pretraining the hand abstraction, running MCCFR against it, resuming
// from a checkpoint, and inspecting the abstraction it built.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lox/nlhe-blueprint/internal/abstraction"
	"github.com/lox/nlhe-blueprint/internal/mccfr"
	"github.com/lox/nlhe-blueprint/internal/orchestrator"
	"github.com/lox/nlhe-blueprint/internal/storage"
	"github.com/lox/nlhe-blueprint/poker"
)

var cli struct {
	Debug  bool   `help:"enable debug logging"`
	Config string `help:"path to an HCL config file" default:"blueprint.hcl"`

	Pretrain PretrainCmd `cmd:"" help:"build the hand abstraction street by street"`
	Train    TrainCmd    `cmd:"" help:"run MCCFR training against the abstraction"`
	Resume   ResumeCmd   `cmd:"" help:"resume training from a checkpoint"`
	Analyze  AnalyzeCmd  `cmd:"" help:"report equity, neighbors, and abstraction for one hand"`
}

// PretrainCmd builds the encoder/metric/histogram tables every
// street needs before any MCCFR iteration can run.
type PretrainCmd struct{}

// TrainCmd runs a fresh MCCFR training loop against a freshly pretrained
// abstraction.
type TrainCmd struct {
	Iterations int `help:"total MCCFR iterations across all workers" default:"1000000"`
	Workers    int `help:"number of concurrent MCCFR workers" default:"1"`
}

// ResumeCmd restores a checkpointed blueprint and continues training it.
type ResumeCmd struct {
	Checkpoint string `help:"path to a checkpoint written by a prior run" required:""`
	Iterations int    `help:"additional MCCFR iterations to run" default:"1000000"`
	Workers    int    `help:"number of concurrent MCCFR workers" default:"1"`
}

// AnalyzeCmd reports a single observation's bucket, derived equity, and
// nearest neighbors under the street's metric. Encoder/metric tables are
// not checkpointed, so analyze runs pretraining from scratch to build
// them before inspecting the requested hand.
type AnalyzeCmd struct {
	Pocket    string `help:"two hole cards, e.g. AsKd" required:""`
	Board     string `help:"0, 3, 4, or 5 board cards"`
	Neighbors int    `help:"number of nearest neighbors to report" default:"5"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("blueprint"),
		kong.Description("heads-up no-limit hold'em blueprint solver"),
		kong.UsageOnError(),
	)

	setupLogger(cli.Debug)

	config, err := orchestrator.LoadConfig(cli.Config)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	runCtx, cancel := signalContext()
	defer cancel()

	switch ctx.Command() {
	case "pretrain":
		err = cli.Pretrain.Run(runCtx, config)
	case "train":
		err = cli.Train.Run(runCtx, config)
	case "resume":
		err = cli.Resume.Run(runCtx, config)
	case "analyze":
		err = cli.Analyze.Run(runCtx, config)
	default:
		log.Fatal().Msgf("unknown command: %s", ctx.Command())
	}
	if err != nil {
		log.Fatal().Err(err).Msg(ctx.Command())
	}
}

func setupLogger(debug bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
}

// signalContext returns a context canceled on SIGINT/SIGTERM, so a
// training loop mid-epoch gets the chance to checkpoint and exit
// cleanly instead of being killed outright.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutdown signal received, stopping after the current iteration")
		cancel()
	}()
	return ctx, cancel
}

func (cmd *PretrainCmd) Run(ctx context.Context, config *orchestrator.Config) error {
	store := storage.NewMemoryStore(config.Discount())
	orch, err := orchestrator.New(config, store)
	if err != nil {
		return err
	}
	if err := orch.Pretrain(ctx); err != nil {
		return err
	}
	if config.Training.CheckpointPath == "" {
		return nil
	}
	if err := store.Checkpoint(config.Training.CheckpointPath); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	log.Info().Str("path", config.Training.CheckpointPath).Msg("pretraining checkpointed")
	return nil
}

func (cmd *TrainCmd) Run(ctx context.Context, config *orchestrator.Config) error {
	store := storage.NewMemoryStore(config.Discount())
	orch, err := orchestrator.New(config, store)
	if err != nil {
		return err
	}
	if err := orch.Pretrain(ctx); err != nil {
		return err
	}
	return orch.Train(ctx, cmd.Iterations, cmd.Workers, logProgress)
}

func (cmd *ResumeCmd) Run(ctx context.Context, config *orchestrator.Config) error {
	store, clustered, err := storage.LoadCheckpoint(cmd.Checkpoint, config.Discount())
	if err != nil {
		return err
	}
	log.Info().Int64("epoch", store.Epoch()).Int("infosets", store.Blueprint().Size()).Msg("checkpoint loaded")

	orch, err := orchestrator.New(config, store)
	if err != nil {
		return err
	}
	streets, err := config.StreetConfigs()
	if err != nil {
		return err
	}
	for _, s := range streets {
		if clustered[s.Street.String()] {
			log.Info().Str("street", s.Street.String()).Msg("street was clustered before the checkpoint, rebuilding its tables")
		}
	}
	if err := orch.Pretrain(ctx); err != nil {
		return err
	}
	return orch.Train(ctx, cmd.Iterations, cmd.Workers, logProgress)
}

func logProgress(p orchestrator.Progress) {
	log.Info().Int64("iteration", p.Iteration).Int64("epoch", p.Epoch).Int("infosets", p.TableSize).Msg("progress")
}

func (cmd *AnalyzeCmd) Run(ctx context.Context, config *orchestrator.Config) error {
	pocket, err := poker.ParseHand(cmd.Pocket)
	if err != nil {
		return fmt.Errorf("parse pocket: %w", err)
	}
	var board poker.Hand
	if cmd.Board != "" {
		board, err = poker.ParseHand(cmd.Board)
		if err != nil {
			return fmt.Errorf("parse board: %w", err)
		}
	}

	obs, err := poker.NewObservation(pocket, board)
	if err != nil {
		return fmt.Errorf("build observation: %w", err)
	}
	street := obs.Street()
	iso := poker.NewIsomorphism(obs)

	store := storage.NewMemoryStore(mccfr.DefaultDiscount(config.Training.DiscountPeriod))
	orch, err := orchestrator.New(config, store)
	if err != nil {
		return err
	}
	if err := orch.Pretrain(ctx); err != nil {
		return fmt.Errorf("pretrain: %w", err)
	}

	bucket, err := store.Encode(iso, street)
	if err != nil {
		return err
	}
	equity, err := store.Equity(bucket)
	if err != nil {
		return err
	}
	stats, err := store.Stats(bucket)
	if err != nil {
		return err
	}
	log.Info().
		Str("street", street.String()).
		Str("bucket", bucket.String()).
		Float64("equity", equity).
		Int("population", stats.Population).
		Msg("abstraction")

	metric, err := store.Metric(street)
	if err != nil {
		return err
	}
	neighbors := nearest(store, metric, street, bucket, cmd.Neighbors)
	for rank, n := range neighbors {
		log.Info().Int("rank", rank+1).Str("bucket", n.bucket.String()).Float64("distance", n.distance).Msg("neighbor")
	}
	return nil
}

type neighbor struct {
	bucket   abstraction.Abstraction
	distance float64
}

// nearest returns bucket's k closest other buckets on street under
// metric, sorted nearest-first. It's a linear scan over every bucket
// street has seen, fine for the analyze command's one-shot use.
func nearest(store *storage.MemoryStore, metric *abstraction.Metric, street poker.Street, bucket abstraction.Abstraction, k int) []neighbor {
	candidates := store.Abstractions(street)
	out := make([]neighbor, 0, len(candidates))
	for _, c := range candidates {
		if c == bucket {
			continue
		}
		out = append(out, neighbor{bucket: c, distance: metric.Distance(bucket, c)})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].distance < out[j-1].distance; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}
