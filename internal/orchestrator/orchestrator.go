// Package orchestrator drives the two-phase training lifecycle a
// blueprint solve needs: pretrain the hand abstraction street by street,
// then run MCCFR workers against it until told to stop, checkpointing
// the blueprint at a configurable interval and flushing on cancellation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	v1rand "math/rand"
	"math/rand/v2"
	"sync/atomic"

	"github.com/coder/quartz"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/nlhe-blueprint/internal/abstraction"
	"github.com/lox/nlhe-blueprint/internal/game"
	"github.com/lox/nlhe-blueprint/internal/mccfr"
	"github.com/lox/nlhe-blueprint/internal/randutil"
	"github.com/lox/nlhe-blueprint/internal/storage"
	"github.com/lox/nlhe-blueprint/poker"
)

// Progress is the periodic report Train hands to its caller's callback
// after every checkpoint: how far training has gotten and how big the
// blueprint has grown.
type Progress struct {
	Iteration int64
	Epoch     int64
	TableSize int
}

// Orchestrator owns the abstraction pipeline and the store both
// pretraining and training read and write through. Clock stamps each
// checkpoint's log line and is injectable so tests can pin that
// timestamp; checkpoints themselves fire on iteration count, not time.
type Orchestrator struct {
	Config *Config
	Store  *storage.MemoryStore
	Clock  quartz.Clock

	pipeline *abstraction.Pipeline
}

// New builds an Orchestrator over store using config's street plan.
func New(config *Config, store *storage.MemoryStore) (*Orchestrator, error) {
	streets, err := config.StreetConfigs()
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		Config:   config,
		Store:    store,
		Clock:    quartz.NewReal(),
		pipeline: abstraction.NewPipeline(streets, v1rand.New(v1rand.NewSource(config.Training.Seed))),
	}, nil
}

// Pretrain builds any street's encoder/metric/histogram tables not
// already persisted in Store, in the pipeline's configured order, and
// writes the newly built streets to Store once every configured street
// is built. A street finished before an error or cancellation is not
// written to Store.
func (o *Orchestrator) Pretrain(ctx context.Context) error {
	already := make(map[poker.Street]bool, len(o.pipeline.Configs))
	for _, cfg := range o.pipeline.Configs {
		already[cfg.Street] = o.Store.Clustered(cfg.Street)
	}

	if err := o.pipeline.Run(ctx, already); err != nil {
		return fmt.Errorf("orchestrator: pretrain: %w", err)
	}

	for _, cfg := range o.pipeline.Configs {
		if o.Store.Clustered(cfg.Street) {
			continue
		}
		enc := o.pipeline.Encoder(cfg.Street)
		metric := o.pipeline.Metric(cfg.Street)
		if enc == nil || metric == nil {
			return fmt.Errorf("orchestrator: pretrain: street %s finished without an encoder/metric", cfg.Street)
		}
		if err := o.Store.Cluster(cfg.Street, enc, metric, o.pipeline.Histograms(cfg.Street)); err != nil {
			return fmt.Errorf("orchestrator: persist %s: %w", cfg.Street, err)
		}
		log.Info().Str("street", cfg.Street.String()).Msg("street persisted to storage")
	}
	return nil
}

// Train runs workers workers, each sampling and walking trees until
// iterations total have been submitted across all of them, advancing
// the epoch every BatchSize submissions and checkpointing every
// CheckpointEvery submissions. Cancelling ctx stops every worker at its
// next iteration boundary; Train always checkpoints and reports once
// more before returning, flushing whatever the workers already
// submitted.
func (o *Orchestrator) Train(ctx context.Context, iterations, workers int, progress func(Progress)) error {
	if workers < 1 {
		workers = 1
	}
	encoders := o.Store.Encoders()
	if len(encoders) == 0 {
		return errors.New("orchestrator: train called before pretrain built any encoders")
	}

	group, gctx := errgroup.WithContext(ctx)
	var submitted atomic.Int64
	perWorker := iterations / workers

	for w := 0; w < workers; w++ {
		seed := o.Config.Training.Seed + int64(w) + 1
		count := perWorker
		if w < iterations%workers {
			count++
		}
		group.Go(func() error {
			rng := randutil.New(seed)
			for i := 0; i < count; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				walker := int(o.Store.Epoch() % 2)
				hand := o.newGame(rng)
				tree := mccfr.Build(hand, walker, encoders, rng)
				_, records := mccfr.Walk(tree, o.Store.Blueprint())
				if err := o.Store.Submit(records); err != nil {
					return err
				}

				n := submitted.Add(1)
				if o.Config.Training.BatchSize > 0 && n%int64(o.Config.Training.BatchSize) == 0 {
					o.Store.Advance()
				}
				if o.Config.Training.CheckpointEvery > 0 && n%int64(o.Config.Training.CheckpointEvery) == 0 {
					if err := o.checkpointAndReport(progress, n); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}

	err := group.Wait()
	if flushErr := o.checkpointAndReport(progress, submitted.Load()); flushErr != nil {
		return flushErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("orchestrator: train: %w", err)
	}
	return nil
}

func (o *Orchestrator) checkpointAndReport(progress func(Progress), n int64) error {
	if o.Config.Training.CheckpointPath != "" {
		if err := o.Store.Checkpoint(o.Config.Training.CheckpointPath); err != nil {
			return fmt.Errorf("checkpoint: %w", err)
		}
	}
	report := Progress{Iteration: n, Epoch: o.Store.Epoch(), TableSize: o.Store.Blueprint().Size()}
	log.Info().
		Int64("iteration", report.Iteration).
		Int64("epoch", report.Epoch).
		Int("infosets", report.TableSize).
		Time("at", o.Clock.Now()).
		Msg("checkpoint")
	if progress != nil {
		progress(report)
	}
	return nil
}

// newGame deals a fresh heads-up hand at the configured stakes, posts
// both blinds, and hands out two random hole cards per seat.
func (o *Orchestrator) newGame(rng *rand.Rand) *game.Game {
	stack := o.Config.Game.Stack * o.Config.Game.BigBlind
	g := game.New([2]int{stack, stack}, 0, o.Config.Game.SmallBlind, o.Config.Game.BigBlind)
	for i := 0; i < 2; i++ {
		actions := g.LegalActions()
		if len(actions) != 1 || actions[0].Kind != game.Blind {
			panic("orchestrator: expected a single blind action at hand start")
		}
		if err := g.Apply(actions[0]); err != nil {
			panic(err)
		}
	}

	deck := poker.NewHand().Complement().Cards()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	g.Seats[0].Cards = poker.NewHand(deck[0], deck[1])
	g.Seats[1].Cards = poker.NewHand(deck[2], deck[3])
	return g
}
