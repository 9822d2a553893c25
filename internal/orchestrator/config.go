package orchestrator

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/nlhe-blueprint/internal/abstraction"
	"github.com/lox/nlhe-blueprint/internal/mccfr"
	"github.com/lox/nlhe-blueprint/poker"
)

// GameConfig fixes the stakes and seat count the training game is played
// at.
type GameConfig struct {
	Stack   int `hcl:"stack,optional"`
	SmallBlind int `hcl:"small_blind,optional"`
	BigBlind   int `hcl:"big_blind,optional"`
	Seats      int `hcl:"seats,optional"`
}

// AbstractionConfig fixes the pretraining cluster counts, sampling
// budget, and Lloyd iteration budget per street.
type AbstractionConfig struct {
	Street     string `hcl:"street,label"`
	Clusters   int    `hcl:"clusters,optional"`
	Samples    int    `hcl:"samples,optional"`
	Iterations int    `hcl:"iterations,optional"`
}

// TrainingConfig fixes the MCCFR batch size, DCFR discount schedule, and
// checkpoint interval.
type TrainingConfig struct {
	BatchSize       int     `hcl:"batch_size,optional"`
	DiscountAlpha   float64 `hcl:"discount_alpha,optional"`
	DiscountOmega   float64 `hcl:"discount_omega,optional"`
	DiscountGamma   float64 `hcl:"discount_gamma,optional"`
	DiscountPeriod  int     `hcl:"discount_period,optional"`
	CheckpointEvery int     `hcl:"checkpoint_every,optional"`
	CheckpointPath  string  `hcl:"checkpoint_path,optional"`
	Seed            int64   `hcl:"seed,optional"`
}

// Config is the full set of parameters LoadConfig reads from an HCL
// file: game stakes, the per-street abstraction plan, and the training
// loop's batch/discount/checkpoint settings.
type Config struct {
	Game        GameConfig           `hcl:"game,block"`
	Abstraction []AbstractionConfig  `hcl:"abstraction,block"`
	Training    TrainingConfig       `hcl:"training,block"`
}

// DefaultConfig matches spec's external parameter defaults: stack=100bb,
// blinds 1/2, heads-up, the four-street abstraction plan, and DCFR's
// α=1.5, ω=0.5, γ=1.5.
func DefaultConfig() *Config {
	return &Config{
		Game: GameConfig{
			Stack:      100,
			SmallBlind: 1,
			BigBlind:   2,
			Seats:      2,
		},
		Abstraction: []AbstractionConfig{
			{Street: "river", Clusters: 50, Samples: 0, Iterations: 0},
			{Street: "turn", Clusters: 200, Samples: 500, Iterations: 20},
			{Street: "flop", Clusters: 200, Samples: 500, Iterations: 20},
			{Street: "preflop", Clusters: 169, Samples: 0, Iterations: 0},
		},
		Training: TrainingConfig{
			BatchSize:       128,
			DiscountAlpha:   1.5,
			DiscountOmega:   0.5,
			DiscountGamma:   1.5,
			DiscountPeriod:  10,
			CheckpointEvery: 10000,
			CheckpointPath:  "blueprint.checkpoint.json",
			Seed:            1,
		},
	}
}

// LoadConfig reads filename as HCL, falling back to DefaultConfig if the
// file doesn't exist, and fills any zero-valued field left unset by the
// file with its default.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("orchestrator: parse config: %s", diags.Error())
	}

	config := *DefaultConfig()
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("orchestrator: decode config: %s", diags.Error())
	}

	defaults := DefaultConfig()
	if config.Game.Stack == 0 {
		config.Game.Stack = defaults.Game.Stack
	}
	if config.Game.SmallBlind == 0 {
		config.Game.SmallBlind = defaults.Game.SmallBlind
	}
	if config.Game.BigBlind == 0 {
		config.Game.BigBlind = defaults.Game.BigBlind
	}
	if config.Game.Seats == 0 {
		config.Game.Seats = defaults.Game.Seats
	}
	if len(config.Abstraction) == 0 {
		config.Abstraction = defaults.Abstraction
	}
	if config.Training.BatchSize == 0 {
		config.Training.BatchSize = defaults.Training.BatchSize
	}
	if config.Training.DiscountAlpha == 0 {
		config.Training.DiscountAlpha = defaults.Training.DiscountAlpha
	}
	if config.Training.DiscountOmega == 0 {
		config.Training.DiscountOmega = defaults.Training.DiscountOmega
	}
	if config.Training.DiscountGamma == 0 {
		config.Training.DiscountGamma = defaults.Training.DiscountGamma
	}
	if config.Training.DiscountPeriod == 0 {
		config.Training.DiscountPeriod = defaults.Training.DiscountPeriod
	}
	if config.Training.CheckpointEvery == 0 {
		config.Training.CheckpointEvery = defaults.Training.CheckpointEvery
	}
	if config.Training.CheckpointPath == "" {
		config.Training.CheckpointPath = defaults.Training.CheckpointPath
	}
	if config.Training.Seed == 0 {
		config.Training.Seed = defaults.Training.Seed
	}

	return &config, nil
}

// StreetConfigs translates the HCL abstraction blocks into the street
// plan abstraction.Pipeline consumes, keeping the order the blocks appear
// in; the pipeline builds streets in that order, so the blocks have to run
// river to preflop.
func (c *Config) StreetConfigs() ([]abstraction.StreetConfig, error) {
	order := map[string]poker.Street{
		"river": poker.Rive, "turn": poker.Turn, "flop": poker.Flop, "preflop": poker.Pref,
	}
	out := make([]abstraction.StreetConfig, len(c.Abstraction))
	for i, a := range c.Abstraction {
		street, ok := order[a.Street]
		if !ok {
			return nil, fmt.Errorf("orchestrator: unknown abstraction street %q", a.Street)
		}
		out[i] = abstraction.StreetConfig{
			Street:     street,
			Clusters:   a.Clusters,
			Samples:    a.Samples,
			Iterations: a.Iterations,
		}
	}
	return out, nil
}

// Discount builds the DCFR schedule Submit discounts every regret/policy
// upsert against.
func (c *Config) Discount() mccfr.Discount {
	return mccfr.Discount{
		Alpha:  c.Training.DiscountAlpha,
		Omega:  c.Training.DiscountOmega,
		Gamma:  c.Training.DiscountGamma,
		Period: c.Training.DiscountPeriod,
	}
}
