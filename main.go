package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/aunum/log"
	"github.com/pkg/errors"

	"github.com/samuelfneumann/goac/agent"
	env "github.com/samuelfneumann/goac/environment"
	"github.com/samuelfneumann/goac/environment/envconfig"
	"github.com/samuelfneumann/goac/experiment"
	"github.com/samuelfneumann/goac/experiment/checkpointer"
	"github.com/samuelfneumann/goac/experiment/tracker"
	"github.com/samuelfneumann/goac/utils/progressbar"
)

var (
	// defaultEnv is the environment trained on when no configuration
	// file is given
	defaultEnv = envconfig.CartPole

	// cleanup is run before the program exits
	cleanup []func()
)

var (
	configFile = flag.String("config", "", "JSON experiment configuration")
	useCUDA    = flag.Bool("cuda", false, "use CUDA if available")
	weights    = flag.String("weights", "", "checkpoint to load first")
	logEvery   = flag.Int("log", 0, "log every n-th episode, 0 to disable")
	seed       = flag.Uint64("seed", 0, "random seed")
	saveDir    = flag.String("save-dir", "", "checkpoint directory")
	dataFile   = flag.String("data", "", "file to save returns to")
	lengthFile = flag.String("lengths", "", "file to save lengths to")
	progress   = flag.Bool("progress", true, "display a progress bar")
)

func main() {
	flag.Parse()

	err := run()
	for _, f := range cleanup {
		f()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config()
	if err != nil {
		return err
	}
	log.Infof("environment: %v episodes: %d gamma: %v max_steps: %d "+
		"seed: %d device: %v", cfg.EnvName, cfg.Episodes, cfg.Gamma,
		cfg.MaxSteps, cfg.Seed, cfg.Agent.Device)

	e, err := envconfig.Make(cfg.EnvName, cfg.Gamma, cfg.Seed)
	if err != nil {
		return errors.Wrap(err, "could not create environment")
	}
	if closer, ok := e.(env.Closer); ok {
		defer closer.Close()
	}

	a, err := cfg.Agent.CreateAgent(e, cfg.Seed)
	if err != nil {
		return errors.Wrap(err, "could not create agent")
	}
	defer a.Close()

	if *weights != "" {
		if err := a.Load(*weights); err != nil {
			return err
		}
		log.Infof("loaded weights from %v", *weights)
	}

	trackers := tracker.Multi{}
	if *logEvery > 0 {
		trackers = append(trackers, tracker.NewLogger(*logEvery))
	}
	if *dataFile != "" {
		trackers = append(trackers, tracker.NewReturn(*dataFile))
	}
	if *lengthFile != "" {
		trackers = append(trackers, tracker.NewEpisodeLength(*lengthFile))
	}

	check := checkpointer.New(cfg.Predicate(), a, cfg.SaveDir, cfg.EnvName)
	exp := experiment.NewEpisodic(e, a, cfg.Gamma, cfg.MaxSteps, trackers,
		check)

	var bar *progressbar.ManualProgressBar
	if *progress {
		bar = progressbar.NewManualProgressBar(os.Stdout, 50, cfg.Episodes)
		defer bar.Close()
	}

	for i := 0; i < cfg.Episodes; i++ {
		result, err := exp.RunEpisode()
		if err != nil {
			return err
		}
		log.Debugf("episode %d ended (%v) after %d steps: %v",
			result.Record.Episode, result.End, result.Record.Length,
			result.Loss)

		if result.Checkpoint != "" {
			log.Successf("saved checkpoint %v", result.Checkpoint)
		}
		if bar != nil {
			bar.Increment()
			bar.SetSuffix("reward: %.2f", result.Record.AccumulatedReward)
			bar.Display()
		}
	}

	return errors.Wrap(trackers.Save(), "could not save data")
}

// config builds the experiment configuration from the configuration
// file and the command line flags
func config() (experiment.Config, error) {
	cfg := experiment.DefaultConfig()
	cfg.EnvName = defaultEnv

	if *configFile != "" {
		var err error
		if cfg, err = experiment.LoadConfig(*configFile); err != nil {
			return cfg, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = *seed
		case "save-dir":
			cfg.SaveDir = *saveDir
		}
	})
	cfg.SaveDir = filepath.Clean(cfg.SaveDir)

	if *useCUDA || cfg.Agent.Device == agent.CUDA {
		cfg.Agent.Device = agent.ResolveDevice(true)
		if cfg.Agent.Device != agent.CUDA {
			log.Infof("CUDA requested but unavailable, running on the CPU")
		}
	}

	return cfg, errors.Wrap(cfg.Validate(), "invalid configuration")
}
