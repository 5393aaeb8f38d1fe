package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/quizbowl/qbbot/internal/channel"
	"github.com/quizbowl/qbbot/internal/commands"
	"github.com/quizbowl/qbbot/internal/consoleplatform"
	"github.com/quizbowl/qbbot/internal/generators/ollama"
	"github.com/quizbowl/qbbot/internal/generators/vertex"
	"github.com/quizbowl/qbbot/internal/grader"
	"github.com/quizbowl/qbbot/internal/qbsource"
	"github.com/quizbowl/qbbot/pkg/config"
	"github.com/quizbowl/qbbot/pkg/logging"
	"github.com/quizbowl/qbbot/pkg/promptkit"
	"github.com/quizbowl/qbbot/pkg/types"
)

// CLI is the root command tree: a global --debug flag and one struct
// field per subcommand.
var CLI struct {
	Debug   bool       `help:"Enable debug logging." short:"d" env:"QB_DEBUG"`
	Serve   ServeCmd   `cmd:"" help:"Run the bot against a console chat session."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

// defaultOllamaModel is used when no model is configured, matching the
// judge backend's baseline expectation of a locally-pulled instruct model.
const defaultOllamaModel = "llama3"

// VersionCmd prints the build version.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Printf("qbbot %s\n", version)
	return nil
}

// ServeCmd wires config, the judge backend, and the command surface
// together over a console chat adapter and runs until stdin closes.
type ServeCmd struct {
	Config  string `help:"YAML config file path." type:"existingfile" name:"config"`
	Channel string `help:"Console channel name to attribute messages to." default:"console"`
}

func (s *ServeCmd) Run() error {
	level := slog.LevelInfo
	if CLI.Debug {
		level = slog.LevelDebug
	}

	cfg, err := config.LoadConfigKoanf(s.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Logging.Level != "" {
		level = logging.ParseLevel(cfg.Logging.Level)
	}
	logging.Configure(level, cfg.Logging.Format, os.Stderr)

	generator, embedder, err := buildGenerator(cfg.Generator)
	if err != nil {
		return fmt.Errorf("build generator: %w", err)
	}

	prompts, err := promptkit.New()
	if err != nil {
		return fmt.Errorf("load prompts: %w", err)
	}

	judge := grader.New(generator, embedder, prompts, cfg.Grading)
	source := qbsource.New(cfg.QuestionSource.BaseURL, cfg.QuestionSource.RateLimit, cfg.QuestionSource.RetryAttempts)
	pacing := channel.DurationsFromConfig(cfg.Pacing)

	platform := consoleplatform.New(types.ChannelID(s.Channel), os.Stdin, os.Stdout)
	manager := channel.NewManager(platform, judge, pacing)
	cmds := commands.New(platform, source, manager)

	slog.Info("qbbot serving on console", "channel", s.Channel)

	ctx := contextWithInterrupt()
	go platform.Run(ctx)
	return dispatchEvents(ctx, platform, cmds)
}

// buildGenerator picks the judge backend per the polymorphic-backend rule:
// a Google-style API key selects Vertex, otherwise a local Ollama endpoint.
// Only Ollama also serves as an embedder, since nothing here needs Vertex's
// embedding API.
func buildGenerator(cfg config.GeneratorConfig) (types.Generator, types.Embedder, error) {
	if cfg.GoogleAPIKey != "" {
		vcfg := vertex.DefaultConfig()
		vcfg.APIKey = cfg.GoogleAPIKey
		if cfg.VertexModel != "" {
			vcfg.Model = cfg.VertexModel
		}
		if cfg.Temperature != 0 {
			vcfg.Temperature = cfg.Temperature
		}
		gen, err := vertex.NewVertexTyped(vcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("build vertex generator: %w", err)
		}
		return gen, nil, nil
	}

	ocfg := ollama.DefaultConfig()
	ocfg.Model = defaultOllamaModel
	if cfg.OllamaURL != "" {
		ocfg.Host = cfg.OllamaURL
	}
	if cfg.OllamaModel != "" {
		ocfg.Model = cfg.OllamaModel
	}
	if cfg.Temperature != 0 {
		ocfg.Temperature = &cfg.Temperature
	}
	gen, err := ollama.NewOllamaTyped(ocfg)
	if err != nil {
		return nil, nil, fmt.Errorf("build ollama generator: %w", err)
	}
	return gen, gen, nil
}
