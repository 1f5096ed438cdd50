package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/sparkload/internal/warehouse/schema"
	"github.com/spf13/viper"
)

// Match predicates for resolving staged songplays against the songs table.
const (
	MatchLengthWithinDuration = schema.MatchLengthWithinDuration
	MatchExact                = schema.MatchExact
	MatchTitleArtist          = schema.MatchTitleArtist
)

// PipelineConfig tunes the transformation and load stages.
type PipelineConfig struct {
	MatchPredicate string
	LoadBatchSize  int
	FilePattern    string
	SongPlayPage   string
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MatchPredicate: MatchLengthWithinDuration,
		LoadBatchSize:  500,
		FilePattern:    "*.json",
		SongPlayPage:   "NextSong",
	}
}

// LoadPipeline reads pipeline.yml when present and lets SPARKLOAD_PIPELINE_* variables override it.
func LoadPipeline() (PipelineConfig, error) {
	v := viper.New()

	v.SetConfigName("pipeline")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/sparkload")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SPARKLOAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPipelineConfig()
	v.SetDefault("pipeline.matchPredicate", defaults.MatchPredicate)
	v.SetDefault("pipeline.loadBatchSize", defaults.LoadBatchSize)
	v.SetDefault("pipeline.filePattern", defaults.FilePattern)
	v.SetDefault("pipeline.songPlayPage", defaults.SongPlayPage)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return PipelineConfig{}, fmt.Errorf("read pipeline config: %w", err)
		}
	}

	cfg := PipelineConfig{
		MatchPredicate: strings.ToLower(strings.TrimSpace(v.GetString("pipeline.matchPredicate"))),
		LoadBatchSize:  v.GetInt("pipeline.loadBatchSize"),
		FilePattern:    strings.TrimSpace(v.GetString("pipeline.filePattern")),
		SongPlayPage:   strings.TrimSpace(v.GetString("pipeline.songPlayPage")),
	}
	if err := ValidatePipeline(cfg); err != nil {
		return PipelineConfig{}, err
	}
	return cfg, nil
}

func ValidatePipeline(cfg PipelineConfig) error {
	switch cfg.MatchPredicate {
	case MatchLengthWithinDuration, MatchExact, MatchTitleArtist:
	default:
		return fmt.Errorf("pipeline.matchPredicate %q is not supported", cfg.MatchPredicate)
	}
	if cfg.LoadBatchSize <= 0 {
		return errors.New("pipeline.loadBatchSize must be positive")
	}
	if strings.TrimSpace(cfg.FilePattern) == "" {
		return errors.New("pipeline.filePattern cannot be empty")
	}
	if strings.TrimSpace(cfg.SongPlayPage) == "" {
		return errors.New("pipeline.songPlayPage cannot be empty")
	}
	return nil
}
