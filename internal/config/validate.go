package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		problems = append(problems, "paths.api_bind must be set")
	}
	if strings.TrimSpace(c.Downloader.Binary) == "" {
		problems = append(problems, "downloader.binary must be set")
	}
	if c.Whisper.ChunkSeconds <= 0 {
		problems = append(problems, "whisper.chunk_seconds must be positive")
	}
	if c.Whisper.MinChunkSeconds <= 0 {
		problems = append(problems, "whisper.min_chunk_seconds must be positive")
	}
	if c.Whisper.BeamSize <= 0 {
		problems = append(problems, "whisper.beam_size must be positive")
	}
	if c.Whisper.Temperature < 0 || c.Whisper.Temperature > 1 {
		problems = append(problems, "whisper.temperature must be within [0, 1]")
	}
	if c.Whisper.ConfidenceWarn < 0 || c.Whisper.ConfidenceWarn > 1 {
		problems = append(problems, "whisper.confidence_warn must be within [0, 1]")
	}
	if c.Whisper.VADSensitivity < 0 || c.Whisper.VADSensitivity > 3 {
		problems = append(problems, "whisper.vad_sensitivity must be within [0, 3]")
	}
	if c.Translate.BaseURL == "" {
		problems = append(problems, "translate.base_url must be set")
	}
	if c.Workflow.Workers <= 0 {
		problems = append(problems, "workflow.workers must be positive")
	}
	if c.Workflow.QueueCapacity <= 0 {
		problems = append(problems, "workflow.queue_capacity must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		problems = append(problems, "workflow.heartbeat_interval must be positive")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
