package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"subtide/internal/config"
	"subtide/internal/deps"
	"subtide/internal/language"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var languages []string

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a video for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			id, err := client.Submit(cmd.Context(), args[0], languages)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&languages, "translate", "t", nil, "Target languages to translate into once transcribed")
	return cmd
}

func newVideosCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "videos",
		Short: "List video records",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			videos, err := client.ListVideos(cmd.Context())
			if err != nil {
				return err
			}
			if len(videos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No videos.")
				return nil
			}

			rows := make([][]string, 0, len(videos))
			for _, video := range videos {
				lang := "-"
				if video.DetectedLanguage != "" {
					lang = language.Display(video.DetectedLanguage)
				}
				rows = append(rows, []string{
					video.ID,
					truncate(video.Title, 40),
					string(video.Status),
					fmt.Sprintf("%d%%", video.Progress),
					formatDuration(video.DurationSeconds),
					lang,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Status", "Progress", "Duration", "Language"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var withSubtitles bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one video record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			video, err := client.GetVideo(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", video.ID)
			fmt.Fprintf(out, "Title:     %s\n", video.Title)
			fmt.Fprintf(out, "URL:       %s\n", video.SourceURL)
			fmt.Fprintf(out, "Status:    %s (%d%%)\n", video.Status, video.Progress)
			fmt.Fprintf(out, "Duration:  %s\n", formatDuration(video.DurationSeconds))
			if video.DetectedLanguage != "" {
				fmt.Fprintf(out, "Language:  %s\n", language.Display(video.DetectedLanguage))
			}
			fmt.Fprintf(out, "Subtitles: %d\n", len(video.Subtitles))

			if withSubtitles {
				fmt.Fprintln(out)
				for _, sub := range video.Subtitles {
					fmt.Fprintf(out, "[%8.2f - %8.2f] %s\n", sub.StartTime, sub.EndTime, sub.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSubtitles, "subtitles", false, "Print the full subtitle list")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a video record and its translations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.DeleteVideo(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "translate <id> <language>",
		Short: "Translate a completed video's subtitles",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			translation, err := client.CreateTranslation(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Translated %d subtitles into %s\n",
				len(translation.Subtitles), language.Display(translation.Language))
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and external tool status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client, err := ctx.client()
			if err != nil {
				return err
			}
			if health, err := client.Health(cmd.Context()); err != nil {
				fmt.Fprintf(out, "Daemon:    unreachable (%v)\n", err)
			} else {
				subscribers := 0
				if count, ok := health["subscribers"].(float64); ok {
					subscribers = int(count)
				}
				fmt.Fprintf(out, "Daemon:    running at %s (%d progress subscribers)\n",
					cfg.Paths.APIBind, subscribers)
			}

			rows := make([][]string, 0, 3)
			for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
				state := "ok"
				if !status.Available {
					state = status.Detail
				}
				rows = append(rows, []string{status.Name, status.Command, state})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Tool", "Command", "Status"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := os.WriteFile(target, []byte(config.SampleConfig()), 0o644); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set the translation api_key (or export TRANSLATE_API_KEY) before requesting translations.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config:     %s\n", ctx.configPath)
			fmt.Fprintf(out, "Data dir:   %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "Temp dir:   %s\n", cfg.Paths.TempDir)
			fmt.Fprintf(out, "Log dir:    %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "API bind:   %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "Workers:    %d (queue %d)\n", cfg.Workflow.Workers, cfg.Workflow.QueueCapacity)
			fmt.Fprintf(out, "Whisper:    %s (model %s)\n", cfg.Whisper.Binary, cfg.Whisper.ModelPath)
			key := "unset"
			if strings.TrimSpace(cfg.Translate.APIKey) != "" {
				key = "set"
			}
			fmt.Fprintf(out, "Translate:  %s (api key %s)\n", cfg.Translate.BaseURL, key)
			return nil
		},
	}
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
	}
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
