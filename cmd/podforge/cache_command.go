package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"podforge/internal/segmentcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage cached segment audio",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show segment cache usage per episode",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			episodes, err := episodeDirectories(cfg.Paths.WorkDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var rows [][]string
			var totalArtifacts int
			var totalBytes int64
			for _, episode := range episodes {
				stats, err := segmentcache.Measure(filepath.Join(cfg.Paths.WorkDir, episode, segmentcache.Dir))
				if err != nil {
					return err
				}
				if stats.Artifacts == 0 {
					continue
				}
				totalArtifacts += stats.Artifacts
				totalBytes += stats.TotalBytes
				rows = append(rows, []string{
					episode,
					fmt.Sprintf("%d", stats.Artifacts),
					humanBytes(stats.TotalBytes),
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No cached segments.")
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"Episode", "Segments", "Size"}, rows, 1, 2))
			fmt.Fprintf(out, "Total: %d segments, %s\n", totalArtifacts, humanBytes(totalBytes))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear [episode]",
		Short: "Delete cached segment audio for an episode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if all {
				if len(args) != 0 {
					return fmt.Errorf("--all does not take an episode name")
				}
				episodes, err := episodeDirectories(cfg.Paths.WorkDir)
				if err != nil {
					return err
				}
				cleared := 0
				for _, episode := range episodes {
					dir := filepath.Join(cfg.Paths.WorkDir, episode, segmentcache.Dir)
					stats, err := segmentcache.Measure(dir)
					if err != nil {
						return err
					}
					if stats.Artifacts == 0 {
						continue
					}
					if err := segmentcache.Clear(dir); err != nil {
						return err
					}
					cleared++
				}
				if cleared == 0 {
					fmt.Fprintln(out, "No cached segments to clear.")
					return nil
				}
				fmt.Fprintf(out, "Cleared segment caches for %d episodes\n", cleared)
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("episode name required (or use --all)")
			}
			episode, err := resolveEpisodeDir(cfg.Paths.WorkDir, args[0])
			if err != nil {
				return err
			}
			if err := segmentcache.Clear(filepath.Join(cfg.Paths.WorkDir, episode, segmentcache.Dir)); err != nil {
				return err
			}
			fmt.Fprintf(out, "Cleared segment cache for %s\n", episode)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clear caches for every episode")
	return cmd
}

// episodeDirectories lists episode work dirs, sorted by name.
func episodeDirectories(workDir string) ([]string, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read work directory: %w", err)
	}
	var episodes []string
	for _, entry := range entries {
		if entry.IsDir() {
			episodes = append(episodes, entry.Name())
		}
	}
	sort.Strings(episodes)
	return episodes, nil
}

// resolveEpisodeDir accepts a full episode name or a unique prefix of one.
func resolveEpisodeDir(workDir, name string) (string, error) {
	episodes, err := episodeDirectories(workDir)
	if err != nil {
		return "", err
	}
	var match string
	for _, episode := range episodes {
		if episode == name {
			return episode, nil
		}
		if strings.HasPrefix(episode, name) {
			if match != "" {
				return "", fmt.Errorf("episode prefix %q is ambiguous", name)
			}
			match = episode
		}
	}
	if match == "" {
		return "", fmt.Errorf("no episode directory matches %q", name)
	}
	return match, nil
}

func humanBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%d B", v)
	}
	div := int64(unit)
	exp := 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	value := float64(v) / float64(div)
	return fmt.Sprintf("%.1f %ciB", value, "KMGTPEZY"[exp])
}
