package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"podforge/internal/studio"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var episode string

	cmd := &cobra.Command{
		Use:   "generate <content-file>",
		Short: "Produce a podcast episode from a source document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.buildLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := studio.New(cfg, store, logger).Produce(runCtx, args[0], episode)
			if err != nil {
				if result != nil && result.RunID != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Run %s failed; partial artifacts in %s\n", result.RunID, result.WorkDir)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if result.Title != "" {
				fmt.Fprintf(out, "Episode: %s\n", result.Title)
			}
			fmt.Fprintf(out, "Run:     %s\n", result.RunID)
			fmt.Fprintf(out, "Output:  %s\n", result.OutputPath)
			fmt.Fprintf(out, "Sections generated: %d (%d workflow steps)\n",
				len(result.Snapshot.SectionScripts), len(result.Transitions))
			return nil
		},
	}
	cmd.Flags().StringVar(&episode, "name", "", "Episode name; reruns with the same name reuse cached segments")
	return cmd
}
