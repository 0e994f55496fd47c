package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newSpeakersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "speakers",
		Short: "List the configured speakers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(cfg.Speakers))
			for key := range cfg.Speakers {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				speaker := cfg.Speakers[key]
				rows = append(rows, []string{
					key,
					speaker.Name,
					speaker.Provider,
					speaker.VoiceID,
					speaker.About,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(),
				renderTable([]string{"Key", "Name", "Provider", "Voice", "About"}, rows))
			return nil
		},
	}
}
