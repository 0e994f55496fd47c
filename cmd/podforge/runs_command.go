package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"podforge/internal/runstore"
)

const (
	ansiGreen = "\x1b[32m"
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect episode runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(ctx, cmd, 0)
		},
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRuns(ctx, cmd, limit)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 0, "Maximum runs to list (default 50)")

	runsCmd.AddCommand(listCmd)
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func listRuns(ctx *commandContext, cmd *cobra.Command, limit int) error {
	store, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		title := run.Title
		if title == "" {
			title = "(untitled)"
		}
		rows = append(rows, []string{
			shortID(run.ID),
			title,
			styleStatus(run.Status, colorize),
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	fmt.Fprintln(out, renderTable([]string{"Run", "Title", "Status", "Started"}, rows))
	return nil
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its workflow trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := resolveRun(cmd, store, args[0])
			if err != nil {
				return err
			}
			transitions, err := store.TransitionsForRun(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "Run:      %s\n", run.ID)
			if run.Title != "" {
				fmt.Fprintf(out, "Title:    %s\n", run.Title)
			}
			fmt.Fprintf(out, "Status:   %s\n", styleStatus(run.Status, colorize))
			fmt.Fprintf(out, "Work dir: %s\n", run.WorkDir)
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
			}

			if len(transitions) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(transitions))
			for _, tr := range transitions {
				section := ""
				if tr.SectionID > 0 {
					section = strconv.Itoa(tr.SectionID)
				}
				rows = append(rows, []string{
					strconv.Itoa(tr.Seq),
					tr.FromState,
					tr.Action,
					tr.ToState,
					section,
				})
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable([]string{"#", "From", "Action", "To", "Section"}, rows, 0, 4))
			return nil
		},
	}
}

// resolveRun accepts a full run id or a unique prefix of one.
func resolveRun(cmd *cobra.Command, store *runstore.Store, id string) (*runstore.Run, error) {
	run, err := store.GetRun(cmd.Context(), id)
	if err == nil {
		return run, nil
	}
	runs, listErr := store.ListRuns(cmd.Context(), 0)
	if listErr != nil {
		return nil, err
	}
	var match *runstore.Run
	for i := range runs {
		if strings.HasPrefix(runs[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
			}
			match = &runs[i]
		}
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func styleStatus(status runstore.Status, colorize bool) string {
	label := cases.Title(language.English).String(strings.ReplaceAll(string(status), "_", " "))
	if !colorize {
		return label
	}
	switch status {
	case runstore.StatusCompleted:
		return ansiGreen + label + ansiReset
	case runstore.StatusFailed:
		return ansiRed + label + ansiReset
	default:
		return label
	}
}
