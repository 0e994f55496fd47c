package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"podforge/internal/llm"
	"podforge/internal/logging"
	"podforge/internal/script"
	"podforge/internal/state"
)

// Analyzer produces the one-time content analysis from the raw material.
type Analyzer struct {
	client *llm.Client
	logger *slog.Logger
}

// NewAnalyzer constructs the analyzer role.
func NewAnalyzer(client *llm.Client, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		client: client,
		logger: logging.NewComponentLogger(logger, "analyzer"),
	}
}

func (a *Analyzer) Name() Name { return RoleAnalyzer }

// Act reads the raw content from the snapshot and returns an Analyzed action
// carrying the structured analysis, or Failed when there is nothing to
// analyze.
func (a *Analyzer) Act(ctx context.Context, snap state.Snapshot, instructions string) (Action, error) {
	if strings.TrimSpace(snap.Content) == "" {
		return Failed("no content to analyze"), nil
	}

	user := fmt.Sprintf("Analyze the following content for a podcast episode.\n\n%s", snap.Content)
	payload, err := a.client.CompleteJSON(ctx, instructions, user)
	if err != nil {
		return Action{}, fmt.Errorf("analyzer: %w", err)
	}

	var analysis script.ContentAnalysis
	if err := llm.DecodeJSON(payload, &analysis); err != nil {
		return Action{}, fmt.Errorf("analyzer: parse payload: %w", err)
	}
	if err := analysis.Validate(); err != nil {
		return Action{}, fmt.Errorf("analyzer: %w", err)
	}

	a.logger.Info("content analyzed",
		logging.String(logging.FieldEventType, "analysis_complete"),
		logging.String("title", analysis.Title),
		logging.Int("key_points", len(analysis.KeyPoints)),
		logging.Int("candidate_segments", len(analysis.PotentialSegments)))

	return Analyzed(&analysis), nil
}
