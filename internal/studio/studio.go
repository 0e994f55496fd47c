package studio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"podforge/internal/audio"
	"podforge/internal/config"
	"podforge/internal/llm"
	"podforge/internal/logging"
	"podforge/internal/roles"
	"podforge/internal/runstore"
	"podforge/internal/script"
	"podforge/internal/segmentcache"
	"podforge/internal/services"
	"podforge/internal/state"
	"podforge/internal/textutil"
	"podforge/internal/tts"
	"podforge/internal/workflow"
)

const (
	// OutputFile is the final episode file name inside a run's work dir.
	OutputFile = "podcast.mp3"

	lockFile    = "podforge.lock"
	contentFile = "content.md"
)

// Studio drives a full episode run: scripting through the role engine, then
// synthesis and assembly into a single audio file.
type Studio struct {
	cfg    *config.Config
	store  *runstore.Store
	logger *slog.Logger
}

// New constructs a Studio over the given configuration and run ledger.
func New(cfg *config.Config, store *runstore.Store, logger *slog.Logger) *Studio {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Studio{cfg: cfg, store: store, logger: logger}
}

// Result summarizes a completed run.
type Result struct {
	RunID       string
	Episode     string
	Title       string
	WorkDir     string
	OutputPath  string
	Snapshot    state.Snapshot
	Transitions []workflow.Transition
}

// Produce runs the whole pipeline for one source document. The episode name
// fixes the work dir, so a rerun with the same name reuses every cached
// segment; an empty name derives one from the content file. The returned
// Result carries the final snapshot even when assembly fails, so callers can
// inspect scripts from partial runs.
func (s *Studio) Produce(ctx context.Context, contentPath, episode string) (*Result, error) {
	content, resolvedPath, err := readContent(contentPath)
	if err != nil {
		return nil, err
	}
	episode = episodeName(episode, resolvedPath)

	runID := uuid.New().String()
	ctx = services.WithRunID(ctx, runID)
	logger := s.logger.With(
		logging.String(logging.FieldRunID, runID),
		logging.String("episode", episode))

	workDir := filepath.Join(s.cfg.Paths.WorkDir, episode)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	release, err := acquireLock(workDir)
	if err != nil {
		return nil, err
	}
	defer release()

	// Keep the source alongside the run artifacts so a run is reproducible
	// from its work dir alone.
	if err := os.WriteFile(filepath.Join(workDir, contentFile), []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("copy content into work dir: %w", err)
	}

	if _, err := s.store.CreateRun(ctx, runID, "", workDir); err != nil {
		return nil, err
	}

	result := &Result{RunID: runID, Episode: episode, WorkDir: workDir}

	snap, trace, scriptErr := s.runScripting(ctx, logger, runID, workDir, content)
	result.Snapshot = snap
	result.Transitions = trace

	if err := state.Save(workDir, snap); err != nil {
		logger.Error("persist final state", logging.Error(err))
	}
	s.recordTrace(ctx, logger, runID, trace)

	if snap.Analysis != nil && strings.TrimSpace(snap.Analysis.Title) != "" {
		result.Title = snap.Analysis.Title
		if err := s.store.SetTitle(ctx, runID, snap.Analysis.Title); err != nil {
			logger.Error("record run title", logging.Error(err))
		}
	}

	if scriptErr != nil {
		s.markFailed(ctx, logger, runID, scriptErr)
		return result, scriptErr
	}
	if err := s.store.UpdateStatus(ctx, runID, runstore.StatusScripted, ""); err != nil {
		logger.Error("update run status", logging.Error(err))
	}

	outputPath, assembleErr := s.runAssembly(ctx, logger, runID, workDir, snap)
	if assembleErr != nil {
		s.markFailed(ctx, logger, runID, assembleErr)
		return result, assembleErr
	}
	result.OutputPath = outputPath

	if err := s.store.UpdateStatus(ctx, runID, runstore.StatusCompleted, ""); err != nil {
		logger.Error("update run status", logging.Error(err))
	}
	logger.Info("run completed",
		logging.String("output", outputPath),
		logging.Int("sections", len(snap.SectionScripts)))
	return result, nil
}

func (s *Studio) runScripting(ctx context.Context, logger *slog.Logger, runID, workDir, content string) (state.Snapshot, []workflow.Transition, error) {
	if err := s.store.UpdateStatus(ctx, runID, runstore.StatusScripting, ""); err != nil {
		logger.Error("update run status", logging.Error(err))
	}

	client := llm.NewClient(llm.Config{
		APIKey:         s.cfg.LLM.APIKey,
		BaseURL:        s.cfg.LLM.BaseURL,
		Model:          s.cfg.LLM.Model,
		TimeoutSeconds: s.cfg.LLM.TimeoutSeconds,
	})

	set := roles.Set{
		Analyzer:  roles.NewAnalyzer(client, logger),
		Planner:   roles.NewPlanner(client, logger),
		Generator: roles.NewGenerator(client, logger),
		Editor:    roles.NewEditor(client, logger),
	}
	instr := roles.DefaultInstructions(s.cfg.Show, s.cfg.Speakers)

	engine, err := workflow.New(set, instr, workflow.Config{
		RevisionLimit: s.cfg.Workflow.RevisionLimit,
		RoundBudget:   s.cfg.Workflow.RoundBudget,
	}, logger, workflow.WithSectionApprovedHook(func(section script.Section) error {
		return state.SaveSection(workDir, section)
	}))
	if err != nil {
		return state.New(content), nil, err
	}

	return engine.Run(ctx, content)
}

func (s *Studio) runAssembly(ctx context.Context, logger *slog.Logger, runID, workDir string, snap state.Snapshot) (string, error) {
	if err := s.store.UpdateStatus(ctx, runID, runstore.StatusAssembling, ""); err != nil {
		logger.Error("update run status", logging.Error(err))
	}

	sections := make([]script.Section, 0, len(snap.SectionScripts))
	for _, id := range snap.SectionIDs() {
		sections = append(sections, snap.SectionScripts[id])
	}
	if len(sections) == 0 {
		return "", services.Wrap(services.ErrValidation, "studio", "assemble", "run produced no sections", nil)
	}

	cache, err := segmentcache.New(filepath.Join(workDir, segmentcache.Dir), logger)
	if err != nil {
		return "", err
	}

	registry, err := s.buildRegistry()
	if err != nil {
		return "", err
	}

	assembler := audio.NewAssembler(cache, registry, s.cfg.Speakers,
		audio.NewFFmpeg(s.cfg.FFmpegBinary()),
		audio.Config{Workers: s.cfg.Workflow.SynthesisWorkers},
		logger)

	outputPath := filepath.Join(workDir, OutputFile)
	if err := assembler.Assemble(ctx, sections, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// buildRegistry registers every provider the configured speakers need.
// Providers that no speaker uses are skipped so missing credentials for them
// never block a run.
func (s *Studio) buildRegistry() (*tts.Registry, error) {
	needed := map[string]bool{}
	for _, speaker := range s.cfg.Speakers {
		needed[speaker.Provider] = true
	}

	var providers []tts.Provider
	for provider := range needed {
		switch provider {
		case "openai":
			if s.cfg.TTS.OpenAIAPIKey == "" {
				return nil, services.Wrap(services.ErrConfiguration, "studio", "assemble", "tts.openai_api_key is required by a configured speaker", nil)
			}
			providers = append(providers, tts.NewOpenAI(tts.OpenAIConfig{
				APIKey:         s.cfg.TTS.OpenAIAPIKey,
				BaseURL:        s.cfg.TTS.OpenAIBaseURL,
				TimeoutSeconds: s.cfg.TTS.RequestTimeout,
			}))
		case "elevenlabs":
			if s.cfg.TTS.ElevenLabsAPIKey == "" {
				return nil, services.Wrap(services.ErrConfiguration, "studio", "assemble", "tts.elevenlabs_api_key is required by a configured speaker", nil)
			}
			providers = append(providers, tts.NewElevenLabs(tts.ElevenLabsConfig{
				APIKey:         s.cfg.TTS.ElevenLabsAPIKey,
				BaseURL:        s.cfg.TTS.ElevenLabsBaseURL,
				TimeoutSeconds: s.cfg.TTS.RequestTimeout,
			}))
		case "hume":
			if s.cfg.TTS.HumeAPIKey == "" {
				return nil, services.Wrap(services.ErrConfiguration, "studio", "assemble", "tts.hume_api_key is required by a configured speaker", nil)
			}
			providers = append(providers, tts.NewHume(tts.HumeConfig{
				APIKey:         s.cfg.TTS.HumeAPIKey,
				BaseURL:        s.cfg.TTS.HumeBaseURL,
				TimeoutSeconds: s.cfg.TTS.RequestTimeout,
			}))
		default:
			return nil, services.Wrap(services.ErrConfiguration, "studio", "assemble",
				fmt.Sprintf("unknown tts provider %q", provider), nil)
		}
	}
	return tts.NewRegistry(providers...), nil
}

func (s *Studio) recordTrace(ctx context.Context, logger *slog.Logger, runID string, trace []workflow.Transition) {
	if len(trace) == 0 {
		return
	}
	records := make([]runstore.TransitionRecord, 0, len(trace))
	for _, step := range trace {
		records = append(records, runstore.TransitionRecord{
			RunID:     runID,
			FromState: string(step.From),
			Action:    string(step.Kind),
			ToState:   string(step.To),
			SectionID: step.Action.SectionID,
		})
	}
	if err := s.store.RecordTransitions(ctx, runID, records); err != nil {
		logger.Error("record transitions", logging.Error(err))
	}
}

func (s *Studio) markFailed(ctx context.Context, logger *slog.Logger, runID string, cause error) {
	if err := s.store.UpdateStatus(ctx, runID, runstore.StatusFailed, services.Message(cause)); err != nil {
		logger.Error("update run status", logging.Error(err))
	}
}

func readContent(path string) (string, string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", "", services.Wrap(services.ErrValidation, "studio", "read content",
			fmt.Sprintf("cannot read content file %q", path), err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", "", services.Wrap(services.ErrValidation, "studio", "read content",
			fmt.Sprintf("content file %q is empty", path), nil)
	}
	return content, expanded, nil
}

// episodeName returns the requested name sanitized for use as a directory, or
// one derived from the content file when no name was given. The name is the
// identity of the episode's work dir and segment cache across reruns.
func episodeName(requested, contentPath string) string {
	name := strings.TrimSpace(requested)
	if name == "" {
		base := filepath.Base(contentPath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return textutil.SanitizeToken(name)
}

// acquireLock takes an exclusive lock on the run's work dir so two processes
// never write the same artifacts.
func acquireLock(workDir string) (func(), error) {
	lock := flock.New(filepath.Join(workDir, lockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire work dir lock: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "studio", "lock",
			fmt.Sprintf("work dir %q is in use by another process", workDir), nil)
	}
	return func() { _ = lock.Unlock() }, nil
}
