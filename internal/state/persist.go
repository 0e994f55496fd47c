package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"podforge/internal/script"
)

// FinalStateFile is the snapshot written at terminal workflow states.
const FinalStateFile = "final_state.json"

// ScriptsDir holds one JSON file per approved section.
const ScriptsDir = "scripts"

// Save writes the snapshot to workDir/final_state.json atomically.
func Save(workDir string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	path := filepath.Join(workDir, FinalStateFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Load reads a previously saved snapshot from workDir.
func Load(workDir string) (Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(workDir, FinalStateFile))
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.SectionScripts == nil {
		snap.SectionScripts = map[int]script.Section{}
	}
	if snap.SectionFeedback == nil {
		snap.SectionFeedback = map[int][]string{}
	}
	return snap, nil
}

// SaveSection writes an approved section under workDir/scripts/<id>.json as it
// is finalized.
func SaveSection(workDir string, section script.Section) error {
	dir := filepath.Join(workDir, ScriptsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create scripts directory: %w", err)
	}
	data, err := json.MarshalIndent(section, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal section %d: %w", section.SectionID, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.json", section.SectionID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write section %d: %w", section.SectionID, err)
	}
	return nil
}
