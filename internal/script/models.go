package script

import (
	"fmt"
	"strings"

	"podforge/internal/services"
)

// SegmentKind classifies how a segment functions within the conversation.
type SegmentKind string

const (
	KindNarrative SegmentKind = "narrative"
	KindReaction  SegmentKind = "reaction"
	KindQuestion  SegmentKind = "question"
)

var segmentKinds = map[SegmentKind]struct{}{
	KindNarrative: {},
	KindReaction:  {},
	KindQuestion:  {},
}

// ParseSegmentKind converts a string into a known SegmentKind.
func ParseSegmentKind(value string) (SegmentKind, bool) {
	kind := SegmentKind(strings.ToLower(strings.TrimSpace(value)))
	_, ok := segmentKinds[kind]
	return kind, ok
}

// VoiceSettings holds provider-specific tone parameters, each bounded in [0,1].
type VoiceSettings struct {
	Stability       float64 `json:"stability" toml:"stability"`
	SimilarityBoost float64 `json:"similarity_boost" toml:"similarity_boost"`
	Style           float64 `json:"style" toml:"style"`
	SpeakerBoost    bool    `json:"speaker_boost" toml:"speaker_boost"`
}

// Speaker binds an on-air identity to a synthesis voice. Immutable once
// loaded; script segments reference speakers by their registry key, never by
// copy.
type Speaker struct {
	Name          string         `json:"name" toml:"name"`
	About         string         `json:"about" toml:"about"`
	Provider      string         `json:"provider" toml:"provider"`
	VoiceID       string         `json:"voice_id" toml:"voice_id"`
	VoiceModel    string         `json:"voice_model" toml:"voice_model"`
	VoiceSettings *VoiceSettings `json:"voice_settings,omitempty" toml:"voice_settings"`
}

// Show describes the podcast being produced.
type Show struct {
	Name        string `json:"name" toml:"name"`
	About       string `json:"about" toml:"about"`
	Language    string `json:"language" toml:"language"`
	MinSegments int    `json:"min_segments" toml:"min_segments"`
	MaxSegments int    `json:"max_segments" toml:"max_segments"`
}

// ContentSegment is a candidate section proposed during content analysis.
type ContentSegment struct {
	Topic            string   `json:"topic"`
	Duration         float64  `json:"duration"`
	DiscussionPoints []string `json:"discussion_points"`
}

// ContentAnalysis is the analyzer's one-time reading of the source material.
// Read-only after it is stored on the shared context.
type ContentAnalysis struct {
	Title             string           `json:"title"`
	Summary           string           `json:"summary"`
	KeyPoints         []string         `json:"key_points"`
	Tone              string           `json:"tone"`
	TargetAudience    string           `json:"target_audience"`
	PotentialSegments []ContentSegment `json:"potential_segments"`
	SensitiveTopics   []string         `json:"sensitive_topics"`
}

// Segment is one speaker utterance. BlankDuration is trailing silence in
// seconds appended after the utterance during assembly.
type Segment struct {
	ID            int         `json:"id"`
	Speaker       string      `json:"speaker"`
	Content       string      `json:"content"`
	Kind          SegmentKind `json:"type"`
	BlankDuration float64     `json:"blank_duration,omitempty"`
}

// Section is a coherent scripted part of the show, identified by a stable
// 1-based integer id.
type Section struct {
	SectionID int       `json:"section_id"`
	Title     string    `json:"section_title"`
	Segments  []Segment `json:"segments"`
}

// Validate checks an analysis against the schema expectations.
func (a *ContentAnalysis) Validate() error {
	if a == nil {
		return services.Wrap(services.ErrValidation, "script", "analysis", "analysis is nil", nil)
	}
	if strings.TrimSpace(a.Title) == "" {
		return services.Wrap(services.ErrValidation, "script", "analysis", "title is required", nil)
	}
	if strings.TrimSpace(a.Summary) == "" {
		return services.Wrap(services.ErrValidation, "script", "analysis", "summary is required", nil)
	}
	for i, seg := range a.PotentialSegments {
		if strings.TrimSpace(seg.Topic) == "" {
			return services.Wrap(services.ErrValidation, "script", "analysis",
				fmt.Sprintf("potential segment %d has no topic", i), nil)
		}
	}
	return nil
}

// Validate checks a section against the schema expectations. Segment ids must
// be positive and unique within the section, speakers non-empty, and every
// kind must be one of the known values.
func (s *Section) Validate() error {
	if s == nil {
		return services.Wrap(services.ErrValidation, "script", "section", "section is nil", nil)
	}
	if s.SectionID <= 0 {
		return services.Wrap(services.ErrValidation, "script", "section",
			fmt.Sprintf("section id %d must be positive", s.SectionID), nil)
	}
	if len(s.Segments) == 0 {
		return services.Wrap(services.ErrValidation, "script", "section",
			fmt.Sprintf("section %d has no segments", s.SectionID), nil)
	}
	seen := make(map[int]struct{}, len(s.Segments))
	for _, seg := range s.Segments {
		if seg.ID <= 0 {
			return services.Wrap(services.ErrValidation, "script", "section",
				fmt.Sprintf("section %d: segment id %d must be positive", s.SectionID, seg.ID), nil)
		}
		if _, dup := seen[seg.ID]; dup {
			return services.Wrap(services.ErrValidation, "script", "section",
				fmt.Sprintf("section %d: duplicate segment id %d", s.SectionID, seg.ID), nil)
		}
		seen[seg.ID] = struct{}{}
		if strings.TrimSpace(seg.Speaker) == "" {
			return services.Wrap(services.ErrValidation, "script", "section",
				fmt.Sprintf("section %d: segment %d has no speaker", s.SectionID, seg.ID), nil)
		}
		if strings.TrimSpace(seg.Content) == "" {
			return services.Wrap(services.ErrValidation, "script", "section",
				fmt.Sprintf("section %d: segment %d has no content", s.SectionID, seg.ID), nil)
		}
		if _, ok := segmentKinds[seg.Kind]; !ok {
			return services.Wrap(services.ErrValidation, "script", "section",
				fmt.Sprintf("section %d: segment %d has unknown kind %q", s.SectionID, seg.ID, seg.Kind), nil)
		}
		if seg.BlankDuration < 0 {
			return services.Wrap(services.ErrValidation, "script", "section",
				fmt.Sprintf("section %d: segment %d has negative blank duration", s.SectionID, seg.ID), nil)
		}
	}
	return nil
}

// ValidateVoiceSettings confirms tone parameters stay within [0,1].
func (v *VoiceSettings) Validate() error {
	if v == nil {
		return nil
	}
	for name, value := range map[string]float64{
		"stability":        v.Stability,
		"similarity_boost": v.SimilarityBoost,
		"style":            v.Style,
	} {
		if value < 0 || value > 1 {
			return services.Wrap(services.ErrValidation, "script", "voice settings",
				fmt.Sprintf("%s %.3f outside [0,1]", name, value), nil)
		}
	}
	return nil
}
