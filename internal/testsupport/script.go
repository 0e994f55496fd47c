package testsupport

import (
	"fmt"

	"podforge/internal/script"
)

// Section builds a valid section with the given id and alternating speakers.
func Section(id, segments int) script.Section {
	sec := script.Section{
		SectionID: id,
		Title:     fmt.Sprintf("Section %d", id),
	}
	speakers := []string{"speaker1", "speaker2"}
	for i := 1; i <= segments; i++ {
		sec.Segments = append(sec.Segments, script.Segment{
			ID:      i,
			Speaker: speakers[(i-1)%len(speakers)],
			Content: fmt.Sprintf("Line %d of section %d.", i, id),
			Kind:    script.KindNarrative,
		})
	}
	return sec
}

// Analysis builds a minimal valid content analysis.
func Analysis(title string) *script.ContentAnalysis {
	return &script.ContentAnalysis{
		Title:          title,
		Summary:        "A short summary.",
		KeyPoints:      []string{"one", "two"},
		Tone:           "curious",
		TargetAudience: "general listeners",
	}
}
