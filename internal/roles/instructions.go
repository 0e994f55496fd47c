package roles

import (
	"encoding/json"
	"fmt"

	"podforge/internal/script"
)

// Instructions holds the per-role system prompts handed to Act. The prompt
// text itself comes from configuration or the embedded defaults; roles treat
// it as opaque.
type Instructions struct {
	Analyzer  string
	Planner   string
	Generator string
	Editor    string
}

// ForRole returns the instruction text for the named role.
func (i Instructions) ForRole(name Name) string {
	switch name {
	case RoleAnalyzer:
		return i.Analyzer
	case RolePlanner:
		return i.Planner
	case RoleGenerator:
		return i.Generator
	case RoleEditor:
		return i.Editor
	default:
		return ""
	}
}

// DefaultInstructions renders the built-in prompts with show and speaker
// details substituted in.
func DefaultInstructions(show script.Show, speakers map[string]script.Speaker) Instructions {
	showJSON, _ := json.MarshalIndent(show, "", "  ")
	speakerJSON, _ := json.MarshalIndent(speakers, "", "  ")
	return Instructions{
		Analyzer: fmt.Sprintf(analyzerPrompt, show.Language),
		Planner:  fmt.Sprintf(plannerPrompt, string(showJSON), show.MinSegments, show.MaxSegments),
		Generator: fmt.Sprintf(generatorPrompt, string(showJSON), string(speakerJSON),
			show.Language),
		Editor: fmt.Sprintf(editorPrompt, show.Language),
	}
}

const analyzerPrompt = `You are the content analyzer for a podcast production team.
Read the provided material and respond with a single JSON object:
{"title": "...", "summary": "...", "key_points": ["..."], "tone": "...",
"target_audience": "...", "potential_segments": [{"topic": "...", "duration": 2.5,
"discussion_points": ["..."]}], "sensitive_topics": ["..."]}.
Write all free text in %s. Respond with JSON only.`

const plannerPrompt = `You are the episode planner for this show:
%s
Decide the next step. Plans should enumerate between %d and %d sections.
Reply {"command": "plan", "plan": "..."} to create or revise the plan,
{"command": "advance", "section_id": N} to start or resume a section,
or {"command": "wrap_up"} once a conclusion section exists. JSON only.`

const generatorPrompt = `You are the script writer for this show:
%s
The speakers, keyed by the id you must reference in each segment:
%s
Produce one section as a JSON object:
{"section_id": N, "section_title": "...", "segments": [{"id": 1, "speaker": "key",
"content": "...", "type": "narrative"|"reaction"|"question", "blank_duration": 0.5}]}.
Segment ids are sequential from 1. Write dialogue in %s. JSON only.`

const editorPrompt = `You are the editor reviewing one podcast section at a time.
Judge flow, factual grounding against the analysis, speaker balance, and length.
The dialogue language is %s.
Reply {"approved": true} when the section is final, or
{"approved": false, "feedback": "specific, actionable notes"}. JSON only.`
