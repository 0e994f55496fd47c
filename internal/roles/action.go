package roles

import (
	"fmt"

	"podforge/internal/script"
)

// Kind identifies an Action variant.
type Kind string

const (
	KindAnalyzed        Kind = "analyzed"
	KindPlanned         Kind = "planned"
	KindSectionAdvanced Kind = "section_advanced"
	KindWrappedUp       Kind = "wrapped_up"
	KindSectionWritten  Kind = "section_written"
	KindReviewRequested Kind = "review_requested"
	KindSectionApproved Kind = "section_approved"
	KindFailed          Kind = "failed"
)

// Action is the tagged outcome of a role invocation. Roles never mutate the
// shared context themselves; the workflow engine applies actions. Only the
// fields relevant to the Kind are populated.
type Action struct {
	Kind      Kind
	Analysis  *script.ContentAnalysis
	PlanText  string
	SectionID int
	Section   *script.Section
	Feedback  string
	Reason    string
}

// Analyzed reports a completed content analysis. Analyzer only.
func Analyzed(analysis *script.ContentAnalysis) Action {
	return Action{Kind: KindAnalyzed, Analysis: analysis}
}

// Planned reports new or revised execution plan text. Planner only.
func Planned(text string) Action {
	return Action{Kind: KindPlanned, PlanText: text}
}

// SectionAdvanced signals "begin or resume section id". Planner only.
func SectionAdvanced(id int) Action {
	return Action{Kind: KindSectionAdvanced, SectionID: id}
}

// WrappedUp signals that no further sections remain. Planner only.
func WrappedUp() Action {
	return Action{Kind: KindWrappedUp}
}

// SectionWritten carries a freshly generated section script. Generator only.
func SectionWritten(id int, section *script.Section) Action {
	return Action{Kind: KindSectionWritten, SectionID: id, Section: section}
}

// ReviewRequested carries editorial feedback requiring another generator pass.
// Editor only.
func ReviewRequested(id int, feedback string) Action {
	return Action{Kind: KindReviewRequested, SectionID: id, Feedback: feedback}
}

// SectionApproved marks a section as final. Editor only.
func SectionApproved(id int) Action {
	return Action{Kind: KindSectionApproved, SectionID: id}
}

// Failed reports unrecoverable input. Any role may emit it.
func Failed(reason string) Action {
	return Action{Kind: KindFailed, Reason: reason}
}

// Name identifies a capability role.
type Name string

const (
	RoleAnalyzer  Name = "analyzer"
	RolePlanner   Name = "planner"
	RoleGenerator Name = "generator"
	RoleEditor    Name = "editor"
)

var allowedKinds = map[Name]map[Kind]struct{}{
	RoleAnalyzer: {
		KindAnalyzed: {},
		KindFailed:   {},
	},
	RolePlanner: {
		KindPlanned:         {},
		KindSectionAdvanced: {},
		KindWrappedUp:       {},
		KindFailed:          {},
	},
	RoleGenerator: {
		KindSectionWritten: {},
		KindFailed:         {},
	},
	RoleEditor: {
		KindReviewRequested: {},
		KindSectionApproved: {},
		KindFailed:          {},
	},
}

// AllowedFor reports whether a role may emit the given action kind.
func AllowedFor(role Name, kind Kind) bool {
	kinds, ok := allowedKinds[role]
	if !ok {
		return false
	}
	_, ok = kinds[kind]
	return ok
}

func (a Action) String() string {
	switch a.Kind {
	case KindSectionAdvanced, KindSectionWritten, KindReviewRequested, KindSectionApproved:
		return fmt.Sprintf("%s(%d)", a.Kind, a.SectionID)
	case KindFailed:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Reason)
	default:
		return string(a.Kind)
	}
}
