package store

import (
	"fmt"
	"strings"
)

// Phase enumerates the stages a generation run moves through. Phases only
// advance, a run never returns to an earlier phase.
type Phase int

const (
	PhaseStarted Phase = iota
	PhaseTopicsFound
	PhaseSearchResultsFound
	PhaseArticlesGenerated
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStarted:
		return "started"
	case PhaseTopicsFound:
		return "topics_found"
	case PhaseSearchResultsFound:
		return "search_results_found"
	case PhaseArticlesGenerated:
		return "articles_generated"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// GraphState is the externally visible status of a generation run. Topics
// is set only in PhaseTopicsFound and later carries forward implicitly,
// Reason is set only in PhaseFailed.
type GraphState struct {
	Phase  Phase
	Topics []string
	Reason string
}

func Started() GraphState {
	return GraphState{Phase: PhaseStarted}
}

func TopicsFound(topics []string) GraphState {
	return GraphState{Phase: PhaseTopicsFound, Topics: topics}
}

func SearchResultsFound() GraphState {
	return GraphState{Phase: PhaseSearchResultsFound}
}

func ArticlesGenerated() GraphState {
	return GraphState{Phase: PhaseArticlesGenerated}
}

func Done() GraphState {
	return GraphState{Phase: PhaseDone}
}

func Failed(reason string) GraphState {
	return GraphState{Phase: PhaseFailed, Reason: reason}
}

// Terminal reports whether no further state changes are allowed.
func (s GraphState) Terminal() bool {
	return s.Phase == PhaseDone || s.Phase == PhaseFailed
}

// CanTransition reports whether next is a legal successor of s. Phases are
// strictly increasing, except that any non-terminal state may fail.
func (s GraphState) CanTransition(next GraphState) bool {
	if s.Terminal() {
		return false
	}
	if next.Phase == PhaseFailed {
		return true
	}
	return next.Phase > s.Phase
}

// Encode serializes the state to its wire form. Topic names are joined
// with "|" after the phase name, failure reasons follow a ":".
func (s GraphState) Encode() string {
	switch s.Phase {
	case PhaseTopicsFound:
		return "topics_found:" + strings.Join(s.Topics, "|")
	case PhaseFailed:
		if s.Reason == "" {
			return "failed"
		}
		return "failed:" + s.Reason
	default:
		return s.Phase.String()
	}
}

// ParseState decodes a wire form status produced by Encode.
func ParseState(raw string) (GraphState, error) {
	name, rest, _ := strings.Cut(raw, ":")

	switch name {
	case "started":
		return Started(), nil
	case "topics_found":
		var topics []string
		for _, t := range strings.Split(rest, "|") {
			if t != "" {
				topics = append(topics, t)
			}
		}
		return TopicsFound(topics), nil
	case "search_results_found":
		return SearchResultsFound(), nil
	case "articles_generated":
		return ArticlesGenerated(), nil
	case "done":
		return Done(), nil
	case "failed":
		return Failed(rest), nil
	default:
		return GraphState{}, fmt.Errorf("unknown status %q", raw)
	}
}
