package router

import (
	"strings"

	"github.com/oselz/docent/internal/assistant"
	"github.com/oselz/docent/internal/session"
)

// Target is where a parsed message gets dispatched.
type Target int

const (
	// TargetAssistantMeta is the /assistant control command.
	TargetAssistantMeta Target = iota

	// TargetNamedAssistant is a one-shot /<command> invocation.
	TargetNamedAssistant

	// TargetShared is a shared utility command (search or chart).
	TargetShared

	// TargetActiveAssistant forwards to the session's active assistant.
	TargetActiveAssistant

	// TargetRAG is the default retrieval-augmented query path.
	TargetRAG
)

// SharedKind identifies which shared command was matched.
type SharedKind int

const (
	SharedNone SharedKind = iota
	SharedSearch
	SharedChart
)

// Decision is the outcome of parsing one inbound message.
type Decision struct {
	Target Target

	// Assistant is the matched assistant's command for
	// TargetNamedAssistant and TargetActiveAssistant.
	Assistant string

	// Shared identifies the shared command for TargetShared.
	Shared SharedKind

	// Residual is the text handed to the selected handler: the argument
	// of a meta command, the message after a /<command> token, the
	// search query, or the full message.
	Residual string
}

// searchPrefixes are the colon-style search triggers; /search and
// !search are handled as whitespace-delimited tokens.
var searchPrefixes = []string{"search:", "web:", "lookup:"}

// Parse resolves the dispatch target for message m, consulting the
// session's active assistant. Precedence: /assistant meta, registered
// /<command>, shared search/chart, active assistant, RAG. Token matching
// is case-insensitive up to the first whitespace; an unmatched /token is
// ordinary text.
func Parse(m string, sess *session.Session, registry *assistant.Registry) Decision {
	trimmed := strings.TrimSpace(m)
	lower := strings.ToLower(trimmed)

	// 1. Reserved meta command.
	if token, rest := splitToken(trimmed); strings.EqualFold(token, "/assistant") {
		return Decision{Target: TargetAssistantMeta, Residual: rest}
	}

	// 2. Registered assistant command.
	if strings.HasPrefix(trimmed, "/") {
		token, rest := splitToken(trimmed)
		if d, ok := registry.Lookup(token[1:]); ok {
			return Decision{Target: TargetNamedAssistant, Assistant: d.Command, Residual: rest}
		}
		// Unmatched /token falls through as plain text.
	}

	// 3. Shared commands.
	if token, rest := splitToken(trimmed); strings.EqualFold(token, "/search") || strings.EqualFold(token, "!search") {
		return Decision{Target: TargetShared, Shared: SharedSearch, Residual: rest}
	}
	for _, prefix := range searchPrefixes {
		if strings.HasPrefix(lower, prefix) {
			query := strings.TrimSpace(trimmed[len(prefix):])
			return Decision{Target: TargetShared, Shared: SharedSearch, Residual: query}
		}
	}
	if token, _ := splitToken(trimmed); strings.EqualFold(token, "/chart") {
		return Decision{Target: TargetShared, Shared: SharedChart, Residual: trimmed}
	}

	// 4. Active assistant.
	if sess != nil && sess.ActiveAssistant != "" {
		return Decision{Target: TargetActiveAssistant, Assistant: sess.ActiveAssistant, Residual: trimmed}
	}

	// 5. Default: RAG.
	return Decision{Target: TargetRAG, Residual: trimmed}
}

// splitToken splits off the first whitespace-delimited token.
func splitToken(s string) (token, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t\n")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
