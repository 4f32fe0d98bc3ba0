// Package prompting builds chat prompts from hybrid search results and
// post-processes model answers.
package prompting

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"

	"hybridchat/src/model"
)

// Template names accepted in Preferences.Template.
const (
	TemplateConcise        = "concise"
	TemplateChainOfThought = "chain_of_thought"
)

// Preferences carries the user's session preferences into the prompt.
type Preferences struct {
	Budget    string
	Interests string
	Template  string
}

// TripLength infers the itinerary length from the query text.
func TripLength(query string) int {
	if strings.Contains(query, "4") {
		return 4
	}
	return 3
}

func systemText(template string, tripLength int) string {
	switch template {
	case TemplateChainOfThought:
		return fmt.Sprintf("You are a helpful travel assistant who explains reasoning clearly. "+
			"Provide exactly %d-day itineraries with timings and local tips. "+
			"After the itinerary, include a short 'Reasoning' section that lists the key assumptions "+
			"and steps used to produce the plan (3-5 bullet points). Keep the reasoning concise and factual.", tripLength)
	default:
		return fmt.Sprintf("You are a helpful, concise travel assistant. "+
			"Provide exactly %d-day itineraries with timings and local tips. Be concise and factual.", tripLength)
	}
}

// searchSummary condenses the best matches and facts into a short
// prioritized block placed ahead of the full context.
func searchSummary(matches []model.VectorMatch, facts []model.GraphFact) string {
	ranked := make([]model.VectorMatch, len(matches))
	copy(ranked, matches)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}

	var b strings.Builder
	b.WriteString("Prioritized Vector matches:\n")
	for _, m := range ranked {
		name := m.Metadata.Name
		if name == "" {
			name = "Unknown"
		}
		typ := m.Metadata.Type
		if typ == "" {
			typ = "Unknown"
		}
		fmt.Fprintf(&b, "- %s: %s (tags: %s, score: %.2f)\n", name, typ, strings.Join(m.Metadata.Tags, ", "), m.Score)
	}

	b.WriteString("\nPrioritized Graph facts:\n")
	top := facts
	if len(top) > 7 {
		top = top[:7]
	}
	for _, f := range top {
		fmt.Fprintf(&b, "- %s: %s...\n", f.TargetName, truncateRunes(f.TargetDesc, 120))
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncateRunes cuts text at a rune boundary so multi-byte characters are
// never split.
func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// BuildPrompt assembles the system and user messages for one question.
func BuildPrompt(query string, matches []model.VectorMatch, facts []model.GraphFact, prefs Preferences) []*schema.Message {
	tripLength := TripLength(query)
	system := systemText(prefs.Template, tripLength)

	var vecContext strings.Builder
	top := matches
	if len(top) > 10 {
		top = top[:10]
	}
	for _, m := range top {
		fmt.Fprintf(&vecContext, "- id: %s, name: %s, type: %s, score: %.4f\n", m.ID, m.Metadata.Name, m.Metadata.Type, m.Score)
	}

	var graphContext strings.Builder
	topFacts := facts
	if len(topFacts) > 15 {
		topFacts = topFacts[:15]
	}
	for _, f := range topFacts {
		fmt.Fprintf(&graphContext, "- (%s) -[%s]-> (%s) %s: %s\n", f.Source, f.Rel, f.TargetID, f.TargetName, f.TargetDesc)
	}

	var user strings.Builder
	user.WriteString("User query: " + query + "\n\n")
	fmt.Fprintf(&user, "Preferences: budget=%s, interests=%s\n\n", prefs.Budget, prefs.Interests)
	user.WriteString("Summary:\n" + searchSummary(matches, facts) + "\n\n")
	user.WriteString("Top semantic matches:\n" + vecContext.String() + "\n")
	user.WriteString("Graph facts:\n" + graphContext.String() + "\n")
	user.WriteString("Please produce the requested output.")

	return []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user.String()),
	}
}
