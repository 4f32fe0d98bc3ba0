package prompting

import (
	"fmt"
	"regexp"
	"strings"

	"hybridchat/src/model"
)

var (
	scoreRe      = regexp.MustCompile(`(?i)score:\s*\d+\.\d+`)
	bracketIDRe  = regexp.MustCompile(`(?i)\[\s*node_id\s*:\s*[^\]]+\]`)
	parenIDRe    = regexp.MustCompile(`(?i)\(\s*node_id\s*:\s*[^\)]+\)`)
	multiSpaceRe = regexp.MustCompile(` {2,}`)
	metaLineRe   = regexp.MustCompile(`^\s*(Note:|Validation:)`)
	citationRe   = regexp.MustCompile(`\[\s*([^\]]+?)\s*\]`)
	citationIDRe = regexp.MustCompile(`(?i)(?:(?:node[_ ]?id|nodeid|id)\s*:\s*)?([A-Za-z0-9_-]+)`)
)

// descKeywords are surfaced when a citation resolves through a graph
// fact with no metadata tags.
var descKeywords = []string{"romantic", "beach", "culture", "heritage", "food", "nature", "mountain"}

// ValidateResponse checks that the itinerary covers every requested day.
// It returns "Valid" or a short diagnostic.
func ValidateResponse(response string, tripLength int) string {
	if !strings.Contains(response, fmt.Sprintf("Day %d", tripLength)) {
		return fmt.Sprintf("Response incomplete: Missing Day %d.", tripLength)
	}
	return "Valid"
}

// SanitizeAnswer strips internal artifacts (scores, node id markers,
// validation notes) before the answer is shown to the user.
func SanitizeAnswer(response string) string {
	response = scoreRe.ReplaceAllString(response, "")
	response = bracketIDRe.ReplaceAllString(response, "")
	response = parenIDRe.ReplaceAllString(response, "")
	response = multiSpaceRe.ReplaceAllString(response, " ")

	var kept []string
	for _, line := range strings.Split(response, "\n") {
		if metaLineRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// ExpandCitations rewrites bracketed node references like [city_da_lat]
// into readable type-and-tag labels using the search results.
func ExpandCitations(response string, matches []model.VectorMatch, facts []model.GraphFact) string {
	metaByID := make(map[string]model.NodeMeta, len(matches))
	for _, m := range matches {
		if m.ID != "" {
			metaByID[m.ID] = m.Metadata
		}
	}
	factsByID := make(map[string]model.GraphFact, len(facts))
	for _, f := range facts {
		if f.TargetID != "" {
			factsByID[f.TargetID] = f
		}
	}

	return citationRe.ReplaceAllStringFunc(response, func(whole string) string {
		inner := strings.TrimSpace(whole[1 : len(whole)-1])
		nodeID := inner
		if sub := citationIDRe.FindStringSubmatch(inner); sub != nil {
			nodeID = sub[1]
		}

		if meta, ok := metaByID[nodeID]; ok {
			typ := meta.Type
			if typ == "" {
				typ = "Entity"
			}
			if len(meta.Tags) > 0 {
				return fmt.Sprintf("%s (%s)", typ, strings.Join(meta.Tags, ", "))
			}
			return typ
		}

		if f, ok := factsByID[nodeID]; ok {
			typ := "Entity"
			if len(f.Labels) > 0 && f.Labels[0] != "" {
				typ = f.Labels[0]
			}
			desc := strings.ToLower(f.TargetDesc)
			var found []string
			for _, kw := range descKeywords {
				if strings.Contains(desc, kw) {
					found = append(found, kw)
				}
			}
			if len(found) > 0 {
				return fmt.Sprintf("%s (%s)", typ, strings.Join(found, ", "))
			}
			return typ
		}

		return whole
	})
}
