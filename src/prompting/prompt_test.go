package prompting

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hybridchat/src/model"
)

func sampleMatches() []model.VectorMatch {
	return []model.VectorMatch{
		{ID: "city_hanoi", Score: 0.91, Metadata: model.NodeMeta{ID: "city_hanoi", Type: "City", Name: "Hanoi", Tags: []string{"culture", "food"}}},
		{ID: "city_da_lat", Score: 0.88, Metadata: model.NodeMeta{ID: "city_da_lat", Type: "City", Name: "Da Lat"}},
	}
}

func sampleFacts() []model.GraphFact {
	return []model.GraphFact{
		{Source: "city_hanoi", Rel: "NEAR", TargetID: "attr_hoan_kiem", TargetName: "Hoan Kiem Lake", TargetDesc: "A romantic lake in the heart of the old city", Labels: []string{"Attraction", "Entity"}},
	}
}

func TestTripLength(t *testing.T) {
	assert.Equal(t, 3, TripLength("plan a trip to Hanoi"))
	assert.Equal(t, 4, TripLength("plan a 4 day trip"))
}

func TestBuildPromptStructure(t *testing.T) {
	msgs := BuildPrompt("romantic 4 day trip", sampleMatches(), sampleFacts(), Preferences{Budget: "medium", Interests: "romantic"})
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)

	assert.Contains(t, msgs[0].Content, "exactly 4-day")
	assert.Contains(t, msgs[1].Content, "User query: romantic 4 day trip")
	assert.Contains(t, msgs[1].Content, "budget=medium")
	assert.Contains(t, msgs[1].Content, "Hoan Kiem Lake")
	assert.Contains(t, msgs[1].Content, "city_hanoi")
}

func TestBuildPromptChainOfThoughtTemplate(t *testing.T) {
	msgs := BuildPrompt("trip", nil, nil, Preferences{Template: TemplateChainOfThought})
	assert.Contains(t, msgs[0].Content, "Reasoning")

	msgs = BuildPrompt("trip", nil, nil, Preferences{Template: "unknown"})
	assert.Contains(t, msgs[0].Content, "concise")
}

func TestSearchSummaryRanksByScore(t *testing.T) {
	matches := []model.VectorMatch{
		{ID: "low", Score: 0.2, Metadata: model.NodeMeta{Name: "Low"}},
		{ID: "high", Score: 0.9, Metadata: model.NodeMeta{Name: "High"}},
	}
	summary := searchSummary(matches, nil)
	require.Less(t, strings.Index(summary, "High"), strings.Index(summary, "Low"))
}

func TestSearchSummaryTruncatesDescAtRuneBoundary(t *testing.T) {
	facts := []model.GraphFact{{
		TargetName: "Da Lat",
		TargetDesc: strings.Repeat("Thành phố ngàn hoa ", 20),
	}}
	summary := searchSummary(nil, facts)

	require.True(t, utf8.ValidString(summary))
	assert.Contains(t, summary, "Thành phố")
}

func TestValidateResponse(t *testing.T) {
	assert.Equal(t, "Valid", ValidateResponse("Day 1 ... Day 2 ... Day 3 done", 3))
	assert.Equal(t, "Response incomplete: Missing Day 4.", ValidateResponse("Day 1 ... Day 2 ... Day 3", 4))
}

func TestSanitizeAnswer(t *testing.T) {
	raw := "Visit Hanoi  (score: 0.92) [node_id: city_hanoi]\nNote: internal\nDay 1: walk around (node_id: attr_x)"
	clean := SanitizeAnswer(raw)

	assert.NotContains(t, clean, "score:")
	assert.NotContains(t, clean, "node_id")
	assert.NotContains(t, clean, "Note:")
	assert.NotContains(t, clean, "  ")
	assert.Contains(t, clean, "Day 1: walk around")
}

func TestExpandCitationsFromVectorMetadata(t *testing.T) {
	out := ExpandCitations("Start at [city_hanoi] then [id: city_da_lat]", sampleMatches(), nil)
	assert.Equal(t, "Start at City (culture, food) then City", out)
}

func TestExpandCitationsFromGraphFacts(t *testing.T) {
	out := ExpandCitations("Evening at [attr_hoan_kiem]", nil, sampleFacts())
	assert.Equal(t, "Evening at Attraction (romantic)", out)
}

func TestExpandCitationsLeavesUnknownIntact(t *testing.T) {
	out := ExpandCitations("See [somewhere_else]", sampleMatches(), sampleFacts())
	assert.Equal(t, "See [somewhere_else]", out)
}
