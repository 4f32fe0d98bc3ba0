// Package chat wires vector search, graph context and the chat model
// into the interactive travel assistant.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"hybridchat/src/embed"
	"hybridchat/src/graph"
	"hybridchat/src/model"
	"hybridchat/src/prompting"
	"hybridchat/src/vector"
)

const (
	firstAttemptTokens = 1100
	retryTokens        = 1200
	topK               = 10
)

// chatModel is the surface of the completion backend the service needs.
type chatModel interface {
	Generate(ctx context.Context, messages []*schema.Message, maxTokens int) (string, error)
}

// vectorSearcher queries the vector index.
type vectorSearcher interface {
	Query(ctx context.Context, vec []float64, topK int) ([]model.VectorMatch, error)
}

// graphFetcher resolves graph context for matched node ids.
type graphFetcher interface {
	FetchContext(nodeIDs []string) ([]model.GraphFact, error)
}

// Service answers travel questions with hybrid vector+graph retrieval.
type Service struct {
	Embed   *embed.Client
	Vector  vectorSearcher
	Fetcher graphFetcher
	Model   chatModel
	Log     zerolog.Logger
}

// NewService builds the chat service from its concrete parts.
func NewService(emb *embed.Client, vec *vector.Client, fetcher *graph.Fetcher, m *prompting.ChatModel, log zerolog.Logger) *Service {
	return &Service{Embed: emb, Vector: vec, Fetcher: fetcher, Model: m, Log: log}
}

// Answer runs the full pipeline for one question. Graph failures degrade
// to a vector-only answer rather than failing the request.
func (s *Service) Answer(ctx context.Context, query string, prefs prompting.Preferences) (string, error) {
	vec, err := s.Embed.EmbedText(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.Vector.Query(ctx, vec, topK)
	if err != nil {
		return "", fmt.Errorf("vector search failed: %w", err)
	}

	matchIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		matchIDs = append(matchIDs, m.ID)
	}

	facts, err := s.Fetcher.FetchContext(matchIDs)
	if err != nil {
		s.Log.Warn().Err(err).Msg("Could not fetch graph context, using vector-only response")
		facts = nil
	}

	prompt := prompting.BuildPrompt(query, matches, facts, prefs)
	answer, err := s.Model.Generate(ctx, prompt, firstAttemptTokens)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	// Incomplete answers are usually token truncation. Retry once with a
	// follow-up message, without surfacing the failure to the user.
	if prompting.ValidateResponse(answer, prompting.TripLength(query)) != "Valid" {
		extended := append(prompt, schema.UserMessage(
			"The previous response was incomplete. Please complete the missing day(s) and ensure all days are covered."))
		retried, retryErr := s.Model.Generate(ctx, extended, retryTokens)
		if retryErr == nil {
			answer = retried
		} else {
			s.Log.Warn().Err(retryErr).Msg("Retry for incomplete answer failed, keeping first attempt")
		}
	}

	answer = prompting.ExpandCitations(answer, matches, facts)
	return prompting.SanitizeAnswer(answer), nil
}

// Interactive runs the terminal chat loop until EOF or exit/quit.
func (s *Service) Interactive(ctx context.Context, in io.Reader, out io.Writer, template string) error {
	reader := bufio.NewScanner(in)
	reader.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprintln(out, "Hybrid travel assistant. Type 'exit' to quit.")

	fmt.Fprint(out, "Enter your budget (e.g., low, medium, high): ")
	budget := readLine(reader)
	if budget == "" {
		budget = "medium"
	}

	fmt.Fprint(out, "Enter your interests (e.g., romantic, adventure, culture): ")
	interests := readLine(reader)
	if interests == "" {
		interests = "romantic"
	}

	prefs := prompting.Preferences{
		Budget:    strings.ToLower(budget),
		Interests: strings.ToLower(interests),
		Template:  template,
	}

	for {
		fmt.Fprint(out, "\nEnter your travel question: ")
		if !reader.Scan() {
			return reader.Err()
		}
		query := strings.TrimSpace(reader.Text())
		if query == "" || query == "exit" || query == "quit" {
			return nil
		}

		answer, err := s.Answer(ctx, query, prefs)
		if err != nil {
			s.Log.Error().Err(err).Msg("Failed to answer question")
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		fmt.Fprintln(out, "\n=== Assistant Answer ===")
		fmt.Fprintln(out)
		fmt.Fprintln(out, answer)
		fmt.Fprintln(out, "\n=== End ===")
	}
}

func readLine(sc *bufio.Scanner) string {
	if !sc.Scan() {
		return ""
	}
	return strings.TrimSpace(sc.Text())
}
