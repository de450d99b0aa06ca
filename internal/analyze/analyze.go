// Package analyze runs a small crew of model-backed agents that report word
// and character counts for a paragraph of text.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var ErrEmptyText = errors.New("text cannot be empty")

// Model is a single-turn text generation call.
type Model interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Agent is one specialist in the crew. Role and Goal frame every task it
// receives.
type Agent struct {
	Role string
	Goal string

	model Model
}

func NewAgent(role, goal string, model Model) *Agent {
	return &Agent{Role: role, Goal: goal, model: model}
}

func (a *Agent) Execute(ctx context.Context, task string) (string, error) {
	prompt := fmt.Sprintf("You are the %s. %s\n\nTask:\n%s", a.Role, a.Goal, task)
	output, err := a.model.GenerateText(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.Role, err)
	}
	output = strings.TrimSpace(output)
	if output == "" {
		return "", fmt.Errorf("%s returned empty output", a.Role)
	}
	return output, nil
}

// Manager delegates counting tasks to its specialists and combines their
// reports into one summary.
type Manager struct {
	words      *Agent
	characters *Agent
	logger     *slog.Logger
}

func NewManager(model Model, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		words: NewAgent(
			"Word Counter",
			"Count the words in a sentence accurately and report them alongside the original sentence.",
			model,
		),
		characters: NewAgent(
			"Character Counter",
			"Count the characters in a sentence, including spaces and punctuation.",
			model,
		),
		logger: logger,
	}
}

// Analysis is the combined crew output. The counts are parsed out of the
// specialists' "<label> Count: <number> [...]" replies.
type Analysis struct {
	WordCount int    `json:"word_count"`
	CharCount int    `json:"char_count"`
	Summary   string `json:"summary"`
}

var countPattern = regexp.MustCompile(`(?i)count\s*:\s*([0-9]+)`)

func parseCount(role, report string) (int, error) {
	match := countPattern.FindStringSubmatch(report)
	if match == nil {
		return 0, fmt.Errorf("%s report %q carries no count", role, report)
	}
	count, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("%s report %q: %w", role, report, err)
	}
	return count, nil
}

// Analyze asks each specialist for its count and merges both reports, one
// per line.
func (m *Manager) Analyze(ctx context.Context, text string) (Analysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Analysis{}, ErrEmptyText
	}

	wordTask := fmt.Sprintf(
		"Count the number of words in the following sentence and respond with exactly one line in the format:\nWord Count: <number> [<original sentence>]\n\nSentence: %s",
		text,
	)
	wordReport, err := m.words.Execute(ctx, wordTask)
	if err != nil {
		return Analysis{}, err
	}

	charTask := fmt.Sprintf(
		"Count the number of characters (including spaces and punctuation) in the following sentence and respond with exactly one line in the format:\nCharacter Count: <number> [<original sentence>]\n\nSentence: %s",
		text,
	)
	charReport, err := m.characters.Execute(ctx, charTask)
	if err != nil {
		return Analysis{}, err
	}

	wordCount, err := parseCount(m.words.Role, wordReport)
	if err != nil {
		return Analysis{}, err
	}
	charCount, err := parseCount(m.characters.Role, charReport)
	if err != nil {
		return Analysis{}, err
	}

	m.logger.DebugContext(ctx, "analysis complete",
		slog.Int("text_length", len(text)),
		slog.Int("word_count", wordCount),
		slog.Int("char_count", charCount),
	)

	return Analysis{
		WordCount: wordCount,
		CharCount: charCount,
		Summary:   wordReport + "\n" + charReport,
	}, nil
}
