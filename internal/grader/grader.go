// Package grader implements the layered answer-grading pipeline: a
// canonical Levenshtein match against the sanitized answer, a match against
// any marked-span extraction inside the raw answer text, an optional
// embedding cosine-similarity match, and finally an LLM judge call.
// Grounded on the original's check_correct_answer.
package grader

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/quizbowl/qbbot/pkg/attempt"
	"github.com/quizbowl/qbbot/pkg/config"
	"github.com/quizbowl/qbbot/pkg/promptkit"
	"github.com/quizbowl/qbbot/pkg/types"
)

// VerdictKind classifies the judge's decision on a submitted answer.
type VerdictKind int

const (
	// Correct means the answer matched, by any stage of the pipeline.
	Correct VerdictKind = iota
	// Incorrect means the answer did not match, with Detail carrying the
	// judge's raw explanation when an LLM call produced it.
	Incorrect
	// Prompt means the answer was close enough to ask the player for more,
	// with Detail carrying the follow-up text to relay to them.
	Prompt
)

// Verdict is the grader's decision on one submitted answer.
type Verdict struct {
	Kind   VerdictKind
	Detail string
}

// AnswerKey holds both the raw, possibly-marked-up answer text (with
// <b>/<u> spans marking acceptable partial answers) and its sanitized,
// plain-text form.
type AnswerKey struct {
	Answer          string
	AnswerSanitized string
}

var (
	trailingParenRe = regexp.MustCompile(`\s+[(\[].+$`)
	extractSubRe    = regexp.MustCompile(`<\w>(.+?)</\w>`)
	thinkBlockRe    = regexp.MustCompile(`(?s)<think>.+?</think>\s*`)
)

// Grader runs the layered grading pipeline against a generator judge.
type Grader struct {
	generator types.Generator
	embedder  types.Embedder
	prompts   *promptkit.Kit
	cfg       config.GradingConfig
}

// New builds a Grader. embedder may be nil; the embedding stage is skipped
// when cfg.EmbeddingEnabled is false or no embedder is available.
func New(generator types.Generator, embedder types.Embedder, prompts *promptkit.Kit, cfg config.GradingConfig) *Grader {
	return &Grader{generator: generator, embedder: embedder, prompts: prompts, cfg: cfg}
}

// levenshteinThreshold defaults to the original's hardcoded 0.3 normalized
// distance when the config leaves it unset.
func (g *Grader) levenshteinThreshold() float64 {
	if g.cfg.LevenshteinThreshold > 0 {
		return g.cfg.LevenshteinThreshold
	}
	return 0.3
}

func (g *Grader) embeddingThreshold() float64 {
	if g.cfg.EmbeddingThreshold > 0 {
		return g.cfg.EmbeddingThreshold
	}
	return 0.9
}

// normalizedDistance is the edit distance divided by the longer string's
// length, the Go equivalent of rapidfuzz's normalized_distance.
func normalizedDistance(a, b string) float64 {
	ar, br := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	if len(ar) == 0 && len(br) == 0 {
		return 0
	}
	dist := levenshtein.DistanceForStrings(ar, br, levenshtein.DefaultOptions)
	maxLen := len(ar)
	if len(br) > maxLen {
		maxLen = len(br)
	}
	return float64(dist) / float64(maxLen)
}

func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
	}
	for _, v := range b {
		normB += v * v
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (sqrt(normA) * sqrt(normB))
}

func sqrt(x float64) float64 {
	if x == 0 {
		return 0
	}
	z := x
	for i := 0; i < 40; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// CheckAnswer grades a submitted answer against the answer key, trying the
// fast deterministic stages before falling back to the LLM judge.
func (g *Grader) CheckAnswer(ctx context.Context, questionSoFar, userAnswer string, key AnswerKey, prompted bool) (Verdict, error) {
	normalizedAnswer := trailingParenRe.ReplaceAllString(key.AnswerSanitized, "")

	if normalizedDistance(normalizedAnswer, userAnswer) < g.levenshteinThreshold() {
		return Verdict{Kind: Correct}, nil
	}

	stripped := strings.NewReplacer("<b>", "", "</b>", "").Replace(key.Answer)
	for _, match := range extractSubRe.FindAllStringSubmatch(stripped, -1) {
		sub := match[1]
		if normalizedDistance(sub, userAnswer) < g.levenshteinThreshold() {
			return Verdict{Kind: Correct}, nil
		}
	}

	if g.cfg.EmbeddingEnabled && g.embedder != nil {
		verdict, matched, err := g.checkEmbedding(ctx, userAnswer, normalizedAnswer)
		if err != nil {
			return Verdict{}, err
		}
		if matched {
			return verdict, nil
		}
	}

	return g.checkWithJudge(ctx, questionSoFar, userAnswer, key, prompted)
}

func (g *Grader) checkEmbedding(ctx context.Context, userAnswer, normalizedAnswer string) (Verdict, bool, error) {
	userVec, err := g.embedder.Embed(ctx, userAnswer)
	if err != nil {
		return Verdict{}, false, fmt.Errorf("embed user answer: %w", err)
	}
	keyVec, err := g.embedder.Embed(ctx, normalizedAnswer)
	if err != nil {
		return Verdict{}, false, fmt.Errorf("embed answer key: %w", err)
	}

	similarity := cosineSimilarity(userVec, keyVec)
	threshold := g.embeddingThreshold()
	if similarity >= threshold {
		return Verdict{Kind: Correct}, true, nil
	}
	if similarity >= threshold-0.1 {
		return Verdict{Kind: Prompt, Detail: "PROMPT"}, true, nil
	}
	return Verdict{}, false, nil
}

func (g *Grader) checkWithJudge(ctx context.Context, questionSoFar, userAnswer string, key AnswerKey, prompted bool) (Verdict, error) {
	includeQuestion := strings.Contains(key.AnswerSanitized, "read") ||
		strings.Contains(key.AnswerSanitized, "before") ||
		strings.Contains(key.AnswerSanitized, "mention")

	questionContext := "Remember, don't think about the question but simply compare the user's answer to the correct answer."
	if includeQuestion {
		questionContext = fmt.Sprintf(
			"Since deciding on whether to prompt or mark as incorrect depends on how far we've read, I will also provide the question. Here is the question read so far:\n```\n%s\n```",
			questionSoFar,
		)
	}

	rendered, err := g.prompts.Render(promptkit.Context{
		QuestionContext: questionContext,
		Answer:          key.Answer,
		Response:        userAnswer,
	}, prompted)
	if err != nil {
		return Verdict{}, fmt.Errorf("render judge prompt: %w", err)
	}

	conv := attempt.NewConversation()
	conv.AddPrompt(rendered)

	messages, err := g.generator.Generate(ctx, conv, 1)
	if err != nil {
		return Verdict{}, fmt.Errorf("judge call: %w", err)
	}
	if len(messages) == 0 {
		return Verdict{}, fmt.Errorf("judge returned no response")
	}

	raw := messages[len(messages)-1].Content
	cleaned := strings.TrimSpace(thinkBlockRe.ReplaceAllString(raw, ""))

	switch cleaned {
	case "CORRECT":
		return Verdict{Kind: Correct}, nil
	case "INCORRECT":
		return Verdict{Kind: Incorrect, Detail: raw}, nil
	default:
		if prompted {
			return Verdict{Kind: Incorrect, Detail: raw}, nil
		}
		return Verdict{Kind: Prompt, Detail: cleaned}, nil
	}
}
