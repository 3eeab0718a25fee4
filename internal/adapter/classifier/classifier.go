// Package classifier implements profile classification and candidate ranking
// as prompted calls to a chat model.
package classifier

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"xcreator/internal/domain"
	"xcreator/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var templates = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		ParseFS(promptTemplates, "templates/*.txt"),
)

// ErrMalformedReply means the model answered with something that is not the
// requested JSON.
var ErrMalformedReply = errors.New("malformed model reply")

// LLMClassifier implements port.Classifier and port.Ranker over a port.LLM.
type LLMClassifier struct {
	llm port.LLM
}

func New(llm port.LLM) *LLMClassifier {
	return &LLMClassifier{llm: llm}
}

type classifyData struct {
	port.ProfileSummary
	Samples []string
}

type rankData struct {
	Query      string
	Candidates []string
}

type verdictReply struct {
	Category   string `json:"category"`
	Confidence string `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

type rankReply struct {
	Ranking []int `json:"ranking"`
}

// Classify asks the model whether the profile is an organization or an individual.
func (c *LLMClassifier) Classify(ctx context.Context, summary port.ProfileSummary, samples []string) (domain.Verdict, error) {
	system, user, err := render("classify", classifyData{ProfileSummary: summary, Samples: samples})
	if err != nil {
		return domain.Verdict{}, err
	}

	reply, err := c.llm.GenerateWithSystem(ctx, system, user)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("classify @%s: %w", summary.Username, err)
	}
	return ParseVerdict(reply)
}

// Rank asks the model to order candidates by fit to query.
func (c *LLMClassifier) Rank(ctx context.Context, query string, candidates []string) ([]int, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	system, user, err := render("rank", rankData{Query: query, Candidates: candidates})
	if err != nil {
		return nil, err
	}

	reply, err := c.llm.GenerateWithSystem(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("rank %d candidates: %w", len(candidates), err)
	}
	return ParseRanking(reply)
}

// ParseVerdict decodes a classification reply. Unknown category names are
// kept verbatim so the caller can treat them as inconclusive.
func ParseVerdict(reply string) (domain.Verdict, error) {
	var v verdictReply
	if err := decodeJSON(reply, &v); err != nil {
		return domain.Verdict{}, err
	}

	category := domain.Category(strings.ToLower(strings.TrimSpace(v.Category)))
	if parsed, err := domain.ParseCategory(v.Category); err == nil {
		category = parsed
	}
	return domain.Verdict{
		Category:   category,
		Confidence: strings.ToLower(strings.TrimSpace(v.Confidence)),
		Reasoning:  strings.TrimSpace(v.Reasoning),
	}, nil
}

// ParseRanking decodes a ranking reply: {"ranking":[...]} or a bare array.
func ParseRanking(reply string) ([]int, error) {
	body := stripFences(reply)
	if strings.HasPrefix(body, "[") {
		var ranking []int
		if err := json.Unmarshal([]byte(body), &ranking); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
		}
		return ranking, nil
	}

	var r rankReply
	if err := decodeJSON(reply, &r); err != nil {
		return nil, err
	}
	return r.Ranking, nil
}

func render(name string, data any) (system, user string, err error) {
	var sys, usr bytes.Buffer
	if err := templates.ExecuteTemplate(&sys, name+"_system.txt", data); err != nil {
		return "", "", fmt.Errorf("render %s system prompt: %w", name, err)
	}
	if err := templates.ExecuteTemplate(&usr, name+"_user.txt", data); err != nil {
		return "", "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return sys.String(), usr.String(), nil
}

// decodeJSON extracts the outermost JSON object from reply, tolerating code
// fences and chatter around it.
func decodeJSON(reply string, out any) error {
	body := stripFences(reply)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON object in %q", ErrMalformedReply, truncate(reply, 80))
	}
	if err := json.Unmarshal([]byte(body[start:end+1]), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	_ port.Classifier = (*LLMClassifier)(nil)
	_ port.Ranker     = (*LLMClassifier)(nil)
)
