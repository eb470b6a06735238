package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/seekerhut/ticketrag/internal/ai"
	"github.com/seekerhut/ticketrag/internal/model"
	apperr "github.com/seekerhut/ticketrag/internal/pkg/errors"
)

// Synthesizer turns a query plus its matches into natural-language text.
// Implementations are interchangeable behind this one capability; swapping
// one never changes the search contract.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, matches []model.TicketMatch) (string, error)
}

// TemplateSynthesizer needs no external backend and is always available. It
// doubles as the fallback when the generative path is down.
type TemplateSynthesizer struct{}

func NewTemplateSynthesizer() *TemplateSynthesizer {
	return &TemplateSynthesizer{}
}

func (s *TemplateSynthesizer) Synthesize(ctx context.Context, query string, matches []model.TicketMatch) (string, error) {
	if len(matches) == 0 {
		return fmt.Sprintf("I couldn't find any tickets relevant to: %q", query), nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Based on your query %q, I found %d relevant ticket(s):\n\n", query, len(matches))
	for i, m := range matches {
		fmt.Fprintf(&sb, "%d. Ticket #%s - %s\n", i+1, m.TicketID, m.Metadata[MetaTitle])
		fmt.Fprintf(&sb, "   Status: %s\n", m.Metadata[MetaStatus])
		fmt.Fprintf(&sb, "   Priority: %s\n", m.Metadata[MetaPriority])
		fmt.Fprintf(&sb, "   Assigned to: %s\n", m.Metadata[MetaAssignee])
		fmt.Fprintf(&sb, "   Relevance: %.1f%%\n\n", m.Score*100)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// LLMSynthesizer forwards the query and formatted match context to a language
// model. Failures are reported as ErrAnswerSynthesis and must stay non-fatal
// for the search path.
type LLMSynthesizer struct {
	generator ai.IGenerator
	timeout   time.Duration
}

func NewLLMSynthesizer(generator ai.IGenerator, timeout time.Duration) *LLMSynthesizer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LLMSynthesizer{generator: generator, timeout: timeout}
}

func (s *LLMSynthesizer) Synthesize(ctx context.Context, query string, matches []model.TicketMatch) (string, error) {
	logger := logutil.GetLogger(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := buildAnswerPrompt(query, matches)
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Warn("answer generation failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", apperr.ErrAnswerSynthesis, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: empty model response", apperr.ErrAnswerSynthesis)
	}
	return answer, nil
}

func buildAnswerPrompt(query string, matches []model.TicketMatch) string {
	var context strings.Builder
	if len(matches) == 0 {
		context.WriteString("No relevant tickets found.")
	}
	for i, m := range matches {
		fmt.Fprintf(&context, "--- Ticket %d (Relevance: %.1f%%) ---\n", i+1, m.Score*100)
		fmt.Fprintf(&context, "Ticket #%s: %s\n", m.TicketID, m.Metadata[MetaTitle])
		fmt.Fprintf(&context, "Status: %s, Priority: %s, Assigned to: %s\n\n",
			m.Metadata[MetaStatus], m.Metadata[MetaPriority], m.Metadata[MetaAssignee])
	}
	return fmt.Sprintf(`You are a helpful assistant that answers questions about support tickets.

Context (Retrieved Tickets):
%s

User Question: %s

Instructions:
- Answer based ONLY on the information in the retrieved tickets above
- Be concise and specific
- If the tickets don't contain relevant information, say so
- Include ticket numbers when referencing specific tickets
- If multiple tickets are relevant, summarize the key points

Answer:`, strings.TrimRight(context.String(), "\n"), query)
}
