package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerhut/ticketrag/internal/model"
	apperr "github.com/seekerhut/ticketrag/internal/pkg/errors"
)

func sampleMatches() []model.TicketMatch {
	return []model.TicketMatch{
		{
			TicketID: "1",
			Score:    0.921,
			Metadata: map[string]string{
				"ticket_id": "1",
				"title":     "printer jam on floor 2",
				"status":    "open",
				"priority":  "high",
				"assignee":  "bob",
			},
		},
		{
			TicketID: "4",
			Score:    0.517,
			Metadata: map[string]string{
				"ticket_id": "4",
				"title":     "printer driver update",
				"status":    "closed",
				"priority":  "low",
				"assignee":  "Unassigned",
			},
		},
	}
}

func TestTemplateSynthesizer(t *testing.T) {
	synth := NewTemplateSynthesizer()

	answer, err := synth.Synthesize(context.Background(), "printer problems", sampleMatches())
	require.NoError(t, err)
	assert.Contains(t, answer, `Based on your query "printer problems", I found 2 relevant ticket(s):`)
	assert.Contains(t, answer, "1. Ticket #1 - printer jam on floor 2")
	assert.Contains(t, answer, "Relevance: 92.1%")
	assert.Contains(t, answer, "2. Ticket #4 - printer driver update")
	assert.Contains(t, answer, "Assigned to: Unassigned")

	again, err := synth.Synthesize(context.Background(), "printer problems", sampleMatches())
	require.NoError(t, err)
	assert.Equal(t, answer, again)
}

func TestTemplateSynthesizerNoMatches(t *testing.T) {
	synth := NewTemplateSynthesizer()
	answer, err := synth.Synthesize(context.Background(), "quantum toaster", nil)
	require.NoError(t, err)
	assert.Equal(t, `I couldn't find any tickets relevant to: "quantum toaster"`, answer)
}

func TestLLMSynthesizerPrompt(t *testing.T) {
	gen := &staticGenerator{answer: "  Ticket #1 covers the floor 2 printer jam.  "}
	synth := NewLLMSynthesizer(gen, 0)

	answer, err := synth.Synthesize(context.Background(), "printer problems", sampleMatches())
	require.NoError(t, err)
	assert.Equal(t, "Ticket #1 covers the floor 2 printer jam.", answer)

	assert.Contains(t, gen.prompt, "User Question: printer problems")
	assert.Contains(t, gen.prompt, "--- Ticket 1 (Relevance: 92.1%) ---")
	assert.Contains(t, gen.prompt, "Ticket #1: printer jam on floor 2")
	assert.Contains(t, gen.prompt, "Status: open, Priority: high, Assigned to: bob")
}

func TestLLMSynthesizerNoMatches(t *testing.T) {
	gen := &staticGenerator{answer: "No relevant tickets were found."}
	synth := NewLLMSynthesizer(gen, 0)

	_, err := synth.Synthesize(context.Background(), "quantum toaster", nil)
	require.NoError(t, err)
	assert.Contains(t, gen.prompt, "No relevant tickets found.")
}

func TestLLMSynthesizerFailure(t *testing.T) {
	synth := NewLLMSynthesizer(failingGenerator{}, 0)
	_, err := synth.Synthesize(context.Background(), "printer problems", sampleMatches())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAnswerSynthesis)
}

func TestLLMSynthesizerEmptyResponse(t *testing.T) {
	synth := NewLLMSynthesizer(&staticGenerator{answer: "   "}, 0)
	_, err := synth.Synthesize(context.Background(), "printer problems", sampleMatches())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAnswerSynthesis)
}
