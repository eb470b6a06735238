package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekerhut/ticketrag/internal/model"
	apperr "github.com/seekerhut/ticketrag/internal/pkg/errors"
)

func sampleTicket() model.Ticket {
	return model.Ticket{
		ID:          42,
		Title:       "VPN drops every hour",
		Description: "The corporate VPN disconnects roughly once per hour since Monday.",
		Status:      model.StatusOpen,
		Priority:    model.PriorityHigh,
		CreatedBy:   "alice",
		AssignedTo:  "bob",
		CreatedAt:   time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC),
		CCAdmins:    []string{"carol", "dave"},
		CCWatchers:  nil,
	}
}

func TestFormatTicketDeterminism(t *testing.T) {
	ticket := sampleTicket()
	text1, meta1, err := FormatTicket(ticket)
	require.NoError(t, err)
	text2, meta2, err := FormatTicket(ticket)
	require.NoError(t, err)

	assert.Equal(t, text1, text2)
	assert.Equal(t, meta1, meta2)
}

func TestFormatTicketText(t *testing.T) {
	text, _, err := FormatTicket(sampleTicket())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "Ticket #42: VPN drops every hour\n"))
	assert.Contains(t, text, "Status: open\n")
	assert.Contains(t, text, "Priority: high\n")
	assert.Contains(t, text, "Created by: alice\n")
	assert.Contains(t, text, "Assigned to: bob\n")
	assert.Contains(t, text, "Created on: 2024-03-10\n")
	assert.Contains(t, text, "Still open\n")
	assert.Contains(t, text, "CC Admins: carol, dave\n")
	// empty list renders an explicit marker, never a silent gap
	assert.Contains(t, text, "CC Watchers: None")
}

func TestFormatTicketClosedDate(t *testing.T) {
	ticket := sampleTicket()
	closed := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	ticket.Status = model.StatusClosed
	ticket.ClosedAt = &closed

	text, _, err := FormatTicket(ticket)
	require.NoError(t, err)
	assert.Contains(t, text, "Closed on: 2024-04-01\n")
	assert.NotContains(t, text, "Still open")
}

func TestFormatTicketMetadata(t *testing.T) {
	_, meta, err := FormatTicket(sampleTicket())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"ticket_id": "42",
		"title":     "VPN drops every hour",
		"status":    "open",
		"priority":  "high",
		"assignee":  "bob",
	}, meta)
}

func TestFormatTicketUnassigned(t *testing.T) {
	ticket := sampleTicket()
	ticket.AssignedTo = ""

	text, meta, err := FormatTicket(ticket)
	require.NoError(t, err)
	assert.Contains(t, text, "Assigned to: Unassigned\n")
	assert.Equal(t, "Unassigned", meta["assignee"])
}

func TestFormatTicketValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Ticket)
	}{
		{name: "missing id", mutate: func(t *model.Ticket) { t.ID = 0 }},
		{name: "missing title", mutate: func(t *model.Ticket) { t.Title = "  " }},
		{name: "missing description", mutate: func(t *model.Ticket) { t.Description = "" }},
		{name: "missing created_by", mutate: func(t *model.Ticket) { t.CreatedBy = "" }},
		{name: "invalid status", mutate: func(t *model.Ticket) { t.Status = "reopened" }},
		{name: "invalid priority", mutate: func(t *model.Ticket) { t.Priority = "critical" }},
		{name: "missing created_at", mutate: func(t *model.Ticket) { t.CreatedAt = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := sampleTicket()
			tt.mutate(&ticket)
			_, _, err := FormatTicket(ticket)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrFormat)
		})
	}
}
