package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seekerhut/ticketrag/internal/model"
	apperr "github.com/seekerhut/ticketrag/internal/pkg/errors"
)

// Metadata keys stored with every indexed document. The filterable subset is
// status, priority and assignee.
const (
	MetaTicketID = "ticket_id"
	MetaTitle    = "title"
	MetaStatus   = "status"
	MetaPriority = "priority"
	MetaAssignee = "assignee"
)

const unassignedMarker = "Unassigned"

// FormatTicket maps a ticket to its canonical text plus the metadata map.
// The output is deterministic: the same ticket always yields byte-identical
// text. Field order is part of the contract; changing it invalidates the
// semantic alignment of previously stored embeddings.
func FormatTicket(t model.Ticket) (string, map[string]string, error) {
	if err := validateTicket(t); err != nil {
		return "", nil, err
	}

	assignee := strings.TrimSpace(t.AssignedTo)
	if assignee == "" {
		assignee = unassignedMarker
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Ticket #%d: %s\n\n", t.ID, t.Title)
	fmt.Fprintf(&sb, "Description: %s\n\n", t.Description)
	fmt.Fprintf(&sb, "Status: %s\n", t.Status)
	fmt.Fprintf(&sb, "Priority: %s\n", t.Priority)
	fmt.Fprintf(&sb, "Created by: %s\n", t.CreatedBy)
	fmt.Fprintf(&sb, "Assigned to: %s\n", assignee)
	fmt.Fprintf(&sb, "Created on: %s\n", t.CreatedAt.Format("2006-01-02"))
	if t.ClosedAt != nil {
		fmt.Fprintf(&sb, "Closed on: %s\n", t.ClosedAt.Format("2006-01-02"))
	} else {
		sb.WriteString("Still open\n")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "CC Admins: %s\n", joinOrNone(t.CCAdmins))
	fmt.Fprintf(&sb, "CC Watchers: %s", joinOrNone(t.CCWatchers))

	meta := map[string]string{
		MetaTicketID: strconv.FormatInt(t.ID, 10),
		MetaTitle:    t.Title,
		MetaStatus:   t.Status,
		MetaPriority: t.Priority,
		MetaAssignee: assignee,
	}
	return sb.String(), meta, nil
}

// An empty list renders as an explicit marker so absence is a signal, not a
// silent gap.
func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}

func validateTicket(t model.Ticket) error {
	switch {
	case t.ID <= 0:
		return fmt.Errorf("%w: missing id", apperr.ErrFormat)
	case strings.TrimSpace(t.Title) == "":
		return fmt.Errorf("%w: ticket #%d missing title", apperr.ErrFormat, t.ID)
	case strings.TrimSpace(t.Description) == "":
		return fmt.Errorf("%w: ticket #%d missing description", apperr.ErrFormat, t.ID)
	case strings.TrimSpace(t.CreatedBy) == "":
		return fmt.Errorf("%w: ticket #%d missing created_by", apperr.ErrFormat, t.ID)
	case !model.ValidStatus(t.Status):
		return fmt.Errorf("%w: ticket #%d has invalid status %q", apperr.ErrFormat, t.ID, t.Status)
	case !model.ValidPriority(t.Priority):
		return fmt.Errorf("%w: ticket #%d has invalid priority %q", apperr.ErrFormat, t.ID, t.Priority)
	case t.CreatedAt.IsZero():
		return fmt.Errorf("%w: ticket #%d missing created_at", apperr.ErrFormat, t.ID)
	}
	return nil
}
