package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service manages support tickets.
type Service interface {
	Create(ctx context.Context, req CreateTicketRequest) (*Ticket, error)
	Get(ctx context.Context, id string) (*Ticket, error)
	ListByUser(ctx context.Context, userID snowflake.ID) ([]Ticket, error)

	// Reply appends a message to the thread. Closed tickets reject replies.
	Reply(ctx context.Context, id, author, body string) (*Ticket, error)

	// UpdateStatus moves a ticket forward through
	// open -> in_progress -> resolved -> closed. Moving to resolved stamps
	// resolved_at; anything else is rejected as an invalid transition.
	UpdateStatus(ctx context.Context, id string, status TicketStatus) (*Ticket, error)

	// Admin operations.
	List(ctx context.Context, filter ListFilter) ([]Ticket, error)
	Stats(ctx context.Context) ([]StatusCount, error)
}

var (
	ErrNotFound          = errors.New("ticket_not_found")
	ErrInvalidID         = errors.New("invalid_ticket_id")
	ErrMissingSubject    = errors.New("missing_subject")
	ErrMissingCategory   = errors.New("missing_category")
	ErrMissingBody       = errors.New("missing_message_body")
	ErrInvalidAuthor     = errors.New("invalid_message_author")
	ErrTicketClosed      = errors.New("ticket_closed")
	ErrInvalidTransition = errors.New("invalid_status_transition")
)

// allowedTransitions is the forward-only status graph.
var allowedTransitions = map[TicketStatus][]TicketStatus{
	StatusOpen:       {StatusInProgress, StatusResolved},
	StatusInProgress: {StatusResolved},
	StatusResolved:   {StatusClosed},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to TicketStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
