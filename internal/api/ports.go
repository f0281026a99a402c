package api

import (
	"context"

	"feedesk/internal/core"
)

// Ports for the backend REST API.
type (
	// TotalsReader lists every member with its running fee total.
	TotalsReader interface {
		ListTotals(ctx context.Context) ([]core.MemberSummary, error)
	}

	// MemberWriter creates and renames members. Only success or failure is
	// reported; response bodies are ignored.
	MemberWriter interface {
		AddMember(ctx context.Context, in core.MemberInput) error
		UpdateMember(ctx context.Context, in core.MemberInput) error
	}

	// TransactionSearcher lists one member's transactions within a date range.
	TransactionSearcher interface {
		SearchTransactions(ctx context.Context, q core.SearchQuery) ([]core.TransactionRecord, error)
	}
)

// Backend is everything the member desk needs from the API.
type Backend interface {
	TotalsReader
	MemberWriter
	TransactionSearcher
}
