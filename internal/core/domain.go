package core

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	// ID is an identifier as the backend sends it. Numbers and strings are both
	// accepted and kept as their literal text.
	ID string

	// Fee is a monetary amount as a plain JSON number.
	Fee float64

	// MemberSummary is one row of the totals table.
	MemberSummary struct {
		MemberID   ID     `json:"member_id"`
		Username   string `json:"username,omitempty"`
		CreateTime string `json:"create_time,omitempty"`
		TotalFee   Fee    `json:"total_fee"`
	}

	// TransactionRecord is one row of the search results table.
	TransactionRecord struct {
		ID         ID     `json:"id"`
		MemberFK   ID     `json:"member_fk,omitempty"`
		Type       int    `json:"type,omitempty"`
		BorrowFee  Fee    `json:"borrow_fee"`
		CreateTime string `json:"create_time"`
	}

	// MemberInput is the body of add and update requests. The ID only travels
	// in the request path.
	MemberInput struct {
		ID       ID     `json:"-"`
		Username string `json:"username"`
	}

	// SearchQuery scopes a transaction search to one member and a date range.
	// Dates are passed through verbatim.
	SearchQuery struct {
		MemberID  ID
		StartDate string
		EndDate   string
	}
)

func (id ID) String() string { return string(id) }

func (id ID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

// UnmarshalJSON accepts 12, "12" and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		if _, err := strconv.ParseFloat(string(b), 64); err != nil {
			return fmt.Errorf("identifier %s: %w", b, err)
		}
		*id = ID(b)
		return nil
	}
}

// MarshalJSON writes numeric ids as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseUint(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// String renders the fee the way the page always has: shortest decimal form,
// no grouping, no fixed precision.
func (f Fee) String() string {
	return strconv.FormatFloat(float64(f), 'f', -1, 64)
}
