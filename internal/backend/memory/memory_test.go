package memory

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedesk/internal/api"
	"feedesk/internal/core"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New(WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()
	require.NoError(t, s.AddMember(ctx, core.MemberInput{Username: "alice"}))
	require.NoError(t, s.AddMember(ctx, core.MemberInput{Username: "bob"}))
	require.NoError(t, s.AddMember(ctx, core.MemberInput{Username: "carol"}))
	return s
}

func TestListTotalsLastYearOnly(t *testing.T) {
	s := newStore(t)
	s.AddFee(2, 10, fixedNow.AddDate(0, -1, 0))
	s.AddFee(2, 5.5, fixedNow.AddDate(0, -2, 0))
	s.AddFee(1, 100, fixedNow.AddDate(-2, 0, 0))
	s.AddFee(3, 40, fixedNow.AddDate(0, 0, -1))

	got, err := s.ListTotals(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, core.ID("2"), got[0].MemberID)
	assert.Equal(t, core.Fee(15.5), got[0].TotalFee)
	assert.Equal(t, "bob", got[0].Username)
	assert.Equal(t, core.ID("3"), got[1].MemberID)
}

func TestAddMemberRejectsEmptyName(t *testing.T) {
	s := New()
	err := s.AddMember(context.Background(), core.MemberInput{})
	assert.True(t, api.IsStatus(err, http.StatusBadRequest))
	assert.Empty(t, s.Members())
}

func TestUpdateMember(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpdateMember(ctx, core.MemberInput{ID: "2", Username: "robert"}))
	assert.Equal(t, []string{"alice", "robert", "carol"}, s.Members())

	err := s.UpdateMember(ctx, core.MemberInput{ID: "99", Username: "x"})
	assert.True(t, api.IsStatus(err, http.StatusNotFound))

	err = s.UpdateMember(ctx, core.MemberInput{ID: "abc", Username: "x"})
	assert.True(t, api.IsStatus(err, http.StatusNotFound))
}

func TestSearchTransactions(t *testing.T) {
	s := newStore(t)
	s.AddFee(1, 50, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))
	s.AddFee(1, 20, time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local))
	s.AddFee(2, 70, time.Date(2024, 1, 5, 0, 0, 0, 0, time.Local))

	got, err := s.SearchTransactions(context.Background(), core.SearchQuery{
		MemberID: "1", StartDate: "2024-01-01", EndDate: "2024-02-01",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []core.Row{{"1", "50", got[0].CreateTime}}, core.TransactionRows(got))
	assert.Equal(t, 1, got[0].Type)
}

func TestSearchDefaultsTo2023(t *testing.T) {
	s := newStore(t)
	s.AddFee(1, 7, time.Date(2023, 6, 1, 0, 0, 0, 0, time.Local))
	s.AddFee(1, 8, time.Date(2024, 6, 1, 0, 0, 0, 0, time.Local))

	got, err := s.SearchTransactions(context.Background(), core.SearchQuery{MemberID: "1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.Fee(7), got[0].BorrowFee)
}

func TestSearchErrors(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.SearchTransactions(ctx, core.SearchQuery{})
	assert.True(t, api.IsStatus(err, http.StatusNotFound))

	_, err = s.SearchTransactions(ctx, core.SearchQuery{MemberID: "1", StartDate: "yesterday"})
	assert.True(t, api.IsStatus(err, http.StatusInternalServerError))

	got, err := s.SearchTransactions(ctx, core.SearchQuery{MemberID: "abc"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestNewFromFilesIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_members.txt"), []byte("# roster\nann\n\nben\n"), 0o600))
	clock := WithClock(func() time.Time { return fixedNow })

	a := NewFromFiles(dir, 5, 42, clock)
	b := NewFromFiles(dir, 5, 42, clock)
	assert.Equal(t, []string{"ann", "ben"}, a.Members())

	ta, err := a.ListTotals(context.Background())
	require.NoError(t, err)
	tb, err := b.ListTotals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ta, tb)
}

func TestNewFromFilesDefaultRoster(t *testing.T) {
	s := NewFromFiles(t.TempDir(), 0, 1)
	assert.Equal(t, []string{"alice", "bob", "carol"}, s.Members())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().ListTotals(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
