// Package memory is an in-process member store that answers like the
// backend REST API. It backs local demos and end-to-end tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"feedesk/internal/api"
	"feedesk/internal/core"
)

// Search bounds used when a query leaves one empty.
const (
	DefaultSearchStart = "2023-01-01"
	DefaultSearchEnd   = "2023-12-31"
)

const dateLayout = "2006-01-02"

type member struct {
	id        uint64
	username  string
	createdAt time.Time
}

type fee struct {
	id        uint64
	memberFK  uint64
	kind      int
	amount    float64
	createdAt time.Time
}

// Store holds members and their fee records.
type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	members []member
	fees    []fee
	nextID  uint64
	nextFee uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromFiles seeds members from base/seed_members.txt, one username per
// line, and gives each of them feesPerMember random fee records spread over
// the last eighteen months. A missing file yields a small default roster.
func NewFromFiles(base string, feesPerMember int, seed uint64, opts ...Option) *Store {
	names := readLines(filepath.Join(base, "seed_members.txt"))
	if len(names) == 0 {
		names = []string{"alice", "bob", "carol"}
	}
	s := New(opts...)
	s.Seed(names, feesPerMember, seed)
	return s
}

// Seed adds members with deterministic pseudo-random fee history.
func (s *Store) Seed(usernames []string, feesPerMember int, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	from := now.AddDate(0, -18, 0)
	span := now.Sub(from)
	for _, name := range usernames {
		m := s.addLocked(name, from.Add(-time.Duration(rng.Int64N(int64(24*time.Hour*365)))))
		for i := 0; i < feesPerMember; i++ {
			at := from.Add(time.Duration(rng.Int64N(int64(span)))).Truncate(time.Second)
			s.addFeeLocked(m.id, i+1, float64(rng.IntN(1000000))/100, at)
		}
	}
	s.sortFeesLocked()
}

// AddFee records a fee for memberID. Used to build fixtures.
func (s *Store) AddFee(memberID uint64, amount float64, at time.Time) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind := 1
	for _, f := range s.fees {
		if f.memberFK == memberID {
			kind++
		}
	}
	id := s.addFeeLocked(memberID, kind, amount, at)
	s.sortFeesLocked()
	return id
}

// ListTotals sums each member's fees from the last year. Members without
// fees in that window are left out. Rows are ordered by member id.
func (s *Store) ListTotals(ctx context.Context) ([]core.MemberSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	since := s.now().AddDate(-1, 0, 0)
	sums := make(map[uint64]float64)
	for _, f := range s.fees {
		if f.createdAt.After(since) {
			sums[f.memberFK] += f.amount
		}
	}

	out := make([]core.MemberSummary, 0, len(sums))
	for _, m := range s.members {
		total, ok := sums[m.id]
		if !ok {
			continue
		}
		out = append(out, core.MemberSummary{
			MemberID:   idOf(m.id),
			Username:   m.username,
			CreateTime: m.createdAt.Format(time.RFC3339),
			TotalFee:   core.Fee(total),
		})
	}
	return out, nil
}

// AddMember creates a member. An empty username is rejected with 400.
func (s *Store) AddMember(ctx context.Context, in core.MemberInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if in.Username == "" {
		return statusError(http.MethodPost, api.PathMember, http.StatusBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(in.Username, s.now())
	return nil
}

// UpdateMember renames a member. Unknown ids answer 404.
func (s *Store) UpdateMember(ctx context.Context, in core.MemberInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := api.PathMember + "/" + in.ID.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexLocked(in.ID)
	if !ok {
		return statusError(http.MethodPut, path, http.StatusNotFound)
	}
	if in.Username == "" {
		return statusError(http.MethodPut, path, http.StatusBadRequest)
	}
	s.members[i].username = in.Username
	return nil
}

// SearchTransactions returns the member's fees created between the start
// and end dates, both taken as midnight and inclusive. Empty bounds default
// to DefaultSearchStart and DefaultSearchEnd; unparsable ones answer 500.
func (s *Store) SearchTransactions(ctx context.Context, q core.SearchQuery) ([]core.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := api.PathMember + "/" + q.MemberID.String() + "/transactions"
	if q.MemberID.IsZero() {
		return nil, statusError(http.MethodGet, path, http.StatusNotFound)
	}

	start, err := parseBound(q.StartDate, DefaultSearchStart)
	if err != nil {
		return nil, statusError(http.MethodGet, path, http.StatusInternalServerError)
	}
	end, err := parseBound(q.EndDate, DefaultSearchEnd)
	if err != nil {
		return nil, statusError(http.MethodGet, path, http.StatusInternalServerError)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := strconv.ParseUint(q.MemberID.String(), 10, 64)
	if err != nil {
		return []core.TransactionRecord{}, nil
	}
	out := []core.TransactionRecord{}
	for _, f := range s.fees {
		if f.memberFK != id || f.createdAt.Before(start) || f.createdAt.After(end) {
			continue
		}
		out = append(out, core.TransactionRecord{
			ID:         idOf(f.id),
			MemberFK:   idOf(f.memberFK),
			Type:       f.kind,
			BorrowFee:  core.Fee(f.amount),
			CreateTime: f.createdAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

// Members returns usernames in id order.
func (s *Store) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.members))
	for i, m := range s.members {
		out[i] = m.username
	}
	return out
}

func (s *Store) addLocked(name string, at time.Time) member {
	s.nextID++
	m := member{id: s.nextID, username: name, createdAt: at}
	s.members = append(s.members, m)
	return m
}

func (s *Store) addFeeLocked(memberID uint64, kind int, amount float64, at time.Time) uint64 {
	s.nextFee++
	s.fees = append(s.fees, fee{id: s.nextFee, memberFK: memberID, kind: kind, amount: amount, createdAt: at})
	return s.nextFee
}

// sortFeesLocked keeps fees in creation order, which is the order searches
// answer in.
func (s *Store) sortFeesLocked() {
	sort.SliceStable(s.fees, func(i, j int) bool { return s.fees[i].createdAt.Before(s.fees[j].createdAt) })
}

func (s *Store) indexLocked(id core.ID) (int, bool) {
	n, err := strconv.ParseUint(id.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	for i, m := range s.members {
		if m.id == n {
			return i, true
		}
	}
	return 0, false
}

func parseBound(v, def string) (time.Time, error) {
	if v == "" {
		v = def
	}
	t, err := time.ParseInLocation(dateLayout, v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", v, err)
	}
	return t, nil
}

func statusError(method, path string, code int) error {
	return &api.StatusError{Method: method, Path: path, StatusCode: code}
}

func idOf(n uint64) core.ID {
	return core.ID(strconv.FormatUint(n, 10))
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
