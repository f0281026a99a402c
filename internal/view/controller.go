package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"feedesk/internal/api"
	"feedesk/internal/core"
	"feedesk/internal/log"
	"feedesk/internal/messages"
)

// StalePolicy decides what happens to a response that was overtaken by a
// newer request against the same table.
type StalePolicy string

const (
	// StaleDiscard drops superseded responses.
	StaleDiscard StalePolicy = "discard"
	// StaleOverwrite renders whichever response resolves last.
	StaleOverwrite StalePolicy = "overwrite"
)

// ParseStalePolicy accepts "discard" or "overwrite"; empty means discard.
func ParseStalePolicy(s string) (StalePolicy, error) {
	switch StalePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StaleDiscard:
		return StaleDiscard, nil
	case StaleOverwrite:
		return StaleOverwrite, nil
	default:
		return "", fmt.Errorf("unknown stale response policy %q", s)
	}
}

// ErrSuperseded is returned by reads whose response was dropped because a
// newer request for the same table was issued meanwhile.
var ErrSuperseded = errors.New("response superseded by a newer request")

// Stats counts controller outcomes since creation.
type Stats struct {
	Refreshes       int64
	RefreshFailures int64
	Searches        int64
	SearchFailures  int64
	StaleDiscarded  int64
	AddSucceeded    int64
	AddFailed       int64
	UpdateSucceeded int64
	UpdateFailed    int64
}

// Snapshot is a copy of the view model, safe to render without locking.
type Snapshot struct {
	Tabs         []Tab
	ActiveTab    string
	Totals       core.Table
	TotalsLoaded bool
	Search       core.Table
	LastSearch   core.SearchQuery
	Notification *Notification
	TotalsSeq    uint64
	SearchSeq    uint64
	Locale       string
}

// Controller owns the member desk view model for one browser session and
// mediates between form submissions and the backend API.
type Controller struct {
	backend  api.Backend
	printer  *messages.Printer
	notifier Notifier
	events   EventPublisher
	logger   *log.Logger
	policy   StalePolicy

	mu           sync.Mutex
	tabs         tabSet
	totals       core.Table
	totalsLoaded bool
	search       core.Table
	lastSearch   core.SearchQuery
	last         *Notification
	totalsSeq    uint64
	searchSeq    uint64
	// totalsApplied is the sequence of the response the totals table holds.
	totalsApplied uint64
	stats         Stats
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	tabs       []string
	defaultTab string
	policy     StalePolicy
	notifier   Notifier
	events     EventPublisher
	logger     *log.Logger
}

// WithTabs sets the tab ids in page order.
func WithTabs(ids ...string) Option {
	return func(o *options) { o.tabs = ids }
}

// WithDefaultTab sets the tab shown before any ShowTab call.
func WithDefaultTab(id string) Option {
	return func(o *options) { o.defaultTab = id }
}

// WithStalePolicy sets how superseded responses are handled.
func WithStalePolicy(p StalePolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithNotifier routes notifications to n in addition to returning them.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithEventPublisher publishes member changes after successful writes.
func WithEventPublisher(p EventPublisher) Option {
	return func(o *options) { o.events = p }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates a controller backed by b. Labels and notifications are
// rendered through p.
func New(b api.Backend, p *messages.Printer, opts ...Option) *Controller {
	o := options{
		tabs:       DefaultTabs,
		defaultTab: TabTotals,
		policy:     StaleDiscard,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Discard()
	}

	c := &Controller{
		backend:  b,
		printer:  p,
		notifier: o.notifier,
		events:   o.events,
		logger:   o.logger.WithComponent(log.ComponentView),
		policy:   o.policy,
		tabs:     newTabSet(o.tabs, p),
		totals: core.NewTable(core.TotalsTableID,
			p.Text(messages.ColMemberID), p.Text(messages.ColTotalFee)),
		search: core.NewTable(core.SearchResultsTableID,
			p.Text(messages.ColTxID), p.Text(messages.ColBorrowFee), p.Text(messages.ColCreateTime)),
	}
	c.tabs.show(o.defaultTab)
	return c
}

// ShowTab hides every tab and then shows tabID. An unknown id leaves all
// tabs hidden.
func (c *Controller) ShowTab(tabID string) {
	c.mu.Lock()
	found := c.tabs.show(tabID)
	c.mu.Unlock()

	if !found {
		c.logger.Debug("Unknown tab requested",
			log.FieldOperation, log.OpShowTab,
			log.FieldTab, tabID)
	}
}

// HasTab reports whether tabID is one of the controller's tabs.
func (c *Controller) HasTab(tabID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tabs.has(tabID)
}

// RefreshTotals fetches every member's total and replaces the totals table.
// A failed fetch leaves the table as it was and produces no notification.
func (c *Controller) RefreshTotals(ctx context.Context) error {
	c.mu.Lock()
	c.totalsSeq++
	seq := c.totalsSeq
	c.stats.Refreshes++
	c.mu.Unlock()

	data, err := c.backend.ListTotals(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.stats.RefreshFailures++
		c.logger.WarnContext(ctx, "Failed to refresh member totals",
			log.FieldOperation, log.OpRefreshTotals,
			log.FieldSequence, seq,
			log.FieldErrorKind, api.Kind(err),
			log.FieldError, err.Error())
		return fmt.Errorf("refresh totals: %w", err)
	}
	// Every totals fetch asks the same question, so an older success still
	// beats a newer failure; only a newer applied response wins.
	if c.policy == StaleDiscard && seq < c.totalsApplied {
		c.stats.StaleDiscarded++
		c.logger.DebugContext(ctx, "Discarding superseded totals response",
			log.FieldOperation, log.OpRefreshTotals,
			log.FieldSequence, seq)
		return ErrSuperseded
	}

	c.totals.Replace(core.TotalsRows(data))
	c.totalsApplied = seq
	c.totalsLoaded = true
	c.logger.DebugContext(ctx, "Member totals refreshed",
		log.FieldOperation, log.OpRefreshTotals,
		log.FieldRows, c.totals.Len())
	return nil
}

// SubmitAdd creates a member named name. The name is sent as given, empty
// included. The totals table is not refreshed.
func (c *Controller) SubmitAdd(ctx context.Context, name string) Notification {
	err := c.backend.AddMember(ctx, core.MemberInput{Username: name})
	n := c.finishWrite(ctx, log.OpAddMember, "", err, messages.AddSuccess, messages.AddFailure)
	if err == nil {
		c.publish(ctx, ActionCreated, "", name)
	}
	return n
}

// SubmitUpdate renames member id. The totals table is not refreshed.
func (c *Controller) SubmitUpdate(ctx context.Context, id core.ID, name string) Notification {
	err := c.backend.UpdateMember(ctx, core.MemberInput{ID: id, Username: name})
	n := c.finishWrite(ctx, log.OpUpdateMember, id, err, messages.UpdateSuccess, messages.UpdateFailure)
	if err == nil {
		c.publish(ctx, ActionUpdated, id, name)
	}
	return n
}

// SubmitSearch clears the search results, then fetches the transactions of
// q.MemberID between q.StartDate and q.EndDate. A failed fetch leaves the
// table empty and produces no notification.
func (c *Controller) SubmitSearch(ctx context.Context, q core.SearchQuery) error {
	c.mu.Lock()
	c.searchSeq++
	seq := c.searchSeq
	c.search.Clear()
	c.lastSearch = q
	c.stats.Searches++
	c.mu.Unlock()

	data, err := c.backend.SearchTransactions(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.stats.SearchFailures++
		c.logger.WarnContext(ctx, "Failed to search transactions",
			append(log.NewFields().
				WithOperation(log.OpSearch).
				WithSearch(q.MemberID.String(), q.StartDate, q.EndDate).
				WithError(err).ToSlice(),
				log.FieldErrorKind, api.Kind(err))...)
		return fmt.Errorf("search transactions: %w", err)
	}
	if c.superseded(seq, c.searchSeq) {
		c.stats.StaleDiscarded++
		c.logger.DebugContext(ctx, "Discarding superseded search response",
			log.FieldOperation, log.OpSearch,
			log.FieldSequence, seq)
		return ErrSuperseded
	}

	c.search.Replace(core.TransactionRows(data))
	c.logger.DebugContext(ctx, "Transactions loaded",
		log.FieldOperation, log.OpSearch,
		log.FieldMemberID, q.MemberID.String(),
		log.FieldRows, c.search.Len())
	return nil
}

// Snapshot returns a deep copy of the view model.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Tabs:         c.tabs.clone(),
		ActiveTab:    c.tabs.active(),
		Totals:       c.totals.Clone(),
		TotalsLoaded: c.totalsLoaded,
		Search:       c.search.Clone(),
		LastSearch:   c.lastSearch,
		TotalsSeq:    c.totalsSeq,
		SearchSeq:    c.searchSeq,
		Locale:       c.printer.Locale(),
	}
	if c.last != nil {
		n := *c.last
		s.Notification = &n
	}
	return s
}

// Stats returns the outcome counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// superseded must be called with mu held. Searches differ by query, so any
// newer search supersedes an older one.
func (c *Controller) superseded(seq, current uint64) bool {
	return c.policy == StaleDiscard && seq != current
}

func (c *Controller) finishWrite(ctx context.Context, op string, id core.ID, err error, ok, fail messages.Key) Notification {
	n := Notification{Kind: KindSuccess, Outcome: ok}
	if err != nil {
		n = Notification{Kind: KindError, Outcome: fail}
		c.logger.WarnContext(ctx, "Member write failed",
			log.FieldOperation, op,
			log.FieldMemberID, id.String(),
			log.FieldErrorKind, api.Kind(err),
			log.FieldError, err.Error())
	} else {
		c.logger.InfoContext(ctx, "Member write succeeded",
			log.FieldOperation, op,
			log.FieldMemberID, id.String())
	}
	n.Message = c.printer.Text(n.Outcome)

	c.mu.Lock()
	c.last = &n
	switch {
	case op == log.OpAddMember && err == nil:
		c.stats.AddSucceeded++
	case op == log.OpAddMember:
		c.stats.AddFailed++
	case err == nil:
		c.stats.UpdateSucceeded++
	default:
		c.stats.UpdateFailed++
	}
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.Notify(ctx, n)
	}
	return n
}

func (c *Controller) publish(ctx context.Context, action string, id core.ID, name string) {
	if c.events == nil {
		return
	}
	if err := c.events.PublishMemberChanged(ctx, action, id, name); err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish member change",
			log.FieldOperation, log.OpPublish,
			log.FieldMemberID, id.String(),
			log.FieldError, err.Error())
	}
}
