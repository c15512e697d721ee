package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"robin/internal/domain"
	"robin/internal/normalize"
	"robin/internal/store"
	"robin/pkg/robin"
)

// Backend is the subset of the service client the controller depends on.
// *robin.Client satisfies it.
type Backend interface {
	InitializeTicker(ctx context.Context, symbol string) (*robin.InitializeResponse, error)
	Query(ctx context.Context, query, symbol string) (*robin.QueryResponse, error)
}

var _ Backend = (*robin.Client)(nil)

// ErrEmptyQuestion is returned by Ask for a blank question.
var ErrEmptyQuestion = errors.New("session: question is empty")

const (
	opInitialize = "initialize"
	opQuery      = "query"
)

type inflight struct {
	token  uint64
	cancel context.CancelFunc
}

// Controller runs fetches against the service and applies their outcome to a
// State. A new call of the same kind supersedes the one in flight; Close
// cancels everything.
type Controller struct {
	backend   Backend
	state     *State
	archive   store.Archive
	log       *slog.Logger
	sessionID string
	now       func() time.Time

	base     context.Context
	teardown context.CancelFunc

	mu     sync.Mutex
	calls  map[string]inflight
	seq    uint64
	active int
}

// ControllerOption customises a Controller.
type ControllerOption func(*Controller)

// WithArchive records series and messages to a. The default is NoopArchive.
func WithArchive(a store.Archive) ControllerOption {
	return func(c *Controller) {
		if a != nil {
			c.archive = a
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) ControllerOption {
	return func(c *Controller) {
		if id != "" {
			c.sessionID = id
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// NewController wires a controller to backend and state.
func NewController(backend Backend, state *State, opts ...ControllerOption) *Controller {
	base, teardown := context.WithCancel(context.Background())
	c := &Controller{
		backend:   backend,
		state:     state,
		archive:   store.NoopArchive{},
		log:       slog.Default().With("component", "session"),
		sessionID: uuid.NewString(),
		now:       time.Now,
		base:      base,
		teardown:  teardown,
		calls:     make(map[string]inflight),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionID identifies this session in the archive.
func (c *Controller) SessionID() string { return c.sessionID }

// State returns the store the controller writes to.
func (c *Controller) State() *State { return c.state }

// InitializeTicker loads the market and options context for symbol and
// installs it as the current analysis context. Nothing is installed unless
// both blobs normalize. A cancelled or superseded call returns
// robin.ErrCancelled and leaves the store untouched.
func (c *Controller) InitializeTicker(ctx context.Context, symbol string) (*domain.AnalysisContext, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("session: symbol is required")
	}

	callCtx, done, err := c.begin(ctx, opInitialize)
	if err != nil {
		return nil, err
	}
	defer done()

	log := c.log.With("op", opInitialize, "symbol", symbol)
	resp, err := c.backend.InitializeTicker(callCtx, symbol)
	if err != nil {
		return nil, c.fail(callCtx, log, err)
	}
	if resp.Status != "" && resp.Status != "success" {
		log.Warn("service reported partial initialization", "status", resp.Status, "message", resp.Message)
	}

	market, err := normalize.DecodeMarketContext(resp.MarketContext)
	if err != nil {
		return nil, c.fail(callCtx, log, err)
	}
	options, err := normalize.DecodeOptionsContext(resp.OptionsContext)
	if err != nil {
		return nil, c.fail(callCtx, log, err)
	}
	if options.Underlying == "" {
		options.Underlying = symbol
	}

	ac := &domain.AnalysisContext{
		Symbol:    symbol,
		Market:    market,
		Options:   options,
		UpdatedAt: c.now(),
	}
	if callCtx.Err() != nil {
		return nil, robin.ErrCancelled
	}
	c.state.SetContext(ac)

	if market != nil && market.Series != nil {
		if err := c.archive.RecordSeries(context.WithoutCancel(callCtx), symbol, market.Series); err != nil {
			log.Warn("archive series failed", "error", err)
		}
	}
	log.Info("ticker initialized", "contracts", options.Len(), "points", seriesLen(market))
	return ac, nil
}

// Ask appends question to the log, sends it to the service and appends the
// reply. The reply carries backlinks to the snapshot and chain it was
// answered against. The analysis context is refreshed with the returned
// market context and knowledge; the options chain carries over. A context
// installed while the question was in flight is not overwritten.
func (c *Controller) Ask(ctx context.Context, question string) (*domain.Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	prev := c.state.Context()
	symbol := ""
	if prev != nil {
		symbol = prev.Symbol
	}

	userMsg := c.message(domain.RoleUser, question, prev)
	c.state.AppendMessage(userMsg)
	c.record(ctx, symbol, userMsg)

	callCtx, done, err := c.begin(ctx, opQuery)
	if err != nil {
		return nil, err
	}
	defer done()

	log := c.log.With("op", opQuery, "symbol", symbol)
	resp, err := c.backend.Query(callCtx, question, symbol)
	if err != nil {
		return nil, c.fail(callCtx, log, err)
	}

	market, err := normalize.DecodeMarketContext(resp.MarketContext)
	if err != nil {
		return nil, c.fail(callCtx, log, err)
	}
	knowledge := normalize.DecodeKnowledge(resp.KnowledgeContext)

	next := &domain.AnalysisContext{
		Symbol:    symbol,
		Market:    market,
		Knowledge: knowledge,
		UpdatedAt: c.now(),
	}
	if prev != nil {
		next.Options = prev.Options
		if next.Market == nil {
			next.Market = prev.Market
		}
	}
	if next.Symbol == "" && next.Market != nil {
		next.Symbol = next.Market.Snapshot.Symbol
	}

	if callCtx.Err() != nil {
		return nil, robin.ErrCancelled
	}
	reply := c.message(domain.RoleAssistant, resp.Response, next)
	c.state.AppendMessage(reply)
	if !c.state.SwapContext(prev, next) {
		log.Debug("analysis context changed during query, keeping newer context")
	}
	c.record(callCtx, next.Symbol, reply)

	log.Info("question answered", "knowledge", len(knowledge))
	return &reply, nil
}

// Close cancels every outstanding call. Later calls fail with
// robin.ErrCancelled.
func (c *Controller) Close() {
	c.teardown()
}

// begin registers a call of kind op, cancelling the previous one of the same
// kind, and marks the store as loading. done must be called when the call
// returns.
func (c *Controller) begin(parent context.Context, op string) (context.Context, func(), error) {
	if c.base.Err() != nil || parent.Err() != nil {
		return nil, nil, robin.ErrCancelled
	}
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(c.base, cancel)

	c.mu.Lock()
	if prev, ok := c.calls[op]; ok {
		prev.cancel()
	}
	c.seq++
	token := c.seq
	c.calls[op] = inflight{token: token, cancel: cancel}
	c.active++
	c.state.SetLoading(true)
	c.state.SetError(nil)
	c.mu.Unlock()

	done := func() {
		stop()
		cancel()
		c.mu.Lock()
		if cur, ok := c.calls[op]; ok && cur.token == token {
			delete(c.calls, op)
		}
		c.active--
		if c.active == 0 {
			c.state.SetLoading(false)
		}
		c.mu.Unlock()
	}
	return ctx, done, nil
}

// fail routes err to the store. Cancellation is silent.
func (c *Controller) fail(ctx context.Context, log *slog.Logger, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		log.Debug("call cancelled")
		return robin.ErrCancelled
	}
	log.Error("call failed", "error", err)
	c.state.SetError(err)
	return err
}

func (c *Controller) message(role domain.Role, content string, ac *domain.AnalysisContext) domain.Message {
	m := domain.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: c.now(),
	}
	if ac != nil {
		if ac.Market != nil {
			snap := ac.Market.Snapshot
			m.Market = &snap
		}
		m.Options = ac.Options
	}
	return m
}

func (c *Controller) record(ctx context.Context, symbol string, m domain.Message) {
	entry := store.TranscriptEntry{SessionID: c.sessionID, Symbol: symbol, Message: m}
	if m.Market != nil {
		entry.Price = m.Market.CurrentPrice
	}
	if err := c.archive.RecordMessage(context.WithoutCancel(ctx), entry); err != nil {
		c.log.Warn("archive message failed", "id", m.ID, "error", err)
	}
}

func seriesLen(mc *domain.MarketContext) int {
	if mc == nil {
		return 0
	}
	return mc.Series.Len()
}
