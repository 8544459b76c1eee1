package core

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"leasex/core/events"
	"leasex/core/genesis"
	"leasex/core/state"
	"leasex/native/dispute"
	"leasex/native/escrow"
	"leasex/native/leaseproperty"
	"leasex/native/marketplace"
	"leasex/native/xtoken"
	"leasex/storage"
)

// ErrNilDatabase is returned when the node is started without storage.
var ErrNilDatabase = errors.New("core: database must not be nil")

// Observer receives the outcome of every node operation.
type Observer interface {
	ObserveOperation(op string, err error, elapsed time.Duration)
}

// MultiObserver fans an operation outcome out to several observers.
type MultiObserver []Observer

func (m MultiObserver) ObserveOperation(op string, err error, elapsed time.Duration) {
	for _, o := range m {
		if o != nil {
			o.ObserveOperation(op, err, elapsed)
		}
	}
}

// Config carries the economics fixed when the node starts.
type Config struct {
	Escrow      escrow.Params
	Dispute     dispute.Params
	WeiPerToken *uint256.Int
}

// DefaultConfig returns the deployment defaults of every engine.
func DefaultConfig() Config {
	return Config{
		Escrow:      escrow.DefaultParams(),
		Dispute:     dispute.DefaultParams(),
		WeiPerToken: new(uint256.Int).Set(xtoken.DefaultWeiPerToken),
	}
}

// Node owns the state store and serializes every operation against it.
// Mutations run inside a state overlay; the overlay and the events emitted
// while it was open are either committed together or discarded together.
type Node struct {
	db      storage.Database
	stateMu sync.Mutex

	escrowParams  escrow.Params
	disputeParams dispute.Params
	weiPerToken   *uint256.Int

	sinks    []events.Emitter
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// NewNode wires a node over db.
func NewNode(db storage.Database, cfg Config, logger *slog.Logger) (*Node, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	if err := cfg.Escrow.Validate(); err != nil {
		return nil, err
	}
	if cfg.Dispute.MinimumVotes == 0 {
		return nil, fmt.Errorf("core: minimum votes must be at least one")
	}
	if logger == nil {
		logger = slog.Default()
	}
	rate := cfg.WeiPerToken
	if rate == nil || rate.IsZero() {
		rate = xtoken.DefaultWeiPerToken
	}
	return &Node{
		db:            db,
		escrowParams:  cfg.Escrow.Clone(),
		disputeParams: cloneDisputeParams(cfg.Dispute),
		weiPerToken:   new(uint256.Int).Set(rate),
		logger:        logger,
		now:           time.Now,
	}, nil
}

// AddEventSink registers a downstream consumer of committed events. Sinks
// are called in registration order while the state lock is held, so they must
// not block.
func (n *Node) AddEventSink(sink events.Emitter) {
	if sink == nil {
		return
	}
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.sinks = append(n.sinks, sink)
}

// SetObserver installs the operation observer (metrics).
func (n *Node) SetObserver(o Observer) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	n.observer = o
}

// SetNowFunc overrides the node clock. Nil restores time.Now.
func (n *Node) SetNowFunc(now func() time.Time) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if now == nil {
		now = time.Now
	}
	n.now = now
}

// ApplyGenesis seeds balances from spec once and merges the genesis validator
// allowlist and resolver into the dispute parameters.
func (n *Node) ApplyGenesis(spec *genesis.Spec) (bool, error) {
	if spec == nil {
		return false, fmt.Errorf("core: genesis spec must not be nil")
	}
	var applied bool
	err := n.mutate("genesis", func(e *engines) error {
		var err error
		applied, err = genesis.Apply(spec, e.manager)
		return err
	})
	if err != nil {
		return false, err
	}

	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	if validators := spec.ValidatorAddresses(); len(validators) > 0 {
		n.disputeParams.Validators = validators
	}
	if resolver, ok := spec.ResolverAddress(); ok {
		n.disputeParams.Resolver = resolver
	}
	if applied {
		n.logger.Info("genesis applied",
			slog.Int("accounts", len(spec.Accounts)),
			slog.Int("validators", len(n.disputeParams.Validators)))
	}
	return applied, nil
}

// DisputeParams returns the voting parameters in effect.
func (n *Node) DisputeParams() dispute.Params {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return cloneDisputeParams(n.disputeParams)
}

// EscrowFees returns the fee schedule (protection fee, voter reward, vote
// price).
func (n *Node) EscrowFees() escrow.Params {
	return n.escrowParams.Clone()
}

// WeiPerToken returns the XToken exchange rate.
func (n *Node) WeiPerToken() *big.Int {
	return n.weiPerToken.ToBig()
}

func cloneDisputeParams(p dispute.Params) dispute.Params {
	p.Validators = append([][20]byte(nil), p.Validators...)
	return p
}

// engines is one operation's view of the node: every engine bound to the
// same overlay and event buffer.
type engines struct {
	manager    *state.Manager
	buffer     *events.Buffer
	ledger     *xtoken.Ledger
	escrow     *escrow.Engine
	properties *leaseproperty.Registry
	market     *marketplace.Engine
	disputes   *dispute.Engine
}

func (n *Node) newEngines() *engines {
	manager := state.NewManager(n.db)
	buffer := &events.Buffer{}
	nowUnix := func() int64 { return n.now().Unix() }

	ledger := xtoken.NewLedger()
	ledger.SetState(manager)
	ledger.SetEmitter(buffer)
	ledger.SetWeiPerToken(n.weiPerToken)

	custody := escrow.NewEngine()
	custody.SetState(manager)
	custody.SetLedger(ledger)
	custody.SetParams(n.escrowParams)
	custody.SetNowFunc(nowUnix)
	custody.SetEmitter(buffer)

	registry := leaseproperty.NewRegistry()
	registry.SetState(manager)
	registry.SetNowFunc(nowUnix)
	registry.SetEmitter(buffer)

	market := marketplace.NewEngine()
	market.SetState(manager)
	market.SetProperties(registry)
	market.SetCustody(custody)
	market.SetLedger(ledger)
	market.SetNowFunc(nowUnix)
	market.SetEmitter(buffer)

	disputes := dispute.NewEngine()
	disputes.SetState(manager)
	disputes.SetApplications(market)
	disputes.SetProperties(registry)
	disputes.SetCustody(custody)
	disputes.SetParams(n.disputeParams)
	disputes.SetNowFunc(n.now)
	disputes.SetEmitter(buffer)

	return &engines{
		manager:    manager,
		buffer:     buffer,
		ledger:     ledger,
		escrow:     custody,
		properties: registry,
		market:     market,
		disputes:   disputes,
	}
}

// mutate runs fn in a fresh overlay. On success the overlay is committed and
// the buffered events are forwarded to the sinks; on failure both are
// dropped.
func (n *Node) mutate(op string, fn func(*engines) error) (err error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	start := time.Now()
	defer func() {
		if n.observer != nil {
			n.observer.ObserveOperation(op, err, time.Since(start))
		}
	}()

	e := n.newEngines()
	if err = fn(e); err != nil {
		e.manager.Discard()
		e.buffer.Drain()
		n.logger.Debug("operation rejected", slog.String("op", op), slog.Any("error", err))
		return err
	}
	if err = e.manager.Commit(); err != nil {
		e.buffer.Drain()
		n.logger.Error("state commit failed", slog.String("op", op), slog.Any("error", err))
		return fmt.Errorf("commit %s: %w", op, err)
	}
	for _, evt := range e.buffer.Drain() {
		for _, sink := range n.sinks {
			sink.Emit(evt)
		}
	}
	return nil
}

// view runs fn against a read-only overlay that is always discarded.
func (n *Node) view(fn func(*engines) error) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	e := n.newEngines()
	defer e.manager.Discard()
	return fn(e)
}
