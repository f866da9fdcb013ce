// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/asset"
	"github.com/luxfi/sealbid/pkg/commit"
	"github.com/luxfi/sealbid/pkg/escrow"
	"github.com/luxfi/sealbid/pkg/events"
	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/log"
	"github.com/luxfi/sealbid/pkg/metric"
)

// Registry owns every auction and the escrow ledger behind them.
//
// Auctions live in an arena keyed by a monotonic id. Operations on one
// auction are serialized by that auction's mutex; the arena lock is only
// held for lookups and inserts.
type Registry struct {
	cfg    Config
	assets asset.Registry
	vault  escrow.Vault
	ledger *escrow.Ledger
	scheme commit.Scheme

	clock     Clock
	log       log.Logger
	metrics   *metric.Metrics
	store     Store
	publisher events.Publisher

	mu       sync.RWMutex
	auctions map[uint64]*auction
	nextID   uint64
	open     int

	claimMu sync.Mutex
}

// Option configures a Registry
type Option func(*Registry)

func WithClock(c Clock) Option {
	return func(r *Registry) { r.clock = c }
}

func WithLogger(l log.Logger) Option {
	return func(r *Registry) { r.log = l }
}

func WithMetrics(m *metric.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithStorage persists every mutation and restores state on construction
func WithStorage(s Store) Option {
	return func(r *Registry) { r.store = s }
}

func WithPublisher(p events.Publisher) Option {
	return func(r *Registry) { r.publisher = p }
}

// WithScheme overrides the scheme named in Config
func WithScheme(s commit.Scheme) Option {
	return func(r *Registry) { r.scheme = s }
}

// NewRegistry creates a registry, restoring persisted state when storage is configured
func NewRegistry(cfg Config, assets asset.Registry, vault escrow.Vault, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.CommitPolicy == "" {
		cfg.CommitPolicy = PolicyReject
	}

	r := &Registry{
		cfg:      cfg,
		assets:   assets,
		vault:    vault,
		clock:    SystemClock{},
		log:      log.NoOp(),
		auctions: make(map[uint64]*auction),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metric.NewMetrics("sealbid")
	}
	if r.scheme == nil {
		scheme, err := commit.New(cfg.Scheme)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		r.scheme = scheme
	}
	r.ledger = escrow.NewLedger(r.log)

	if r.store != nil {
		if err := r.restore(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Config() Config {
	return r.cfg
}

// Scheme returns the commitment scheme bids must use
func (r *Registry) Scheme() commit.Scheme {
	return r.scheme
}

// GenerateCommitment computes the commitment a bidder submits for amount and nonce
func (r *Registry) GenerateCommitment(amount *uint256.Int, nonce ids.ID) commit.Commitment {
	return r.scheme.Commit(amount, nonce)
}

// Create locks the seller's asset with the custodian and opens bidding
func (r *Registry) Create(ctx context.Context, seller ids.Address, p CreateParams) (*events.AuctionCreated, error) {
	defer r.metrics.ObserveOp("create", time.Now())

	if err := r.checkDurations(p); err != nil {
		return nil, err
	}
	minPrice := new(uint256.Int)
	if p.MinPrice != nil {
		minPrice.Set(p.MinPrice)
	}

	owner, err := r.assets.OwnerOf(ctx, p.AssetID)
	switch {
	case errors.Is(err, asset.ErrUnknownAsset):
		return nil, ErrAssetNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to read asset owner: %w", err)
	case owner != seller:
		return nil, ErrAssetNotOwned
	}
	approved, err := r.assets.IsApproved(ctx, p.AssetID, r.cfg.Custodian)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset approval: %w", err)
	}
	if !approved {
		return nil, ErrAssetNotApproved
	}

	if err := r.assets.Transfer(ctx, r.cfg.Custodian, p.AssetID, seller, r.cfg.Custodian); err != nil {
		switch {
		case errors.Is(err, asset.ErrNotOwner):
			return nil, ErrAssetNotOwned
		case errors.Is(err, asset.ErrNotAuthorized):
			return nil, ErrAssetNotApproved
		}
		return nil, fmt.Errorf("failed to lock asset: %w", err)
	}

	now := r.clock.Now()
	biddingDeadline := now.Add(p.BiddingDuration)
	a := &auction{
		seller:          seller,
		assetID:         p.AssetID,
		minPrice:        *minPrice,
		createdAt:       now,
		biddingDeadline: biddingDeadline,
		revealDeadline:  biddingDeadline.Add(p.RevealDuration),
		bids:            make(map[ids.Address]*bid),
	}

	r.mu.Lock()
	r.nextID++
	a.id = r.nextID
	r.mu.Unlock()

	if err := r.persist(a); err != nil {
		if terr := r.assets.Transfer(ctx, r.cfg.Custodian, p.AssetID, r.cfg.Custodian, seller); terr != nil {
			r.log.Error("failed to return asset after aborted create",
				log.String("asset", string(p.AssetID)),
				log.Address("seller", seller),
				log.Error(terr),
			)
		}
		return nil, err
	}

	r.mu.Lock()
	r.auctions[a.id] = a
	r.open++
	r.metrics.AuctionsOpen.Set(float64(r.open))
	r.mu.Unlock()
	r.metrics.AuctionsCreated.Inc()

	ev := &events.AuctionCreated{
		AuctionID:       a.id,
		Seller:          seller,
		AssetID:         string(p.AssetID),
		MinPrice:        minPrice.Clone(),
		BiddingDeadline: a.biddingDeadline,
		RevealDeadline:  a.revealDeadline,
	}
	r.log.Info("auction created",
		log.Uint64("auction", a.id),
		log.Address("seller", seller),
		log.String("asset", string(p.AssetID)),
		log.Amount("minPrice", minPrice),
	)
	r.publish(ev)
	return ev, nil
}

func (r *Registry) checkDurations(p CreateParams) error {
	if p.BiddingDuration <= 0 || p.RevealDuration <= 0 {
		return fmt.Errorf("%w: durations must be positive", ErrInvalidDuration)
	}
	if p.BiddingDuration < r.cfg.MinBiddingDuration ||
		(r.cfg.MaxBiddingDuration > 0 && p.BiddingDuration > r.cfg.MaxBiddingDuration) {
		return fmt.Errorf("%w: bidding duration %s out of bounds", ErrInvalidDuration, p.BiddingDuration)
	}
	if p.RevealDuration < r.cfg.MinRevealDuration ||
		(r.cfg.MaxRevealDuration > 0 && p.RevealDuration > r.cfg.MaxRevealDuration) {
		return fmt.Errorf("%w: reveal duration %s out of bounds", ErrInvalidDuration, p.RevealDuration)
	}
	return nil
}

// Commit records a sealed bid and escrows value
func (r *Registry) Commit(ctx context.Context, id uint64, bidder ids.Address, c commit.Commitment, value *uint256.Int) (*events.BidCommitted, error) {
	defer r.metrics.ObserveOp("commit", time.Now())

	ev, err := r.commit(ctx, id, bidder, c, value)
	if err != nil {
		r.metrics.Commits.WithLabelValues(CodeOf(err)).Inc()
		return nil, err
	}
	r.metrics.Commits.WithLabelValues("ok").Inc()
	r.publish(ev)
	return ev, nil
}

func (r *Registry) commit(ctx context.Context, id uint64, bidder ids.Address, c commit.Commitment, value *uint256.Int) (*events.BidCommitted, error) {
	a, err := r.get(id)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !r.clock.Now().Before(a.biddingDeadline) {
		return nil, ErrBiddingPeriodEnded
	}
	if value == nil || value.IsZero() {
		return nil, ErrZeroValue
	}
	prev, exists := a.bids[bidder]
	if exists && r.cfg.CommitPolicy != PolicyReplace {
		return nil, ErrAlreadyCommitted
	}

	if err := r.vault.Collect(ctx, bidder, value); err != nil {
		if errors.Is(err, escrow.ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to collect escrow: %w", err)
	}
	escrowed, err := r.ledger.Lock(id, bidder, value)
	if err != nil {
		r.refund(ctx, id, bidder, value)
		return nil, fmt.Errorf("failed to lock escrow: %w", err)
	}

	next := &bid{commitment: c, escrowed: *escrowed}
	a.bids[bidder] = next
	if !exists {
		a.order = append(a.order, bidder)
	}

	if err := r.persist(a); err != nil {
		if exists {
			a.bids[bidder] = prev
		} else {
			delete(a.bids, bidder)
			a.order = a.order[:len(a.order)-1]
		}
		if uerr := r.ledger.Unlock(id, bidder, value); uerr != nil {
			r.log.Error("failed to unlock escrow", log.Uint64("auction", id), log.Address("bidder", bidder), log.Error(uerr))
		}
		r.refund(ctx, id, bidder, value)
		return nil, err
	}

	r.log.Debug("bid committed",
		log.Uint64("auction", id),
		log.Address("bidder", bidder),
		log.Amount("escrowed", escrowed),
		log.Bool("replaced", exists),
	)
	return &events.BidCommitted{AuctionID: id, Bidder: bidder, Escrowed: escrowed, Replaced: exists}, nil
}

// refund returns value collected for an aborted commit; a failed refund becomes a claim
func (r *Registry) refund(ctx context.Context, id uint64, bidder ids.Address, value *uint256.Int) {
	if err := r.vault.Pay(ctx, bidder, value); err != nil {
		r.log.Warn("refund failed, crediting claim", log.Uint64("auction", id), log.Address("bidder", bidder), log.Error(err))
		if cerr := r.ledger.Credit(bidder, value); cerr != nil {
			r.log.Error("claim credit failed", log.Address("bidder", bidder), log.Error(cerr))
		}
		if perr := r.persistClaim(bidder); perr != nil {
			r.log.Error("failed to persist claim", log.Address("bidder", bidder), log.Error(perr))
		}
	}
}

// Reveal opens a commitment. A reveal below the minimum price is recorded but never leads.
func (r *Registry) Reveal(ctx context.Context, id uint64, bidder ids.Address, amount *uint256.Int, nonce ids.ID) (*events.BidRevealed, error) {
	defer r.metrics.ObserveOp("reveal", time.Now())

	ev, err := r.reveal(id, bidder, amount, nonce)
	if err != nil {
		r.metrics.Reveals.WithLabelValues(CodeOf(err)).Inc()
		return nil, err
	}
	switch {
	case ev.Leading:
		r.metrics.Reveals.WithLabelValues("leading").Inc()
	case ev.BelowMinimum:
		r.metrics.Reveals.WithLabelValues("below_minimum").Inc()
	default:
		r.metrics.Reveals.WithLabelValues("valid").Inc()
	}
	r.publish(ev)
	return ev, nil
}

func (r *Registry) reveal(id uint64, bidder ids.Address, amount *uint256.Int, nonce ids.ID) (*events.BidRevealed, error) {
	a, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		amount = new(uint256.Int)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := r.clock.Now()
	if now.Before(a.biddingDeadline) {
		return nil, ErrBiddingPeriodNotEnded
	}
	if a.ended || !now.Before(a.revealDeadline) {
		return nil, ErrRevealPeriodEnded
	}
	b, exists := a.bids[bidder]
	if !exists {
		return nil, ErrNoSuchCommitment
	}
	if b.revealed {
		return nil, ErrAlreadyRevealed
	}
	if !r.scheme.Verify(b.commitment, amount, nonce) {
		return nil, ErrCommitmentMismatch
	}
	if amount.Gt(r.ledger.Escrowed(id, bidder)) {
		return nil, fmt.Errorf("%w: amount exceeds escrow", ErrCommitmentMismatch)
	}

	prev := *b
	prevHighest := a.highest

	a.revealSeq++
	b.revealed = true
	b.amount = *amount
	b.revealOrder = a.revealSeq
	b.belowMinimum = amount.Lt(&a.minPrice)
	leading := !b.belowMinimum && (a.highest == nil || amount.Gt(a.highest.Amount))
	if leading {
		a.highest = &HighestBid{Bidder: bidder, Amount: amount.Clone()}
	}

	if err := r.persist(a); err != nil {
		*b = prev
		a.highest = prevHighest
		a.revealSeq--
		return nil, err
	}

	r.log.Debug("bid revealed",
		log.Uint64("auction", id),
		log.Address("bidder", bidder),
		log.Amount("amount", amount),
		log.Bool("leading", leading),
		log.Bool("belowMinimum", b.belowMinimum),
	)
	return &events.BidRevealed{
		AuctionID:    id,
		Bidder:       bidder,
		Amount:       amount.Clone(),
		BelowMinimum: b.belowMinimum,
		Leading:      leading,
	}, nil
}

// Get returns a snapshot of one auction
func (r *Registry) Get(id uint64) (*Snapshot, error) {
	a, err := r.get(id)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot(r.clock.Now()), nil
}

// List returns a snapshot of every auction ordered by id
func (r *Registry) List() []*Snapshot {
	r.mu.RLock()
	all := make([]*auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		all = append(all, a)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })
	now := r.clock.Now()
	out := make([]*Snapshot, 0, len(all))
	for _, a := range all {
		a.mu.Lock()
		out = append(out, a.snapshot(now))
		a.mu.Unlock()
	}
	return out
}

// Escrowed returns what bidder currently has locked in auction id
func (r *Registry) Escrowed(id uint64, bidder ids.Address) *uint256.Int {
	return r.ledger.Escrowed(id, bidder)
}

// Claimable returns who's balance left over from failed payouts
func (r *Registry) Claimable(who ids.Address) *uint256.Int {
	return r.ledger.Claimable(who)
}

// Withdraw pays out who's claimable balance
func (r *Registry) Withdraw(ctx context.Context, who ids.Address) (*uint256.Int, error) {
	defer r.metrics.ObserveOp("withdraw", time.Now())

	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	amount, err := r.ledger.Withdraw(ctx, r.vault, who, func() error { return r.persistClaimLocked(who) })
	switch {
	case errors.Is(err, escrow.ErrNothingToClaim):
		return nil, ErrNothingToClaim
	case errors.Is(err, escrow.ErrNotRecorded):
		return nil, fmt.Errorf("failed to record withdrawal: %w", err)
	case err != nil:
		r.metrics.Transfers.WithLabelValues("claim", "failed").Inc()
		return nil, fmt.Errorf("failed to pay claim: %w", err)
	}
	r.metrics.Transfers.WithLabelValues("claim", "ok").Inc()
	r.metrics.ClaimsOutstanding.Set(float64(len(r.ledger.Claims())))
	r.log.Debug("claim withdrawn", log.Address("who", who), log.Amount("amount", amount))
	return amount, nil
}

func (r *Registry) get(id uint64) (*auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.auctions[id]
	if !exists {
		return nil, ErrAuctionNotFound
	}
	return a, nil
}

func (r *Registry) publish(ev events.Event) {
	if r.publisher != nil {
		r.publisher.Publish(ev)
	}
}
