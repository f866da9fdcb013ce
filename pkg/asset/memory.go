package asset

import (
	"context"
	"sort"
	"sync"

	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/log"
)

// Token is the state of one item in a MemoryRegistry
type Token struct {
	ID       ID          `json:"id"`
	Owner    ids.Address `json:"owner"`
	Approved ids.Address `json:"approved"`
}

// MemoryRegistry is an in-process NFT-style registry with per-token approval
// and per-owner operator approval.
type MemoryRegistry struct {
	mu        sync.RWMutex
	tokens    map[ID]*Token
	operators map[ids.Address]map[ids.Address]bool
	log       log.Logger
}

// NewMemoryRegistry creates an empty registry
func NewMemoryRegistry(logger log.Logger) *MemoryRegistry {
	return &MemoryRegistry{
		tokens:    make(map[ID]*Token),
		operators: make(map[ids.Address]map[ids.Address]bool),
		log:       logger,
	}
}

// Mint creates id owned by owner
func (r *MemoryRegistry) Mint(id ID, owner ids.Address) error {
	if id == "" {
		return ErrEmptyID
	}
	if owner.IsEmpty() {
		return ErrZeroAddress
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokens[id]; exists {
		return ErrAssetExists
	}
	r.tokens[id] = &Token{ID: id, Owner: owner}
	r.log.Debug("asset minted", log.String("asset", string(id)), log.Address("owner", owner))
	return nil
}

// Approve lets operator move id; only the owner may approve
func (r *MemoryRegistry) Approve(_ context.Context, owner ids.Address, id ID, operator ids.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, exists := r.tokens[id]
	if !exists {
		return ErrUnknownAsset
	}
	if token.Owner != owner {
		return ErrNotOwner
	}
	token.Approved = operator
	return nil
}

// SetApprovalForAll lets operator move every token owned by owner
func (r *MemoryRegistry) SetApprovalForAll(owner, operator ids.Address, approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ops, exists := r.operators[owner]
	if !exists {
		ops = make(map[ids.Address]bool)
		r.operators[owner] = ops
	}
	if approved {
		ops[operator] = true
	} else {
		delete(ops, operator)
	}
}

// OwnerOf implements Registry
func (r *MemoryRegistry) OwnerOf(_ context.Context, id ID) (ids.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, exists := r.tokens[id]
	if !exists {
		return ids.EmptyAddress, ErrUnknownAsset
	}
	return token.Owner, nil
}

// IsApproved implements Registry
func (r *MemoryRegistry) IsApproved(_ context.Context, id ID, operator ids.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, exists := r.tokens[id]
	if !exists {
		return false, ErrUnknownAsset
	}
	return r.mayMove(token, operator), nil
}

// Transfer implements Registry. Approval is cleared on every transfer.
func (r *MemoryRegistry) Transfer(_ context.Context, operator ids.Address, id ID, from, to ids.Address) error {
	if to.IsEmpty() {
		return ErrZeroAddress
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	token, exists := r.tokens[id]
	if !exists {
		return ErrUnknownAsset
	}
	if token.Owner != from {
		return ErrNotOwner
	}
	if operator != from && !r.mayMove(token, operator) {
		return ErrNotAuthorized
	}

	token.Owner = to
	token.Approved = ids.EmptyAddress
	r.log.Debug("asset transferred",
		log.String("asset", string(id)),
		log.Address("from", from),
		log.Address("to", to),
	)
	return nil
}

// Token returns a copy of the token state
func (r *MemoryRegistry) Token(id ID) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, exists := r.tokens[id]
	if !exists {
		return Token{}, false
	}
	return *token, true
}

// Tokens returns every token sorted by id
func (r *MemoryRegistry) Tokens() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Token, 0, len(r.tokens))
	for _, token := range r.tokens {
		out = append(out, *token)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *MemoryRegistry) mayMove(token *Token, operator ids.Address) bool {
	if token.Owner == operator {
		return true
	}
	if !token.Approved.IsEmpty() && token.Approved == operator {
		return true
	}
	return r.operators[token.Owner][operator]
}
