// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/asset"
	"github.com/luxfi/sealbid/pkg/auction"
	"github.com/luxfi/sealbid/pkg/commit"
	"github.com/luxfi/sealbid/pkg/ids"
)

// Amounts travel as decimal wei strings.

type InfoResponse struct {
	Custodian    ids.Address          `json:"custodian"`
	Scheme       string               `json:"scheme"`
	CommitPolicy auction.CommitPolicy `json:"commit_policy"`
}

type CommitmentRequest struct {
	Amount *uint256.Int `json:"amount" binding:"required"`
	Nonce  ids.ID       `json:"nonce"`
}

type CommitmentResponse struct {
	Commitment commit.Commitment `json:"commitment"`
	Scheme     string            `json:"scheme"`
}

type CreateAuctionRequest struct {
	AssetID        string       `json:"asset_id" binding:"required"`
	MinPrice       *uint256.Int `json:"min_price"`
	BiddingSeconds uint64       `json:"bidding_seconds"`
	RevealSeconds  uint64       `json:"reveal_seconds"`
}

type CommitRequest struct {
	Commitment commit.Commitment `json:"commitment"`
	Value      *uint256.Int      `json:"value" binding:"required"`
}

type RevealRequest struct {
	Amount *uint256.Int `json:"amount" binding:"required"`
	Nonce  ids.ID       `json:"nonce"`
}

type AccountResponse struct {
	Address   ids.Address  `json:"address"`
	Balance   *uint256.Int `json:"balance"`
	Claimable *uint256.Int `json:"claimable"`
}

type WithdrawResponse struct {
	Address ids.Address  `json:"address"`
	Amount  *uint256.Int `json:"amount"`
}

type AssetResponse struct {
	ID                string      `json:"id"`
	Owner             ids.Address `json:"owner"`
	CustodianApproved bool        `json:"custodian_approved"`
}

// ApproveRequest approves Operator, or the custodian when empty
type ApproveRequest struct {
	Operator ids.Address `json:"operator"`
}

func seconds(v uint64) (time.Duration, error) {
	if v > uint64(math.MaxInt64/int64(time.Second)) {
		return 0, errors.New("duration too large")
	}
	return time.Duration(v) * time.Second, nil
}

func (s *Server) info(c *gin.Context) {
	cfg := s.reg.Config()
	c.JSON(http.StatusOK, InfoResponse{
		Custodian:    cfg.Custodian,
		Scheme:       s.reg.Scheme().Name(),
		CommitPolicy: cfg.CommitPolicy,
	})
}

func (s *Server) generateCommitment(c *gin.Context) {
	var req CommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, CommitmentResponse{
		Commitment: s.reg.GenerateCommitment(req.Amount, req.Nonce),
		Scheme:     s.reg.Scheme().Name(),
	})
}

func (s *Server) createAuction(c *gin.Context) {
	var req CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	bidding, err := seconds(req.BiddingSeconds)
	if err != nil {
		s.fail(c, auction.ErrInvalidDuration)
		return
	}
	reveal, err := seconds(req.RevealSeconds)
	if err != nil {
		s.fail(c, auction.ErrInvalidDuration)
		return
	}

	ev, err := s.reg.Create(c.Request.Context(), principal(c), auction.CreateParams{
		AssetID:         asset.ID(req.AssetID),
		MinPrice:        req.MinPrice,
		BiddingDuration: bidding,
		RevealDuration:  reveal,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (s *Server) listAuctions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"auctions": s.reg.List()})
}

func (s *Server) getAuction(c *gin.Context) {
	id, err := auctionID(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	snap, err := s.reg.Get(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) commitBid(c *gin.Context) {
	id, err := auctionID(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	var req CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	ev, err := s.reg.Commit(c.Request.Context(), id, principal(c), req.Commitment, req.Value)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (s *Server) revealBid(c *gin.Context) {
	id, err := auctionID(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	var req RevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	ev, err := s.reg.Reveal(c.Request.Context(), id, principal(c), req.Amount, req.Nonce)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (s *Server) endAuction(c *gin.Context) {
	id, err := auctionID(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	ev, err := s.reg.End(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (s *Server) deliver(c *gin.Context) {
	id, err := auctionID(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	ev, err := s.reg.Deliver(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (s *Server) getAccount(c *gin.Context) {
	who, err := ids.AddressFromString(c.Param("address"))
	if err != nil {
		s.badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, AccountResponse{
		Address:   who,
		Balance:   s.accounts.Balance(who),
		Claimable: s.reg.Claimable(who),
	})
}

func (s *Server) withdraw(c *gin.Context) {
	who, err := ids.AddressFromString(c.Param("address"))
	if err != nil {
		s.badRequest(c, err)
		return
	}
	if who != principal(c) {
		s.abort(c, http.StatusForbidden, "NotAccountOwner", "only the account owner may withdraw")
		return
	}
	amount, err := s.reg.Withdraw(c.Request.Context(), who)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, WithdrawResponse{Address: who, Amount: amount})
}

func (s *Server) getAsset(c *gin.Context) {
	id := asset.ID(c.Param("asset"))
	owner, err := s.assets.OwnerOf(c.Request.Context(), id)
	if err != nil {
		s.assetError(c, err)
		return
	}
	approved, err := s.assets.IsApproved(c.Request.Context(), id, s.custody)
	if err != nil {
		s.assetError(c, err)
		return
	}
	c.JSON(http.StatusOK, AssetResponse{ID: string(id), Owner: owner, CustodianApproved: approved})
}

func (s *Server) approveAsset(c *gin.Context) {
	var req ApproveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.badRequest(c, err)
			return
		}
	}
	if req.Operator.IsEmpty() {
		req.Operator = s.custody
	}

	id := asset.ID(c.Param("asset"))
	if err := s.assets.Approve(c.Request.Context(), principal(c), id, req.Operator); err != nil {
		s.assetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset_id": id, "operator": req.Operator})
}

func (s *Server) assetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, asset.ErrUnknownAsset):
		s.fail(c, auction.ErrAssetNotFound)
	case errors.Is(err, asset.ErrNotOwner):
		s.fail(c, auction.ErrAssetNotOwned)
	default:
		s.fail(c, err)
	}
}
