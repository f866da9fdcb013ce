// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/luxfi/sealbid/pkg/api"
	"github.com/luxfi/sealbid/pkg/asset"
	"github.com/luxfi/sealbid/pkg/auction"
	"github.com/luxfi/sealbid/pkg/config"
	"github.com/luxfi/sealbid/pkg/escrow"
	"github.com/luxfi/sealbid/pkg/events"
	"github.com/luxfi/sealbid/pkg/log"
	"github.com/luxfi/sealbid/pkg/metric"
	"github.com/luxfi/sealbid/pkg/storage"
)

// Node wires the registry to its collaborators and servers
type Node struct {
	cfg *config.Config
	log log.Logger

	Store    *storage.Storage
	Metrics  *metric.Metrics
	Vault    *escrow.MemoryVault
	Assets   *asset.MemoryRegistry
	Bus      *events.Bus
	Hub      *events.Hub
	Registry *auction.Registry
	API      *api.Server

	apiServer   *http.Server
	adminServer *http.Server
	wg          sync.WaitGroup
}

// NewNode opens storage, applies genesis and restores persisted auctions
func NewNode(cfg *config.Config, logger log.Logger) (*Node, error) {
	store, err := storage.NewStorage(cfg.Storage.DB, cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cfg:     cfg,
		log:     logger,
		Store:   store,
		Metrics: metric.NewMetrics("sealbid"),
		Vault:   escrow.NewMemoryVault(logger),
		Assets:  asset.NewMemoryRegistry(logger),
		Hub:     events.NewHub(logger),
	}
	if err := n.genesis(); err != nil {
		store.Close()
		return nil, err
	}

	sinks := []events.Sink{n.Hub}
	if cfg.Events.Log {
		sinks = append(sinks, events.NewLogSink(logger))
	}
	if cfg.Events.NATSURL != "" {
		sink, err := events.DialNATS(cfg.Events.NATSURL, cfg.Events.Prefix)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Events.RedisAddr != "" {
		sink, err := events.DialRedis(cfg.Events.RedisAddr, cfg.Events.RedisPassword, cfg.Events.RedisDB, cfg.Events.Prefix)
		if err != nil {
			closeSinks(sinks)
			store.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		sinks = append(sinks, sink)
	}
	n.Bus = events.NewBus(logger, cfg.Events.Buffer, sinks...)

	n.Registry, err = auction.NewRegistry(cfg.AuctionConfig(), n.Assets, n.Vault,
		auction.WithLogger(logger),
		auction.WithMetrics(n.Metrics),
		auction.WithStorage(store),
		auction.WithPublisher(n.Bus),
	)
	if err != nil {
		n.Bus.Close()
		store.Close()
		return nil, err
	}

	n.API = api.NewServer(api.Config{
		CORSOrigins: cfg.API.CORSOrigins,
		Release:     cfg.Log.Level != "debug",
	}, n.Registry, n.Assets, n.Vault, cfg.Auction.Custodian, logger, n.Metrics)
	return n, nil
}

// genesis funds accounts and mints assets. Both live in process memory.
func (n *Node) genesis() error {
	ctx := context.Background()
	for _, a := range n.cfg.Accounts {
		wei, err := a.Wei()
		if err != nil {
			return err
		}
		n.Vault.Fund(a.Address, wei)
	}
	for _, g := range n.cfg.Assets {
		id := asset.ID(g.ID)
		if err := n.Assets.Mint(id, g.Owner); err != nil {
			return fmt.Errorf("genesis asset %s: %w", g.ID, err)
		}
		if g.Approved {
			if err := n.Assets.Approve(ctx, g.Owner, id, n.cfg.Auction.Custodian); err != nil {
				return fmt.Errorf("genesis asset %s: %w", g.ID, err)
			}
		}
	}
	n.log.Info("genesis applied",
		log.Int("accounts", len(n.cfg.Accounts)),
		log.Int("assets", len(n.cfg.Assets)),
	)
	return nil
}

// Handlers returns the public and admin handlers
func (n *Node) Handlers() (http.Handler, http.Handler) {
	return n.API.Handler(), api.NewAdminRouter(n.health, n.Metrics.Handler(), n.Hub)
}

func (n *Node) health() map[string]error {
	_, err := n.Store.Has([]byte("health"))
	return map[string]error{"storage": err}
}

// Start runs the event bus, the websocket hub and both HTTP servers
func (n *Node) Start(ctx context.Context) error {
	n.log.Info("starting sealbid node",
		log.String("api", n.cfg.API.Addr),
		log.String("admin", n.cfg.Admin.Addr),
		log.String("db", n.cfg.Storage.DB),
	)

	public, admin := n.Handlers()
	n.apiServer = &http.Server{Addr: n.cfg.API.Addr, Handler: public, ReadHeaderTimeout: 10 * time.Second}
	n.adminServer = &http.Server{Addr: n.cfg.Admin.Addr, Handler: admin, ReadHeaderTimeout: 10 * time.Second}

	n.wg.Add(2)
	go func() {
		defer n.wg.Done()
		n.Hub.Run(ctx)
	}()
	go func() {
		defer n.wg.Done()
		n.Bus.Run(ctx)
	}()

	n.serve("api", n.apiServer)
	if n.cfg.Admin.Addr != "" {
		n.serve("admin", n.adminServer)
	}
	return nil
}

func (n *Node) serve(name string, srv *http.Server) {
	go func() {
		n.log.Info("server listening", log.String("server", name), log.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			n.log.Error("server error", log.String("server", name), log.Error(err))
		}
	}()
}

// Shutdown stops the servers, drains pending events and closes storage
func (n *Node) Shutdown(ctx context.Context) error {
	var errs []error
	if n.apiServer != nil {
		errs = append(errs, n.apiServer.Shutdown(ctx))
	}
	if n.adminServer != nil && n.cfg.Admin.Addr != "" {
		errs = append(errs, n.adminServer.Shutdown(ctx))
	}
	errs = append(errs, n.Bus.Close())
	n.wg.Wait()
	errs = append(errs, n.Store.Close())
	return errors.Join(errs...)
}

func closeSinks(sinks []events.Sink) {
	for _, s := range sinks {
		_ = s.Close()
	}
}
