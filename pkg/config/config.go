// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the sealbidd configuration from TOML
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/auction"
	"github.com/luxfi/sealbid/pkg/commit"
	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/log"
	"github.com/luxfi/sealbid/pkg/storage"
	"github.com/luxfi/sealbid/pkg/units"
)

var ErrInvalid = errors.New("invalid config")

// Duration decodes TOML strings such as "90s" or "1h30m"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Config struct {
	API      APIConfig      `toml:"api"`
	Admin    AdminConfig    `toml:"admin"`
	Storage  StorageConfig  `toml:"storage"`
	Auction  AuctionConfig  `toml:"auction"`
	Events   EventsConfig   `toml:"events"`
	Log      LogConfig      `toml:"log"`
	Accounts []Account      `toml:"accounts"`
	Assets   []AssetGenesis `toml:"assets"`
}

type APIConfig struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
}

type AdminConfig struct {
	Addr string `toml:"addr"`
}

type StorageConfig struct {
	// memory or badger
	DB      string `toml:"db"`
	DataDir string `toml:"data_dir"`
}

type AuctionConfig struct {
	CommitPolicy       string      `toml:"commit_policy"`
	Scheme             string      `toml:"scheme"`
	Custodian          ids.Address `toml:"custodian"`
	MinBiddingDuration Duration    `toml:"min_bidding_duration"`
	MaxBiddingDuration Duration    `toml:"max_bidding_duration"`
	MinRevealDuration  Duration    `toml:"min_reveal_duration"`
	MaxRevealDuration  Duration    `toml:"max_reveal_duration"`
}

type EventsConfig struct {
	Buffer        int    `toml:"buffer"`
	Log           bool   `toml:"log"`
	NATSURL       string `toml:"nats_url"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Prefix        string `toml:"prefix"`
}

type LogConfig struct {
	Level string `toml:"level"`
	// console, colors or json
	Format string `toml:"format"`
	// optional directory for a rotating log file
	Dir string `toml:"dir"`
}

// Account funds an address in the in-memory vault; Balance is in ether
type Account struct {
	Address ids.Address `toml:"address"`
	Balance string      `toml:"balance"`
}

// AssetGenesis mints an asset in the in-memory registry
type AssetGenesis struct {
	ID    string      `toml:"id"`
	Owner ids.Address `toml:"owner"`
	// Approve the custodian at genesis
	Approved bool `toml:"approved"`
}

// Default returns a configuration for a local development node
func Default() *Config {
	return &Config{
		API:     APIConfig{Addr: ":8080", CORSOrigins: []string{"*"}},
		Admin:   AdminConfig{Addr: ":9090"},
		Storage: StorageConfig{DB: storage.KindMemory, DataDir: "./data"},
		Auction: AuctionConfig{
			CommitPolicy: string(auction.PolicyReject),
			Scheme:       commit.Keccak256,
		},
		Events: EventsConfig{Buffer: 1024, Log: true, Prefix: "sealbid"},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}

// Load decodes path over the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults
func Parse(text string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return nil, err
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	return cfg, nil
}

func checkUndecoded(md toml.MetaData) error {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: unknown keys %v", ErrInvalid, undecoded)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.API.Addr == "" {
		return fmt.Errorf("%w: api.addr is required", ErrInvalid)
	}
	switch c.Storage.DB {
	case storage.KindMemory:
	case storage.KindBadger:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("%w: storage.data_dir is required for badger", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage.db %q", ErrInvalid, c.Storage.DB)
	}
	if _, err := commit.New(c.Auction.Scheme); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := log.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.AuctionConfig().Validate(); err != nil {
		return err
	}
	for _, a := range c.Accounts {
		if _, err := a.Wei(); err != nil {
			return fmt.Errorf("%w: account %s balance: %v", ErrInvalid, a.Address, err)
		}
	}
	for _, a := range c.Assets {
		if a.ID == "" || a.Owner.IsEmpty() {
			return fmt.Errorf("%w: assets need an id and an owner", ErrInvalid)
		}
	}
	return nil
}

// AuctionConfig converts the [auction] section
func (c *Config) AuctionConfig() auction.Config {
	return auction.Config{
		Custodian:          c.Auction.Custodian,
		CommitPolicy:       auction.CommitPolicy(c.Auction.CommitPolicy),
		Scheme:             c.Auction.Scheme,
		MinBiddingDuration: c.Auction.MinBiddingDuration.Duration,
		MaxBiddingDuration: c.Auction.MaxBiddingDuration.Duration,
		MinRevealDuration:  c.Auction.MinRevealDuration.Duration,
		MaxRevealDuration:  c.Auction.MaxRevealDuration.Duration,
	}
}

// Wei returns the account balance in wei
func (a Account) Wei() (*uint256.Int, error) {
	return units.ParseEther(a.Balance)
}
