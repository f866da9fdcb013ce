package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/sealbid/pkg/auction"
)

const sample = `
[api]
addr = ":7000"

[storage]
db = "badger"
data_dir = "/tmp/sealbid"

[auction]
commit_policy = "replace"
scheme = "sha3-256"
custodian = "0x00000000000000000000000000000000000000aa"
min_bidding_duration = "1m"
max_bidding_duration = "24h"

[log]
level = "debug"

[[accounts]]
address = "0x0000000000000000000000000000000000000001"
balance = "10.5"

[[assets]]
id = "nft/1"
owner = "0x0000000000000000000000000000000000000001"
approved = true
`

func TestParse(t *testing.T) {
	require := require.New(t)

	cfg, err := Parse(sample)
	require.NoError(err)
	require.NoError(cfg.Validate())

	require.Equal(":7000", cfg.API.Addr)
	require.Equal(":9090", cfg.Admin.Addr, "defaults survive")
	require.Equal("debug", cfg.Log.Level)
	require.Equal("console", cfg.Log.Format)

	ac := cfg.AuctionConfig()
	require.Equal(auction.PolicyReplace, ac.CommitPolicy)
	require.Equal(time.Minute, ac.MinBiddingDuration)
	require.Equal(24*time.Hour, ac.MaxBiddingDuration)
	require.Equal("0x00000000000000000000000000000000000000aa", ac.Custodian.String())

	require.Len(cfg.Accounts, 1)
	wei, err := cfg.Accounts[0].Wei()
	require.NoError(err)
	require.Equal("10500000000000000000", wei.Dec())
	require.True(cfg.Assets[0].Approved)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sealbid.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\nadress = \":1\"\n"), 0o600))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse("[storage]\ndb = \"memory\"\ndatadir = \"/tmp\"\n")
	require.ErrorIs(t, err, ErrInvalid)

	_, err = Parse("[metrics]\nenabled = true\n")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sealbid.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "badger", cfg.Storage.DB)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no custodian", func(c *Config) {}},
		{"bad db", func(c *Config) { c.Storage.DB = "fdb" }},
		{"bad scheme", func(c *Config) { c.Auction.Scheme = "md5" }},
		{"bad policy", func(c *Config) { c.Auction.CommitPolicy = "maybe" }},
		{"bad balance", func(c *Config) { c.Accounts = []Account{{Balance: "-1"}} }},
		{"bad log level", func(c *Config) { c.Log.Level = "chatty" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(sample)
			require.NoError(t, err)
			if tt.name == "no custodian" {
				cfg = Default()
			}
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
