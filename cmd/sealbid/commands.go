package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/holiman/uint256"

	"github.com/luxfi/sealbid/pkg/api"
	"github.com/luxfi/sealbid/pkg/client"
	"github.com/luxfi/sealbid/pkg/commit"
	"github.com/luxfi/sealbid/pkg/ids"
	"github.com/luxfi/sealbid/pkg/units"
)

var errUsage = errors.New("usage")

type env struct {
	ctx    context.Context
	out    io.Writer
	client *client.Client
	admin  string
	as     ids.Address
}

type command struct {
	usage string
	run   func(e *env, args []string) error
}

var commands = map[string]command{
	"commitment": {"commitment <amount-eth> [nonce]", commitmentCmd},
	"create":     {"create <asset> <min-price-eth> <bidding> <reveal>", createCmd},
	"commit":     {"commit <auction> <amount-eth> <value-eth>", commitCmd},
	"reveal":     {"reveal <auction> <amount-eth> <nonce>", revealCmd},
	"end":        {"end <auction>", endCmd},
	"deliver":    {"deliver <auction>", deliverCmd},
	"show":       {"show <auction>", showCmd},
	"list":       {"list", listCmd},
	"account":    {"account [address]", accountCmd},
	"withdraw":   {"withdraw", withdrawCmd},
	"approve":    {"approve <asset> [operator]", approveCmd},
	"watch":      {"watch [auction]", watchCmd},
	"version":    {"version", versionCmd},
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sealbid", flag.ContinueOnError)
	fs.SetOutput(out)
	node := fs.String("node", envOr("SEALBID_NODE", "http://localhost:8080"), "API base URL")
	admin := fs.String("admin", envOr("SEALBID_ADMIN", "ws://localhost:9090/ws"), "Admin websocket URL")
	as := fs.String("as", os.Getenv("SEALBID_PRINCIPAL"), "Address to act as")
	fs.Usage = func() { usage(fs, out) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		usage(fs, out)
		return errUsage
	}

	var principal ids.Address
	if *as != "" {
		var err error
		if principal, err = ids.AddressFromString(*as); err != nil {
			return err
		}
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		usage(fs, out)
		return fmt.Errorf("unknown command %q", name)
	}
	e := &env{
		ctx:    ctx,
		out:    out,
		client: client.NewClient(*node, principal),
		admin:  *admin,
		as:     principal,
	}
	if err := cmd.run(e, fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return fmt.Errorf("usage: sealbid %s", cmd.usage)
		}
		return err
	}
	return nil
}

func usage(fs *flag.FlagSet, out io.Writer) {
	fmt.Fprintln(out, "Usage: sealbid [flags] <command> [args]")
	fmt.Fprintln(out, "\nCommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(out, "\nAmounts are in ether; durations use Go syntax (90s, 1h).")
	fmt.Fprintln(out, "\nFlags:")
	fs.PrintDefaults()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e *env) print(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (e *env) requirePrincipal() error {
	if e.as.IsEmpty() {
		return errors.New("--as or SEALBID_PRINCIPAL is required")
	}
	return nil
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid auction id %q", s)
	}
	return id, nil
}

func wholeSeconds(s string) (uint64, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 || d%time.Second != 0 {
		return 0, fmt.Errorf("duration %s must be a positive whole number of seconds", s)
	}
	return uint64(d / time.Second), nil
}

// localCommitment hashes with the node's scheme without sending the amount
func (e *env) localCommitment(amount *uint256.Int, nonce ids.ID) (commit.Commitment, string, error) {
	info, err := e.client.Info(e.ctx)
	if err != nil {
		return commit.Commitment{}, "", err
	}
	scheme, err := commit.New(info.Scheme)
	if err != nil {
		return commit.Commitment{}, "", err
	}
	return scheme.Commit(amount, nonce), scheme.Name(), nil
}

func commitmentCmd(e *env, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	amount, err := units.ParseEther(args[0])
	if err != nil {
		return err
	}
	var nonce ids.ID
	if len(args) == 2 {
		nonce, err = ids.FromString(args[1])
	} else {
		nonce, err = commit.RandomNonce()
	}
	if err != nil {
		return err
	}
	c, scheme, err := e.localCommitment(amount, nonce)
	if err != nil {
		return err
	}
	return e.print(map[string]any{"commitment": c, "nonce": nonce, "scheme": scheme, "amount": amount})
}

func createCmd(e *env, args []string) error {
	if len(args) != 4 {
		return errUsage
	}
	if err := e.requirePrincipal(); err != nil {
		return err
	}
	minPrice, err := units.ParseEther(args[1])
	if err != nil {
		return err
	}
	bidding, err := wholeSeconds(args[2])
	if err != nil {
		return err
	}
	reveal, err := wholeSeconds(args[3])
	if err != nil {
		return err
	}
	ev, err := e.client.CreateAuction(e.ctx, api.CreateAuctionRequest{
		AssetID:        args[0],
		MinPrice:       minPrice,
		BiddingSeconds: bidding,
		RevealSeconds:  reveal,
	})
	if err != nil {
		return err
	}
	return e.print(ev)
}

// commitCmd seals amount with a fresh nonce and escrows value. The nonce is
// printed once and is needed to reveal.
func commitCmd(e *env, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	if err := e.requirePrincipal(); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	amount, err := units.ParseEther(args[1])
	if err != nil {
		return err
	}
	value, err := units.ParseEther(args[2])
	if err != nil {
		return err
	}

	nonce, err := commit.RandomNonce()
	if err != nil {
		return err
	}
	c, _, err := e.localCommitment(amount, nonce)
	if err != nil {
		return err
	}
	ev, err := e.client.Commit(e.ctx, id, c, value)
	if err != nil {
		return err
	}
	return e.print(map[string]any{"event": ev, "commitment": c, "nonce": nonce})
}

func revealCmd(e *env, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	if err := e.requirePrincipal(); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	amount, err := units.ParseEther(args[1])
	if err != nil {
		return err
	}
	nonce, err := ids.FromString(args[2])
	if err != nil {
		return err
	}
	ev, err := e.client.Reveal(e.ctx, id, amount, nonce)
	if err != nil {
		return err
	}
	return e.print(ev)
}

func endCmd(e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ev, err := e.client.End(e.ctx, id)
	if err != nil {
		return err
	}
	return e.print(ev)
}

func deliverCmd(e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ev, err := e.client.Deliver(e.ctx, id)
	if err != nil {
		return err
	}
	return e.print(ev)
}

func showCmd(e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	snap, err := e.client.GetAuction(e.ctx, id)
	if err != nil {
		return err
	}
	return e.print(snap)
}

func listCmd(e *env, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	snaps, err := e.client.ListAuctions(e.ctx)
	if err != nil {
		return err
	}
	for _, s := range snaps {
		fmt.Fprintf(e.out, "%d\t%s\t%s\tmin=%s\tbids=%d\n",
			s.ID, s.State, s.AssetID, units.FormatEther(s.MinPrice), len(s.Bids))
	}
	return nil
}

func accountCmd(e *env, args []string) error {
	who := e.as
	switch len(args) {
	case 0:
		if err := e.requirePrincipal(); err != nil {
			return err
		}
	case 1:
		var err error
		if who, err = ids.AddressFromString(args[0]); err != nil {
			return err
		}
	default:
		return errUsage
	}
	acct, err := e.client.Account(e.ctx, who)
	if err != nil {
		return err
	}
	return e.print(map[string]any{
		"address":   acct.Address,
		"balance":   units.FormatEther(acct.Balance),
		"claimable": units.FormatEther(acct.Claimable),
	})
}

func withdrawCmd(e *env, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	if err := e.requirePrincipal(); err != nil {
		return err
	}
	amount, err := e.client.Withdraw(e.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "withdrew %s ETH\n", units.FormatEther(amount))
	return nil
}

func approveCmd(e *env, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errUsage
	}
	if err := e.requirePrincipal(); err != nil {
		return err
	}
	var operator ids.Address
	if len(args) == 2 {
		var err error
		if operator, err = ids.AddressFromString(args[1]); err != nil {
			return err
		}
	}
	if err := e.client.Approve(e.ctx, args[0], operator); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "approved %s\n", args[0])
	return nil
}

func watchCmd(e *env, args []string) error {
	var id uint64
	switch len(args) {
	case 0:
	case 1:
		var err error
		if id, err = parseID(args[0]); err != nil {
			return err
		}
	default:
		return errUsage
	}
	stream, err := client.Watch(e.ctx, e.admin, id)
	if err != nil {
		return err
	}
	for msg := range stream {
		fmt.Fprintf(e.out, "%s\t%d\t%s\t%s\n", msg.Timestamp.Format(time.RFC3339), msg.AuctionID, msg.Type, msg.Data)
	}
	return nil
}

func versionCmd(e *env, _ []string) error {
	fmt.Fprintf(e.out, "sealbid %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
	return nil
}
