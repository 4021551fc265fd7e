// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"

	"github.com/gem-network/gem/internal/primitives"
	"github.com/gem-network/gem/params"
)

const (
	defaultDirname     = "gem"
	defaultLogFilename = "gemd.log"
	defaultRPCAddress  = "127.0.0.1"
	defaultRPCPort     = 31337
)

// config holds every value the CLI accepts.
type config struct {
	Directory       string   `short:"b" long:"directory" description:"Directory to store data and wallet.dat"`
	Network         string   `long:"network" description:"Network to connect to {testnet, mainnet}"`
	RPCAddress      string   `long:"rpc-address" description:"RPC server listen address"`
	RPCPort         uint16   `long:"rpc-port" description:"RPC server listen port"`
	ListenAddress   string   `long:"listen" description:"P2P listen multiaddr"`
	Peers           []string `long:"peer" description:"Multiaddr of a peer to connect to at startup (may be repeated)"`
	GenerateKeys    bool     `long:"generate-keys" description:"Generate a new key pair, encrypt it to wallet.dat, and exit"`
	ImportSecretKey string   `long:"import-secret-key" description:"Import a base58 secret key, encrypt it to wallet.dat, and exit"`
	Mining          bool     `long:"mining" description:"Enable block mining (requires a wallet)"`
	WalletPassword  string   `long:"wallet-password" description:"Password protecting wallet.dat (prompted if omitted and a terminal is attached)"`
	DrainMempool    bool     `long:"drain-mempool" description:"Enable fee-ordered mempool draining when mining (default: mine empty blocks)"`
	Debug           string   `long:"debug" description:"Logging level: trace, debug, info, warn, error, critical, off"`
}

// defaultConfig returns a config pre-populated with the documented flag
// defaults.
func defaultConfig() config {
	return config{
		Directory:     filepath.Join(".", defaultDirname),
		Network:       "testnet",
		RPCAddress:    defaultRPCAddress,
		RPCPort:       defaultRPCPort,
		ListenAddress: "/ip4/0.0.0.0/tcp/0",
		Debug:         "info",
	}
}

// loadConfig parses the command line over the defaults.
func loadConfig() (*config, error) {
	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if _, err := params.ParseNetwork(cfg.Network); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Directory, 0700); err != nil {
		return nil, fmt.Errorf("gemd: cannot create data directory: %w", err)
	}

	return &cfg, nil
}

func (c *config) logFile() string {
	return filepath.Join(c.Directory, defaultLogFilename)
}

func (c *config) walletFile() string {
	return filepath.Join(c.Directory, "wallet.dat")
}

func (c *config) storeDir() string {
	return filepath.Join(c.Directory, "data")
}

func (c *config) rpcListenAddr() string {
	return fmt.Sprintf("%s:%d", c.RPCAddress, c.RPCPort)
}

// decodeSecretKey decodes the base58 secret key string given to
// --import-secret-key.
func decodeSecretKey(s string) (primitives.SecretKey, error) {
	b, err := primitives.DecodeBase58(s)
	if err != nil {
		return primitives.SecretKey{}, fmt.Errorf("gemd: malformed secret key: %w", err)
	}
	return primitives.NewSecretKeyFromBytes(b)
}
