// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command gemd is the gem full node: it bootstraps the chain store, joins
// the P2P network, optionally mines, and serves RPC.
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/slog"
	p2pcrypto "github.com/libp2p/go-libp2p/core/crypto"

	"github.com/gem-network/gem/internal/crypto"
	"github.com/gem-network/gem/internal/miner"
	"github.com/gem-network/gem/internal/network"
	"github.com/gem-network/gem/internal/pow"
	"github.com/gem-network/gem/internal/rpc"
	"github.com/gem-network/gem/internal/state"
	"github.com/gem-network/gem/internal/store"
	"github.com/gem-network/gem/internal/wallet"
	"github.com/gem-network/gem/params"
)

// miningTickInterval is how often the scheduler polls for a mining attempt.
// A single nonce attempt is cheap, so this is a tight interval rather than
// a user-configurable tunable.
const miningTickInterval = 50 * time.Millisecond

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gemd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level, err := parseLevel(cfg.Debug)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg.logFile(), level); err != nil {
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	if cfg.GenerateKeys {
		return generateKeys(cfg)
	}
	if cfg.ImportSecretKey != "" {
		return importSecretKey(cfg)
	}

	netw, err := params.ParseNetwork(cfg.Network)
	if err != nil {
		return err
	}
	p := params.ForNetwork(netw)

	st, err := store.Open(cfg.storeDir())
	if err != nil {
		return fmt.Errorf("gemd: opening store: %w", err)
	}
	defer st.Close()

	vmCache := pow.NewCache(pow.DefaultMaxVMs)
	chain := state.New(st, p, vmCache)
	chain.DrainMempool = cfg.DrainMempool
	if err := chain.Bootstrap(); err != nil {
		return fmt.Errorf("gemd: bootstrap: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var nodeIdentity p2pcrypto.PrivKey
	var m *miner.Miner
	if cfg.Mining {
		w, err := loadOrPromptWallet(cfg)
		if err != nil {
			return fmt.Errorf("gemd: loading wallet: %w", err)
		}
		nodeIdentity, _, err = p2pcrypto.GenerateEd25519Key(rand.Reader)
		if err != nil {
			return fmt.Errorf("gemd: deriving node identity: %w", err)
		}
		addr := crypto.DeriveAddress(w.PublicKey)
		m = miner.New(chain, w.SecretKey, w.PublicKey, addr)
	}

	netLayer, err := network.New(ctx, chain, cfg.ListenAddress, nodeIdentity)
	if err != nil {
		return fmt.Errorf("gemd: network: %w", err)
	}
	defer netLayer.Close()
	if err := netLayer.Start(ctx); err != nil {
		return fmt.Errorf("gemd: starting network: %w", err)
	}
	for _, addr := range cfg.Peers {
		if err := netLayer.AddPeer(ctx, addr); err != nil {
			network.Log.Warnf("network: --peer %s: %v", addr, err)
		}
	}

	rpcServer := rpc.New(cfg.rpcListenAddr(), chain)
	go func() {
		if err := rpcServer.ListenAndServe(); err != nil {
			rpc.Log.Errorf("rpc: server stopped: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		rpcServer.Shutdown(shutdownCtx)
	}()

	return runScheduler(ctx, chain, netLayer, m)
}

// runScheduler multiplexes the mining-attempt ticker against OS shutdown
// signals. The network layer's own goroutines (gossip, sync) run
// independently and synchronize through State's reader/writer lock, not
// through this loop; one mining attempt runs per tick, only while the chain
// reports itself in sync, so a long unlucky streak never starves shutdown
// handling.
func runScheduler(ctx context.Context, chain *state.State, netLayer *network.Network, m *miner.Miner) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var tickCh <-chan time.Time
	if m != nil {
		ticker := time.NewTicker(miningTickInterval)
		defer ticker.Stop()
		tickCh = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigCh:
			state.Log.Infof("gemd: received %v, shutting down", sig)
			return nil
		case <-tickCh:
			if !chain.IsSync() {
				continue
			}
			nowMillis := big.NewInt(time.Now().UnixMilli())
			b, err := m.Tick(nowMillis)
			if err != nil {
				miner.Log.Warnf("miner: tick failed: %v", err)
				continue
			}
			if b != nil {
				if err := netLayer.PublishBlock(ctx, b); err != nil {
					network.Log.Warnf("network: publishing mined block failed: %v", err)
				}
			}
		}
	}
}

func parseLevel(s string) (slog.Level, error) {
	level, ok := slog.LevelFromString(s)
	if !ok {
		return 0, fmt.Errorf("gemd: unknown log level %q", s)
	}
	return level, nil
}

func generateKeys(cfg *config) error {
	w, err := wallet.Generate()
	if err != nil {
		return err
	}
	pw, err := resolvePassword(cfg)
	if err != nil {
		return err
	}
	if err := w.Save(cfg.walletFile(), pw); err != nil {
		return err
	}
	fmt.Printf("generated key pair, address %s\n", crypto.DeriveAddress(w.PublicKey))
	return nil
}

func importSecretKey(cfg *config) error {
	sk, err := decodeSecretKey(cfg.ImportSecretKey)
	if err != nil {
		return err
	}
	w := wallet.Import(sk)
	pw, err := resolvePassword(cfg)
	if err != nil {
		return err
	}
	if err := w.Save(cfg.walletFile(), pw); err != nil {
		return err
	}
	fmt.Printf("imported key pair, address %s\n", crypto.DeriveAddress(w.PublicKey))
	return nil
}

func loadOrPromptWallet(cfg *config) (*wallet.Wallet, error) {
	pw, err := resolvePassword(cfg)
	if err != nil {
		return nil, err
	}
	w, err := wallet.Load(cfg.walletFile(), pw)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("gemd: no wallet.dat in %s; run with --generate-keys first", cfg.Directory)
		}
		return nil, err
	}
	return w, nil
}

func resolvePassword(cfg *config) ([]byte, error) {
	if cfg.WalletPassword != "" {
		return []byte(cfg.WalletPassword), nil
	}
	fmt.Print("wallet password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("gemd: reading wallet password: %w", err)
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return []byte(line), nil
}
