// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package network implements the three gem sub-protocols over go-libp2p:
//
//   - Identify: a "gem/<ver>" version string exchanged on connect; mismatch
//     bans the peer.
//   - Gossip (pubsub): "block" and "transaction" topics; any message that
//     fails validation bans its sender.
//   - Request/response sync ("/sync/1"): ascending blocks from
//     requester_height+1, bounded by maxTransmitSize.
//
// Peers are found via local mDNS discovery or added explicitly by
// multiaddr.
package network

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	p2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	p2pnetwork "github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/multiformats/go-multiaddr"

	"github.com/gem-network/gem/internal/block"
	"github.com/gem-network/gem/internal/state"
	"github.com/gem-network/gem/internal/transaction"
	"github.com/gem-network/gem/internal/wire"
)

// Log is the package-level logger, wired to a slog.Backend by cmd/gemd.
var Log = slog.Disabled

// Protocol identifiers and wire constants. maxTransmitSize bounds one sync
// response payload; changing any of these is a network split.
const (
	ProtocolVersion    = "gem/1"
	syncProtocolID     = protocol.ID("/sync/1")
	identifyProtocolID = protocol.ID("/gem/identify/1")
	topicBlock         = "block"
	topicTransaction   = "transaction"
	maxTransmitSize    = 1_000_000
	syncInterval       = 15 * time.Second
	discoveryTag       = "gem-mdns"
)

// Network is one node's view of the gem P2P overlay.
type Network struct {
	host  host.Host
	ps    *pubsub.PubSub
	state *state.State

	blockTopic *pubsub.Topic
	txTopic    *pubsub.Topic

	mu     sync.Mutex
	banned map[peer.ID]bool
}

// New creates a libp2p host listening on listenAddr (e.g.
// "/ip4/0.0.0.0/tcp/0"), wraps it with gossipsub, and wires it to st.
func New(ctx context.Context, st *state.State, listenAddr string, identity p2pcrypto.PrivKey) (*Network, error) {
	opts := []libp2p.Option{libp2p.ListenAddrStrings(listenAddr)}
	if identity != nil {
		opts = append(opts, libp2p.Identity(identity))
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("network: create host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("network: create gossipsub: %w", err)
	}

	n := &Network{host: h, ps: ps, state: st, banned: make(map[peer.ID]bool)}
	h.SetStreamHandler(syncProtocolID, n.handleSyncStream)
	h.SetStreamHandler(identifyProtocolID, n.handleIdentifyStream)
	h.Network().Notify(&p2pnetwork.NotifyBundle{ConnectedF: n.onConnected})
	return n, nil
}

// HostID returns this node's peer ID.
func (n *Network) HostID() peer.ID { return n.host.ID() }

// Start joins the gossip topics, begins the mDNS discovery service, and
// starts the 15-second periodic sync task. It returns once setup succeeds;
// the background goroutines it launches run until ctx is cancelled.
func (n *Network) Start(ctx context.Context) error {
	blockTopic, err := n.ps.Join(topicBlock)
	if err != nil {
		return err
	}
	txTopic, err := n.ps.Join(topicTransaction)
	if err != nil {
		return err
	}
	n.blockTopic = blockTopic
	n.txTopic = txTopic

	blockSub, err := blockTopic.Subscribe()
	if err != nil {
		return err
	}
	txSub, err := txTopic.Subscribe()
	if err != nil {
		return err
	}

	go n.gossipLoop(ctx, blockSub, n.handleBlockMessage)
	go n.gossipLoop(ctx, txSub, n.handleTransactionMessage)
	go n.syncLoop(ctx)

	if err := mdns.NewMdnsService(n.host, discoveryTag, n).Start(); err != nil {
		return fmt.Errorf("network: start mDNS discovery: %w", err)
	}

	Log.Infof("network: listening as %s on %v", n.host.ID(), n.host.Addrs())
	return nil
}

// Close shuts down the host.
func (n *Network) Close() error { return n.host.Close() }

// HandlePeerFound implements mdns.Notifee: connect to a locally discovered
// peer unless it is banned.
func (n *Network) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == n.host.ID() || n.isBanned(info.ID) {
		return
	}
	if err := n.host.Connect(context.Background(), info); err != nil {
		Log.Debugf("network: mDNS connect to %s failed: %v", info.ID, err)
	}
}

// AddPeer dials an explicitly configured peer given as a full multiaddr
// (including the /p2p/<id> component). Banned peers are never re-added this
// way.
func (n *Network) AddPeer(ctx context.Context, addr string) error {
	ma, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return fmt.Errorf("network: bad peer multiaddr %q: %w", addr, err)
	}
	info, err := peer.AddrInfoFromP2pAddr(ma)
	if err != nil {
		return fmt.Errorf("network: bad peer multiaddr %q: %w", addr, err)
	}
	if info.ID == n.host.ID() {
		return nil
	}
	if n.isBanned(info.ID) {
		return fmt.Errorf("network: peer %s is banned", info.ID)
	}
	if err := n.host.Connect(ctx, *info); err != nil {
		return fmt.Errorf("network: connect to %s: %w", info.ID, err)
	}
	return nil
}

// PublishBlock gossips a locally mined or validated block on the block
// topic.
func (n *Network) PublishBlock(ctx context.Context, b *block.Block) error {
	if n.blockTopic == nil {
		return fmt.Errorf("network: not started")
	}
	return n.blockTopic.Publish(ctx, b.Encode())
}

// PublishTransaction gossips a mempool-admitted transaction.
func (n *Network) PublishTransaction(ctx context.Context, tx *transaction.Transaction) error {
	if n.txTopic == nil {
		return fmt.Errorf("network: not started")
	}
	return n.txTopic.Publish(ctx, tx.Encode())
}

func (n *Network) gossipLoop(ctx context.Context, sub *pubsub.Subscription, handle func(peer.ID, []byte) error) {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			Log.Errorf("network: gossip read failed: %v", err)
			continue
		}
		if msg.ReceivedFrom == n.host.ID() {
			continue
		}
		if n.isBanned(msg.ReceivedFrom) {
			continue
		}
		if !n.state.IsSync() {
			// "While is_sync = false, incoming gossip is ignored."
			continue
		}
		if err := handle(msg.ReceivedFrom, msg.Data); err != nil {
			Log.Warnf("network: banning %s: %v", msg.ReceivedFrom, err)
			n.Ban(msg.ReceivedFrom)
		}
	}
}

func (n *Network) handleBlockMessage(from peer.ID, data []byte) error {
	b, err := block.Decode(data)
	if err != nil {
		return err
	}
	return n.state.PutBlock(b)
}

func (n *Network) handleTransactionMessage(from peer.ID, data []byte) error {
	tx, err := transaction.Decode(data)
	if err != nil {
		return err
	}
	err = n.state.PutTransactionMempool(tx)
	if err == state.ErrDuplicateMempoolTx {
		// A transaction this node already has is not a validation
		// failure; it is normal gossip overlap and not ban-worthy.
		return nil
	}
	return err
}

// isBanned reports whether pid is on the ban list.
func (n *Network) isBanned(pid peer.ID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.banned[pid]
}

// Ban disconnects pid and refuses any further gossip or sync traffic from
// it. Every validation failure on a peer-originated message or block is
// grounds to ban.
func (n *Network) Ban(pid peer.ID) {
	n.mu.Lock()
	n.banned[pid] = true
	n.mu.Unlock()
	if err := n.host.Network().ClosePeer(pid); err != nil {
		Log.Debugf("network: close on ban for %s: %v", pid, err)
	}
}

// onConnected runs the Identify sub-protocol's initiator side whenever the
// host notices a new connection: exchange "gem/<ver>" version strings and
// ban on mismatch.
func (n *Network) onConnected(_ p2pnetwork.Network, conn p2pnetwork.Conn) {
	go n.identifyPeer(conn.RemotePeer())
}

func (n *Network) identifyPeer(pid peer.ID) {
	if n.isBanned(pid) {
		return
	}
	s, err := n.host.NewStream(context.Background(), pid, identifyProtocolID)
	if err != nil {
		Log.Debugf("network: identify stream to %s failed: %v", pid, err)
		return
	}
	defer s.Close()

	w := wire.NewWriter(4 + len(ProtocolVersion))
	w.PutVarString(ProtocolVersion)
	if _, err := s.Write(w.Bytes()); err != nil {
		return
	}
	if err := s.CloseWrite(); err != nil {
		return
	}

	body, err := io.ReadAll(io.LimitReader(s, 256))
	if err != nil {
		return
	}
	theirVersion, err := wire.NewReader(body).VarString()
	if err != nil || theirVersion != ProtocolVersion {
		Log.Warnf("network: banning %s for protocol version %q", pid, theirVersion)
		n.Ban(pid)
	}
}

// handleIdentifyStream is the Identify sub-protocol's responder side: read
// the peer's version string, reply with our own, and ban on mismatch.
func (n *Network) handleIdentifyStream(s p2pnetwork.Stream) {
	defer s.Close()
	pid := s.Conn().RemotePeer()

	body, err := io.ReadAll(io.LimitReader(s, 256))
	if err != nil {
		return
	}
	theirVersion, err := wire.NewReader(body).VarString()
	if err != nil {
		return
	}

	w := wire.NewWriter(4 + len(ProtocolVersion))
	w.PutVarString(ProtocolVersion)
	if _, err := s.Write(w.Bytes()); err != nil {
		return
	}

	if theirVersion != ProtocolVersion {
		Log.Warnf("network: banning %s for protocol version %q", pid, theirVersion)
		n.Ban(pid)
	}
}

// handleSyncStream answers a "/sync/1" request: the request body is a
// serialized u64 (the requester's current tip height); the response is a
// serialized list of blocks, strictly ascending, starting at
// requester_height+1, bounded by maxTransmitSize bytes.
func (n *Network) handleSyncStream(s p2pnetwork.Stream) {
	defer s.Close()

	if n.isBanned(s.Conn().RemotePeer()) {
		return
	}

	reqBytes := make([]byte, 8)
	if _, err := io.ReadFull(s, reqBytes); err != nil {
		Log.Debugf("network: sync request read failed: %v", err)
		return
	}
	height, err := wire.NewReader(reqBytes).Uint64LE()
	if err != nil {
		Log.Debugf("network: sync request decode failed: %v", err)
		return
	}

	payload := n.buildSyncResponse(height)
	if _, err := s.Write(payload); err != nil {
		Log.Debugf("network: sync response write failed: %v", err)
	}
}

// buildSyncResponse accumulates blocks starting at height+1, checking the
// size bound after each append: the response may exceed maxTransmitSize by
// at most one block's serialized size, and the first block is always
// included even if it alone exceeds the limit.
func (n *Network) buildSyncResponse(requesterHeight uint64) []byte {
	var blocks [][]byte
	size := 8 // the u64 block count prefix
	for h := requesterHeight + 1; ; h++ {
		hdr, err := n.state.HeaderByHeight(h)
		if err != nil {
			break
		}
		txHashes, err := n.state.BlockTransactionHashes(hdr.Hash())
		if err != nil {
			break
		}
		txs := make([]*transaction.Transaction, 0, len(txHashes))
		for _, th := range txHashes {
			raw, err := n.state.TransactionRaw(th)
			if err != nil {
				break
			}
			tx, err := transaction.Decode(raw)
			if err != nil {
				break
			}
			txs = append(txs, tx)
		}
		raw := (&block.Block{Header: hdr, Transactions: txs}).Encode()
		blocks = append(blocks, raw)
		size += 8 + len(raw)
		if size > maxTransmitSize {
			break
		}
	}

	w := wire.NewWriter(size)
	w.PutUint64LE(uint64(len(blocks)))
	for _, raw := range blocks {
		w.PutVarBytes(raw)
	}
	return w.Bytes()
}

// syncLoop runs the periodic sync task: every syncInterval, pick a random
// connected peer, request blocks past the local tip, apply them in order,
// and update the Syncing/Live flag.
func (n *Network) syncLoop(ctx context.Context) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.syncOnce(ctx)
		}
	}
}

func (n *Network) syncOnce(ctx context.Context) {
	peers := n.connectedPeers()
	if len(peers) == 0 {
		return
	}
	target := peers[rand.Intn(len(peers))]

	blocks, err := n.requestSync(ctx, target)
	if err != nil {
		Log.Debugf("network: sync request to %s failed: %v", target, err)
		return
	}

	if len(blocks) == 0 {
		n.state.SetSync(true)
		return
	}

	n.state.SetSync(false)
	for _, b := range blocks {
		if err := n.state.PutBlock(b); err != nil {
			Log.Warnf("network: banning sync peer %s: %v", target, err)
			n.Ban(target)
			return
		}
	}
}

func (n *Network) requestSync(ctx context.Context, target peer.ID) ([]*block.Block, error) {
	s, err := n.host.NewStream(ctx, target, syncProtocolID)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	tip := n.state.Tip()
	w := wire.NewWriter(8)
	w.PutUint64LE(tip.Height)
	if _, err := s.Write(w.Bytes()); err != nil {
		return nil, err
	}
	if err := s.CloseWrite(); err != nil {
		return nil, err
	}

	// The responder may overshoot maxTransmitSize by one block, which is at
	// most wire.MaxVarDataSize bytes.
	body, err := io.ReadAll(io.LimitReader(s, maxTransmitSize+wire.MaxVarDataSize+64))
	if err != nil {
		return nil, err
	}

	r := wire.NewReader(body)
	count, err := r.Uint64LE()
	if err != nil {
		return nil, err
	}
	blocks := make([]*block.Block, 0, count)
	for i := uint64(0); i < count; i++ {
		raw, err := r.VarBytes()
		if err != nil {
			return nil, err
		}
		b, err := block.Decode(raw)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (n *Network) connectedPeers() []peer.ID {
	conns := n.host.Network().Peers()
	out := make([]peer.ID, 0, len(conns))
	for _, pid := range conns {
		if !n.isBanned(pid) {
			out = append(out, pid)
		}
	}
	return out
}

var _ mdns.Notifee = (*Network)(nil)
