package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/timecoin/timecoin/config"
	"github.com/timecoin/timecoin/ids"
	"github.com/timecoin/timecoin/utils/logging"
	"github.com/timecoin/timecoin/wire"
)

var (
	ErrClosed    = errors.New("network: closed")
	ErrSlotsFull = errors.New("network: no free connection slots")
	ErrNotConnected = errors.New("network: peer not connected")
)

// Handler receives events and inbound messages from the network.
type Handler interface {
	Connected(id ids.ShortID)
	Disconnected(id ids.ShortID)
	HandleMessage(from ids.ShortID, typ wire.Type, payload []byte)
}

// Network owns every live peer connection and enforces spec.md §4.8's
// slot reservation, liveness, rate limiting and deduplicated broadcast.
type Network struct {
	chainID uint32
	self    ids.ShortID

	listener Listener
	dialer   Dialer

	regularLiveness     config.PeerLivenessParams
	whitelistedLiveness config.PeerLivenessParams
	netParams           config.NetworkParams

	handler Handler
	log     *logging.Logger

	clock func() time.Time

	mu          sync.Mutex
	peers       map[ids.ShortID]*peer
	whitelisted map[ids.ShortID]bool // addresses trusted up front
	backoffs    map[ids.ShortID]*reconnectBackoff
	closed      bool
	closedOnce  sync.Once

	limiter *rateLimiter
	dedup   *dedupFilter
}

// New constructs a Network.
func New(
	chainID uint32,
	self ids.ShortID,
	listener Listener,
	dialer Dialer,
	regularLiveness, whitelistedLiveness config.PeerLivenessParams,
	netParams config.NetworkParams,
	handler Handler,
	log *logging.Logger,
	now time.Time,
) (*Network, error) {
	dedup, err := newDedupFilter(100_000, netParams.DuplicateFilterFPRate, 10*time.Minute, now)
	if err != nil {
		return nil, err
	}
	return &Network{
		chainID:             chainID,
		self:                self,
		listener:            listener,
		dialer:              dialer,
		regularLiveness:     regularLiveness,
		whitelistedLiveness: whitelistedLiveness,
		netParams:           netParams,
		handler:             handler,
		log:                 log,
		clock:               time.Now,
		peers:               make(map[ids.ShortID]*peer),
		whitelisted:         make(map[ids.ShortID]bool),
		backoffs:            make(map[ids.ShortID]*reconnectBackoff),
		limiter:             newRateLimiter(netParams.RateLimitPerSec),
		dedup:               dedup,
	}, nil
}

// TrustAddress marks id as Whitelisted for future connections, either
// configured explicitly or discovered from a signed trust source
// (spec.md §4.8).
func (n *Network) TrustAddress(id ids.ShortID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.whitelisted[id] = true
}

// livenessFor returns the liveness table column for id (Whitelisted if
// trusted, Regular otherwise).
func (n *Network) livenessFor(id ids.ShortID) (config.PeerLivenessParams, Kind) {
	n.mu.Lock()
	wl := n.whitelisted[id]
	n.mu.Unlock()
	if wl {
		return n.whitelistedLiveness, Whitelisted
	}
	return n.regularLiveness, Regular
}

// slotAvailable enforces spec.md §4.8's slot rule: a whitelisted inbound
// is accepted whenever the total is below TotalSlots regardless of the
// regular cap; a regular connection is additionally capped at
// TotalSlots-WhitelistedSlots.
func (n *Network) slotAvailable(kind Kind) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.peers) >= n.netParams.TotalSlots {
		return false
	}
	if kind == Whitelisted {
		return true
	}

	regularCap := n.netParams.TotalSlots - n.netParams.WhitelistedSlots
	regularCount := 0
	for _, p := range n.peers {
		if p.kind == Regular {
			regularCount++
		}
	}
	return regularCount < regularCap
}

// Dial opens an outbound connection to addr/id.
func (n *Network) Dial(id ids.ShortID, addr string) error {
	liveness, kind := n.livenessFor(id)
	if !n.slotAvailable(kind) {
		return ErrSlotsFull
	}

	conn, err := n.dialer.Dial(addr)
	if err != nil {
		return err
	}
	n.addPeer(id, addr, kind, conn, liveness)
	return nil
}

// Accept runs the inbound accept loop until the listener closes or
// Close is called.
func (n *Network) Accept() error {
	for {
		conn, err := n.listener.Accept()
		if err != nil {
			return err
		}
		go n.acceptOne(conn)
	}
}

// acceptOne reads the inbound Handshake and admits the peer subject to
// slot availability. The handshake's ChainID is not compared with the
// local chain ID, so a peer announcing a different chain is not dropped
// here.
func (n *Network) acceptOne(conn net.Conn) {
	buf := make([]byte, 4096)
	nRead, err := conn.Read(buf)
	if err != nil {
		conn.Close()
		return
	}
	typ, payload, err := wire.DecodeType(buf[:nRead])
	if err != nil || typ != wire.TypeHandshake {
		conn.Close()
		return
	}
	hs, err := wire.DecodeHandshake(payload)
	if err != nil {
		conn.Close()
		return
	}

	liveness, kind := n.livenessFor(hs.NodeID)
	if !n.slotAvailable(kind) {
		conn.Close()
		return
	}
	n.addPeer(hs.NodeID, conn.RemoteAddr().String(), kind, conn, liveness)
}

func (n *Network) addPeer(id ids.ShortID, addr string, kind Kind, conn net.Conn, liveness config.PeerLivenessParams) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		conn.Close()
		return
	}
	if existing, ok := n.peers[id]; ok {
		existing.conn.Close()
	}
	p := newPeer(id, addr, kind, conn, liveness, n.clock())
	n.peers[id] = p
	if bo, ok := n.backoffs[id]; ok {
		bo.reset()
	}
	n.mu.Unlock()

	n.handler.Connected(id)
	go n.readLoop(p)
}

func (n *Network) readLoop(p *peer) {
	buf := make([]byte, 64*1024)
	for {
		nRead, err := p.conn.Read(buf)
		if err != nil {
			n.dropPeer(p.id)
			return
		}
		typ, payload, err := wire.DecodeType(buf[:nRead])
		if err != nil {
			continue
		}
		if !n.limiter.Allow(p.id, p.kind) {
			continue
		}

		switch typ {
		case wire.TypePing:
			ping, err := wire.DecodePing(payload)
			if err == nil {
				pong := &wire.Pong{Nonce: ping.Nonce}
				_, _ = p.conn.Write(wire.Encode(wire.TypePong, pong.Bytes()))
			}
		case wire.TypePong:
			p.touch(n.clock())
		default:
			n.handler.HandleMessage(p.id, typ, payload)
		}
	}
}

func (n *Network) dropPeer(id ids.ShortID) {
	n.mu.Lock()
	p, ok := n.peers[id]
	if ok {
		delete(n.peers, id)
	}
	n.mu.Unlock()
	if ok {
		p.conn.Close()
		n.handler.Disconnected(id)
	}
}

// Heartbeat runs one liveness tick over every connected peer: peers that
// haven't ponged within their pong timeout are penalized via
// peer.onPongTimeout; peers that cross their disconnect threshold are
// dropped. Callers run this on a PingInterval-spaced loop.
func (n *Network) Heartbeat() {
	now := n.clock()
	n.mu.Lock()
	toPing := make([]*peer, 0, len(n.peers))
	for _, p := range n.peers {
		toPing = append(toPing, p)
	}
	n.mu.Unlock()

	for _, p := range toPing {
		p.mu.Lock()
		overdue := now.Sub(p.lastSeen) > p.liveness.PongTimeout
		p.mu.Unlock()

		if overdue && p.onPongTimeout() == livenessDisconnect {
			n.dropPeer(p.id)
			continue
		}
		ping := &wire.Ping{Nonce: uint64(now.UnixNano()), Timestamp: now.Unix()}
		_, _ = p.conn.Write(wire.Encode(wire.TypePing, ping.Bytes()))
	}
}

// Broadcast serializes payload exactly once and writes it to every
// connected peer, skipping payloads the dedup filter has already seen
// (spec.md §4.8).
func (n *Network) Broadcast(typ wire.Type, payload []byte) int {
	now := n.clock()
	if n.dedup.SeenOrAdd(payload, now) {
		return 0
	}
	framed := wire.Encode(typ, payload)

	n.mu.Lock()
	targets := make([]*peer, 0, len(n.peers))
	for _, p := range n.peers {
		targets = append(targets, p)
	}
	n.mu.Unlock()

	sent := 0
	for _, p := range targets {
		if _, err := p.conn.Write(framed); err == nil {
			sent++
		}
	}
	return sent
}

// Send writes a message to exactly one connected peer.
func (n *Network) Send(id ids.ShortID, typ wire.Type, payload []byte) error {
	n.mu.Lock()
	p, ok := n.peers[id]
	n.mu.Unlock()
	if !ok {
		return ErrNotConnected
	}
	_, err := p.conn.Write(wire.Encode(typ, payload))
	return err
}

// PeerCount returns the number of currently connected peers.
func (n *Network) PeerCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.peers)
}

// Close shuts every connection and stops the accept loop.
func (n *Network) Close() error {
	n.closedOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		for id, p := range n.peers {
			p.conn.Close()
			delete(n.peers, id)
		}
		n.mu.Unlock()
		_ = n.listener.Close()
	})
	return nil
}
