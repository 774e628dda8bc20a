// Package config defines the typed configuration structs every component
// in this module takes as an explicit dependency. Parsing config files
// into these structs is explicitly out of scope (spec.md §1); this
// package only carries the shapes and their defaults, grounded on the
// teacher's snow.Context-as-dependency-bag idiom (see e.g.
// topological.go's Initialize(ctx *snow.Context, params Parameters, ...)).
package config

import "time"

// AvalancheParams are the defaults from spec.md §4.4.
type AvalancheParams struct {
	K            int
	Alpha        int
	Beta         int
	RoundDelay   time.Duration
	RoundCap     int
	RoundTimeout time.Duration
	WeightedSampling bool
}

// DefaultAvalancheParams returns the spec's defaults: k=20, alpha=16, beta=15.
func DefaultAvalancheParams() AvalancheParams {
	return AvalancheParams{
		K:            20,
		Alpha:        16,
		Beta:         15,
		RoundDelay:   50 * time.Millisecond,
		RoundCap:     200,
		RoundTimeout: 250 * time.Millisecond,
		WeightedSampling: true,
	}
}

// TSDCParams configure the slot-scheduled block producer (spec.md §4.5).
type TSDCParams struct {
	BlockIntervalSeconds int64
	GenesisTime          time.Time
	TimestampToleranceSeconds int64
	CatchUpSlotLag       int64
	CatchUpLeaderStall   time.Duration
	MaxBlockBodyBytes    int
	WeightedLeaderElection bool
}

// DefaultTSDCParams returns the spec's defaults: 600s slots, 2-minute skew tolerance.
func DefaultTSDCParams(genesis time.Time) TSDCParams {
	return TSDCParams{
		BlockIntervalSeconds:      600,
		GenesisTime:               genesis,
		TimestampToleranceSeconds: 120,
		CatchUpSlotLag:            3,
		CatchUpLeaderStall:        30 * time.Second,
		MaxBlockBodyBytes:         2 << 20, // 2 MiB
		WeightedLeaderElection:    true,
	}
}

// MempoolParams bound the transaction pool (spec.md §4.2).
type MempoolParams struct {
	MaxCount     int
	MaxBytes     int
	RejectedTTL  time.Duration
	FinalizedHorizon time.Duration
}

// DefaultMempoolParams returns sane defaults; the 1-hour rejected TTL is
// the spec's explicit default.
func DefaultMempoolParams() MempoolParams {
	return MempoolParams{
		MaxCount:         50_000,
		MaxBytes:         64 << 20,
		RejectedTTL:      time.Hour,
		FinalizedHorizon: 10 * time.Minute,
	}
}

// MasternodeParams configure the registry's active-set predicate (spec.md §4.3).
type MasternodeParams struct {
	HeartbeatValidity time.Duration
	TierWeights       map[string]int
}

// DefaultMasternodeParams returns the spec's tier weights {Free:1,
// Bronze:1, Silver:10, Gold:100} and 30-minute heartbeat validity.
func DefaultMasternodeParams() MasternodeParams {
	return MasternodeParams{
		HeartbeatValidity: 30 * time.Minute,
		TierWeights: map[string]int{
			"Free":   1,
			"Bronze": 1,
			"Silver": 10,
			"Gold":   100,
		},
	}
}

// PeerLivenessParams configure §4.8's liveness/reconnect table, one
// instance each for Regular and Whitelisted peers.
type PeerLivenessParams struct {
	PingInterval        time.Duration
	PongTimeout         time.Duration
	MaxMissedPongs      int
	InitialReconnect    time.Duration
	MaxReconnectBackoff time.Duration
	MaxReconnectFailures int
}

// DefaultRegularLiveness returns the Regular column of §4.8's table.
func DefaultRegularLiveness() PeerLivenessParams {
	return PeerLivenessParams{
		PingInterval:         30 * time.Second,
		PongTimeout:          90 * time.Second,
		MaxMissedPongs:       3,
		InitialReconnect:     5 * time.Second,
		MaxReconnectBackoff:  300 * time.Second,
		MaxReconnectFailures: 10,
	}
}

// DefaultWhitelistedLiveness returns the Whitelisted column of §4.8's table.
func DefaultWhitelistedLiveness() PeerLivenessParams {
	return PeerLivenessParams{
		PingInterval:         30 * time.Second,
		PongTimeout:          180 * time.Second,
		MaxMissedPongs:       6,
		InitialReconnect:     2 * time.Second,
		MaxReconnectBackoff:  60 * time.Second,
		MaxReconnectFailures: 50,
	}
}

// NetworkParams configures connection caps, rate limiting and gossip.
type NetworkParams struct {
	TotalSlots        int
	WhitelistedSlots  int
	RateLimitPerSec   int
	DuplicateFilterFPRate float64
}

// DefaultNetworkParams returns the spec's defaults (C_total=125, C_wl=50, 100 msgs/s).
func DefaultNetworkParams() NetworkParams {
	return NetworkParams{
		TotalSlots:            125,
		WhitelistedSlots:      50,
		RateLimitPerSec:       100,
		DuplicateFilterFPRate: 0.001,
	}
}

// ForkResolverParams bound the circuit breaker and reorg depth of spec.md §4.7.
type ForkResolverParams struct {
	MaxAttempts    int
	MaxWallClock   time.Duration
	MaxReorgDepth  int64
}

// DefaultForkResolverParams returns the spec's defaults (50 attempts / 15m / 100 blocks).
func DefaultForkResolverParams() ForkResolverParams {
	return ForkResolverParams{
		MaxAttempts:   50,
		MaxWallClock:  15 * time.Minute,
		MaxReorgDepth: 100,
	}
}

// ChainStoreParams configures flush cadence (spec.md §4.6).
type ChainStoreParams struct {
	FlushEveryNBlocks int
}

// DefaultChainStoreParams returns the spec's default N=10.
func DefaultChainStoreParams() ChainStoreParams {
	return ChainStoreParams{FlushEveryNBlocks: 10}
}

// Config aggregates every component's parameters plus the two ambient
// fields explicitly left to the operator: the chain ID (dropped connections
// on mismatch, spec.md §6) and the reward split, which spec.md §9 leaves
// unfixed by design (two conflicting splits were observed in source
// documentation).
type Config struct {
	ChainID      uint32
	NodeID       string
	DataDir      string
	Avalanche    AvalancheParams
	TSDC         TSDCParams
	Mempool      MempoolParams
	Masternode   MasternodeParams
	RegularLiveness     PeerLivenessParams
	WhitelistLiveness   PeerLivenessParams
	Network      NetworkParams
	ForkResolver ForkResolverParams
	ChainStore   ChainStoreParams
	// RewardSplit is intentionally left to the operator; see DESIGN.md
	// Open Question #2.
	RewardSplit map[string]float64
}
