// Package common contains shared constants, sentinel errors and small
// helpers used across lanferry client components.
package common

import "time"

const (
	// DefaultRequestTimeout bounds ordinary coordinator calls.
	DefaultRequestTimeout = 12 * time.Second

	// TransferCreateTimeout bounds bulk transfer-create calls, which may
	// carry hundreds of items.
	TransferCreateTimeout = 60 * time.Second

	// AgentRequestTimeout bounds calls to per-device agents on the LAN.
	AgentRequestTimeout = 15 * time.Second

	// ProbeTimeout bounds a single coordinator discovery probe.
	ProbeTimeout = 1200 * time.Millisecond
)

const (
	// ChunkSize is the fixed upload chunk size.
	ChunkSize = 1 << 20

	// MaxItemsPerTransfer is the server-side ceiling on items in one
	// transfer-create call; larger selections are split into batches.
	MaxItemsPerTransfer = 200
)

const (
	// JobCleanupSuccess and JobCleanupFailure are the grace delays before a
	// terminal upload job is removed from state. Failed jobs stay visible
	// longer so the message can be read.
	JobCleanupSuccess = 12 * time.Second
	JobCleanupFailure = 20 * time.Second
)

const (
	KeepaliveInterval = 20 * time.Second

	BackoffBase   = 500 * time.Millisecond
	BackoffCap    = 12 * time.Second
	BackoffJitter = 300 * time.Millisecond

	// EscalateAfter is the number of consecutive failed reconnects after
	// which the socket stops reopening and runs full recovery instead.
	EscalateAfter = 4

	PollForeground   = 10 * time.Second
	PollBackground   = 60 * time.Second
	PollFailureLimit = 3

	DiscoveryCacheTTL = 15 * time.Second
	DiscoveryCap      = 16
	RecoveryMinGap    = 10 * time.Second
)

// PlaceholderSHA256 is sent for every item at transfer-create time. Content
// hashing is deferred to the receiving agent.
const PlaceholderSHA256 = "0000000000000000000000000000000000000000000000000000000000000000"
