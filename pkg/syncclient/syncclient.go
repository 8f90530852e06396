// Package syncclient implements the client synchronizer: the component
// the kernel-shim adapter calls into for every POSIX-shaped operation.
// It composes the entity store, blob store, write buffer and operation
// applier into list/read/write/flush plus the journal replay pipeline
// that reconciles the local cache against the server.
package syncclient

import (
	"sync"
	"sync/atomic"

	"github.com/nimbusfs/nimbusfs/pkg/blobstore"
	"github.com/nimbusfs/nimbusfs/pkg/entitystore"
	"github.com/nimbusfs/nimbusfs/pkg/idgen"
	"github.com/nimbusfs/nimbusfs/pkg/rpc"
	"github.com/nimbusfs/nimbusfs/pkg/writebuffer"
)

// Client is the client-side synchronizer: one per mount point.
//
// State is protected by a writer-preferring shared lock (mu): readers
// (getattr, query) take RLock, every mutating operation takes Lock for
// its duration. The open-file table has its own internal locking and is
// safe to use without mu held.
type Client struct {
	mu sync.RWMutex

	Entities *entitystore.Store
	Blobs    blobstore.Store
	RPC      *rpc.Client

	OpenFiles *writebuffer.OpenFileHandler
	tempIDs   *idgen.TempIDGenerator

	offline         atomic.Bool
	shouldFlushFlag atomic.Bool
}

// New builds a synchronizer over an already-open client-mode entity
// store, blob store and RPC stub. tempIDs must be the same generator
// whose Next method was passed as entities' newID callback at
// entitystore.Open time -- the journal-flush path resets it, so it has
// to be the one counter entities actually draws ids from. offline is
// the client's starting connectivity state.
func New(entities *entitystore.Store, blobs blobstore.Store, rpcClient *rpc.Client, tempIDs *idgen.TempIDGenerator, offline bool) *Client {
	c := &Client{
		Entities:  entities,
		Blobs:     blobs,
		RPC:       rpcClient,
		OpenFiles: writebuffer.NewOpenFileHandler(),
		tempIDs:   tempIDs,
	}
	c.offline.Store(offline)
	return c
}

// Offline reports the client's current connectivity flag.
func (c *Client) Offline() bool {
	return c.offline.Load()
}

// SetOffline sets the connectivity flag. Transitioning false -> true is
// a plain flag flip; transitioning true -> false sets the "should flush
// journal" flag, which the next operation (or an explicit FlushJournal
// call) will act on -- this is the bus-driven trigger of the journal
// flush algorithm.
func (c *Client) SetOffline(offline bool) {
	was := c.offline.Swap(offline)
	if was && !offline {
		c.shouldFlushFlag.Store(true)
	}
}

// ShouldFlushJournal reports whether the next operation should run the
// journal-flush algorithm before proceeding.
func (c *Client) ShouldFlushJournal() bool {
	return c.shouldFlushFlag.Load()
}
