/*
Package client is a thin, synchronous convenience wrapper over pkg/rpc's
wire-level stub, for callers that want a single request/response call
rather than the synchronizer's batched journal pipeline, such as ad-hoc
diagnostic tooling. None of the binaries in this repository import it.

	c, err := client.New("127.0.0.1:7700")
	if err != nil {
		log.Fatal(err.Error())
	}
	defer c.Close()

	entities, err := c.List(ctx, model.RootID)

pkg/syncclient is the other consumer of pkg/rpc; it does not use this
package, since its write path needs the batched ApplyJournal call and
local-cache bookkeeping this wrapper deliberately leaves out.
*/
package client
