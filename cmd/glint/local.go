package main

import (
	"fmt"

	"github.com/cuemby/glint/pkg/collection"
	"github.com/cuemby/glint/pkg/kv"
	"github.com/spf13/cobra"
)

// openLocalManager opens the data directory bound to cmd's --data-dir flag
// directly, rebuilding every collection's in-memory indexes, for the
// convenience subcommands (collection/document/search) to operate against
// a single node's data without a running "serve" process. There is no
// HTTP or RPC surface to proxy administrative commands through (spec.md's
// transport layer is explicitly out of scope), so these subcommands are a
// single-process tool in the same spirit as a database's own CLI talking
// directly to its data files.
func openLocalManager(cmd *cobra.Command) (*collection.Manager, kv.Store, error) {
	store, err := kv.NewBoltStore(dataDir(cmd))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	manager := collection.NewManager(store)
	if err := manager.LoadAll(); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("load collections: %w", err)
	}
	return manager, store, nil
}
