// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wl-core/wlcore/client"
	"github.com/wl-core/wlcore/proto"
)

var globalsCmd = &cobra.Command{
	Use:   "globals",
	Short: "List the globals a compositor advertises on its wl_registry",
	RunE:  runGlobals,
}

// registryEntry mirrors one wl_registry.global event, kept around long
// enough to print once the registry roundtrip settles.
type registryEntry struct {
	name      uint32
	iface     string
	version   uint32
	withdrawn bool
}

// registryData collects global/global_remove events for globalsCmd; it owns
// no wire state beyond the map itself, so it is safe to share across the
// single goroutine that drives wlprobe's roundtrip.
type registryData struct {
	mu      sync.Mutex
	entries map[uint32]*registryEntry
}

func newRegistryData() *registryData {
	return &registryData{entries: make(map[uint32]*registryEntry)}
}

func (r *registryData) Destroyed(client.ObjectID) {}

func (r *registryData) Event(d *client.Display, id client.ObjectID, msg proto.Message) (client.ObjectData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch msg.Opcode {
	case proto.OpRegistryEventGlobal:
		name := msg.Args[0].Uint
		r.entries[name] = &registryEntry{name: name, iface: msg.Args[1].Str, version: msg.Args[2].Uint}
	case proto.OpRegistryEventGlobalRemove:
		name := msg.Args[0].Uint
		if e, ok := r.entries[name]; ok {
			e.withdrawn = true
		}
	}
	return nil, nil
}

func (r *registryData) sorted() []*registryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*registryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func runGlobals(cmd *cobra.Command, args []string) error {
	d, err := connectProbe()
	if err != nil {
		return err
	}
	defer d.Close()

	reg := newRegistryData()
	if _, err := d.GetRegistry(reg); err != nil {
		return err
	}
	if _, err := d.Roundtrip(); err != nil {
		return err
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	faint := color.New(color.FgHiBlack)

	bold.Fprintf(cmd.OutOrStdout(), "globals (session %s)\n", sessionID)
	for _, e := range reg.sorted() {
		if e.withdrawn {
			faint.Fprintf(cmd.OutOrStdout(), "  [%d] %s v%d (withdrawn)\n", e.name, e.iface, e.version)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] ", e.name)
		green.Fprint(cmd.OutOrStdout(), e.iface)
		fmt.Fprintf(cmd.OutOrStdout(), " v%d\n", e.version)
	}
	return nil
}

func connectProbe() (*client.Display, error) {
	var opts []client.Option
	if debugFlag {
		opts = append(opts, client.WithDebug(true))
	}
	if displayFlag != "" {
		opts = append(opts, client.WithSocketPath(displayFlag))
	}
	return client.Connect(opts...)
}
