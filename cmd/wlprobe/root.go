// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	displayFlag string
	debugFlag   bool

	// sessionID is printed in the header line of the globals and tunnel
	// commands, so the output of concurrent runs against the same
	// compositor can be told apart. WAYLAND_DEBUG trace lines do not carry it.
	sessionID = uuid.New()
)

var rootCmd = &cobra.Command{
	Use:   "wlprobe",
	Short: "Inspect and tunnel a Wayland compositor connection",
	Long: `wlprobe is a debug tool built on wlcore's client package. It connects
to a compositor the same way any client would (WAYLAND_SOCKET, then
WAYLAND_DISPLAY/XDG_RUNTIME_DIR, unless --display overrides both), lists
the advertised globals, and can relay a connection's wire traffic to a
remote peer over TCP.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&displayFlag, "display", "", "compositor socket path (overrides WAYLAND_DISPLAY)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "trace every sent/received message (overrides WAYLAND_DEBUG)")
	rootCmd.AddCommand(globalsCmd)
	rootCmd.AddCommand(roundtripCmd)
	rootCmd.AddCommand(tunnelCmd)
}
