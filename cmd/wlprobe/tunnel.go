// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wl-core/wlcore/internal/wlenv"
	"github.com/wl-core/wlcore/internal/wltunnel"
)

var tunnelListenAddr string

var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Relay a compositor connection's Wayland messages to a remote peer over TCP",
	Long: `tunnel accepts TCP connections on --listen and, for each one, dials the
local compositor socket (--display, or WAYLAND_DISPLAY resolved under
XDG_RUNTIME_DIR; WAYLAND_SOCKET is not consulted) and relays Wayland wire
traffic between the two. Each chunk one read takes from the unix socket is
framed with internal/wltunnel's Forwarder for the TCP leg, and each framed
chunk arriving over TCP is written to the unix socket unframed. Chunks need
not line up with Wayland message boundaries: the wire protocol's own
length-prefixed messages are reassembled by whichever peer reads them — the
same problem a tool like waypipe solves when it forwards a
Wayland session to a remote host. Ancillary fds (SCM_RIGHTS) do not cross
this tunnel; a client relying on shm buffers or keymaps passed as fds will
not work through it yet.`,
	RunE: runTunnel,
}

func init() {
	tunnelCmd.Flags().StringVar(&tunnelListenAddr, "listen", "127.0.0.1:0", "TCP address to accept relayed connections on")
}

func resolveDisplaySocketPath() (string, error) {
	if displayFlag != "" {
		return displayFlag, nil
	}
	env := wlenv.Read(wlenv.OS)
	name := env.WaylandDisplay
	if name == "" {
		name = "wayland-0"
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	if env.XDGRuntimeDir == "" {
		return "", fmt.Errorf("wlprobe: XDG_RUNTIME_DIR is unset and --display was not given")
	}
	return filepath.Join(env.XDGRuntimeDir, name), nil
}

func runTunnel(cmd *cobra.Command, args []string) error {
	target, err := resolveDisplaySocketPath()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", tunnelListenAddr)
	if err != nil {
		return err
	}
	defer ln.Close()

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(cmd.OutOrStdout(), "tunnel")
	fmt.Fprintf(cmd.OutOrStdout(), ": session %s relaying %s <-> %s\n", sessionID, ln.Addr(), target)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go serveTunnelConn(conn, target)
	}
}

// serveTunnelConn relays one TCP connection against a freshly dialed
// compositor socket, one Forwarder per direction since the TCP leg's read
// and write sides carry independent framing state.
func serveTunnelConn(tcp net.Conn, target string) {
	defer tcp.Close()

	uc, err := net.Dial("unix", target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wlprobe tunnel: dial %s: %v\n", target, err)
		return
	}
	defer uc.Close()

	done := make(chan struct{}, 2)
	go func() {
		relayFromTCP(uc, tcp)
		done <- struct{}{}
	}()
	go func() {
		relayToTCP(tcp, uc)
		done <- struct{}{}
	}()
	<-done
}

// relayFromTCP decodes wltunnel-framed messages arriving on the TCP leg and
// writes each one's payload to the compositor socket unframed: the unix
// side already carries the wire protocol's own length-prefixed messages, so
// wltunnel's own framing is only added for the TCP hop.
func relayFromTCP(dst, src net.Conn) {
	fwd := wltunnel.NewForwarder(dst, src, wltunnel.WithReadTCP(), wltunnel.WithWriteProtocol(wltunnel.SeqPacket), wltunnel.WithBlock())
	for {
		if _, err := fwd.ForwardOnce(); err != nil {
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "wlprobe tunnel: tcp->unix: %v\n", err)
			}
			return
		}
	}
}

// relayToTCP frames each chunk read from the compositor socket as one
// wltunnel message before writing it to the TCP leg, so the remote side can
// recover the boundary the unix socket already preserved.
func relayToTCP(dst, src net.Conn) {
	fwd := wltunnel.NewForwarder(dst, src, wltunnel.WithReadProtocol(wltunnel.SeqPacket), wltunnel.WithWriteTCP(), wltunnel.WithBlock())
	for {
		if _, err := fwd.ForwardOnce(); err != nil {
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "wlprobe tunnel: unix->tcp: %v\n", err)
			}
			return
		}
	}
}
