// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command wlprobe is a debug/inspection CLI for a Wayland compositor
// exposed through wlcore: it lists advertised globals, drives a roundtrip,
// and can tunnel a connection's byte stream to a remote peer over TCP via
// internal/wltunnel.
package main

func main() {
	Execute()
}
