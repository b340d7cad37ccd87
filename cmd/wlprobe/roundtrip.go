// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip",
	Short: "Issue wl_display.sync and report how long the compositor took to answer",
	RunE:  runRoundtrip,
}

func runRoundtrip(cmd *cobra.Command, args []string) error {
	d, err := connectProbe()
	if err != nil {
		return err
	}
	defer d.Close()

	start := time.Now()
	n, err := d.Roundtrip()
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(cmd.OutOrStdout(), "roundtrip")
	fmt.Fprintf(cmd.OutOrStdout(), ": %d events dispatched in %s\n", n, elapsed)
	return nil
}
