// Command dealengine runs the travel-deal intelligence service: the
// streaming pipeline, the on-demand trip planner and intent parser,
// the watch/hot-deal monitors, and the real-time session fan-out
// layer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "dealengine",
		Short: "Real-time travel-deal intelligence service",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
