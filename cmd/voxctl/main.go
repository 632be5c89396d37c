package main

import (
	"fmt"
	"os"

	voxcmd "github.com/voxterm/voxctl/pkg/voxctl/cmd"
)

func main() {
	root := voxcmd.NewRootCommand(voxcmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
