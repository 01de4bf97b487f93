// go-shard runs a based rollup node that executes application transactions posted to a DA layer.
package main

import (
	"fmt"
	"os"

	"github.com/shardnet/go-shard/cmd"
	"github.com/shardnet/go-shard/node"
)

var (
	version string
	commit  string
	branch  string
)

func main() { // run the app
	cmd.Version = version
	cmd.Commit = commit
	cmd.Branch = branch
	if err := node.GetCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
