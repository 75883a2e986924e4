// Command cachesim replays a memory access trace through a two-level cache
// hierarchy and reports hit, miss and write-back statistics.
package main

import "github.com/sarchlab/cachesim/cachesim/cmd"

func main() {
	cmd.Execute()
}
