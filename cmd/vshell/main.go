// Command vshell is the thin CLI demonstration of spec §6.4: it wires
// stdin/-c to a single core/session.Session and nothing else.
package main

import "github.com/mistvale/vshell/cmd"

func main() {
	cmd.Execute()
}
