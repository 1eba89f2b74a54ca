// Command indiechain runs an indiechain validator node and its tooling.
package main

import "fmt"

var (
	version = "dev"
	commit  = "none"
)

func main() {
	Execute(fmt.Sprintf("%s-%s", version, commit))
}
