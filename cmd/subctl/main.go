// Command subctl runs administrative subscription commands against the
// engine's database and gateway.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(connectApp).Execute(); err != nil {
		os.Exit(1)
	}
}
