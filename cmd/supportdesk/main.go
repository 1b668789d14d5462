// Command supportdesk turns unseen support-inbox emails into tickets and
// acknowledges each sender with their ticket number.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
