// Command marketbot runs the item-listing Telegram bot and offers a couple
// of commands for checking the listing backend by hand.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
