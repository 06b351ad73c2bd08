// Package main provides the airlock CLI: statistical disclosure control
// for aggregated count tables before they leave a trusted research
// environment.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}
