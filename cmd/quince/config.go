package main

import "github.com/quince-project/quince"

// newConfig returns the defaults shared by the client and server
// subcommands; each then overrides the handful of fields it needs.
func newConfig() *quic.Config {
	return quic.NewConfig()
}
