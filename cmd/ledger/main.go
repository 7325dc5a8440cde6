package main

import "github.com/marshallshelly/pebble-ledger/cmd/ledger/commands"

func main() {
	commands.Execute()
}
