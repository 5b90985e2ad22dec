// Package main is the entry point for the inkpress blogging backend.
package main

import "inkpress/cmd/inkpress/commands"

func main() {
	commands.Execute()
}
