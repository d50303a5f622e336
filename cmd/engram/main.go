package main

import "github.com/felixgeelhaar/engram/cmd/engram/cli"

func main() {
	cli.Execute()
}
