package main

import "github.com/funvibe/kestrel/pkg/cli"

func main() {
	cli.Run()
}
