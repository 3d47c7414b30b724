package main

import "thde.io/nationbuilder/internal/cli"

var version = "dev"

func main() {
	cli.Execute(version)
}
