package main

import "github.com/chazu/stepbom/pkg/cli"

func main() {
	cli.Execute()
}
