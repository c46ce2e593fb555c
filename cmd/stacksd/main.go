package main

import "github.com/openlibops/stacks/internal/cli"

func main() {
	cli.Execute()
}
