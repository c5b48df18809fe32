package main

import "github.com/ogulcanaydogan/liteclient/internal/cli"

func main() {
	cli.Execute()
}
