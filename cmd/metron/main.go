package main

import (
	"github.com/docpipe/metron/internal/cli"
)

func main() {
	cli.Execute()
}
