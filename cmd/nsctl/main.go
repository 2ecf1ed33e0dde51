package main

import (
	"github.com/mchmarny/nsctl/pkg/cli"
)

func main() {
	cli.Execute()
}
