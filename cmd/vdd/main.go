package main

import (
	"os"

	"github.com/grovetools/vdd/cli"
	"github.com/grovetools/vdd/cmd"
)

func main() {
	os.Exit(cli.Execute(cmd.NewRootCmd()))
}
