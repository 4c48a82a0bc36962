package main

import (
	"os"

	"gwbasic/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
