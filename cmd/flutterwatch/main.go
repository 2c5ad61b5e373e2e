package main

import (
	"os"

	"flutterwatch/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
