package main

import (
	"os"

	"portal/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
