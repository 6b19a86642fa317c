package main

import (
	"os"

	"github.com/arthur-debert/packtest/internal/cli"
)

func main() {
	os.Exit(cli.Main())
}
