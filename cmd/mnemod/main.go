package main

import (
	"os"

	"github.com/objones25/mnemo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
