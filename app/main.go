package main

import (
	"fmt"
	"os"

	"github.com/akurin/identity-server-demo/app/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
