package main

import (
	"fmt"
	"os"

	"github.com/danmuck/floww/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "flowwctl: %v\n", err)
		os.Exit(1)
	}
}
