package main

import (
	"fmt"
	"os"

	"todoReminder/internal/logger"
)

func main() {
	defer logger.Sync()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		logger.Sync()
		os.Exit(1)
	}
}
