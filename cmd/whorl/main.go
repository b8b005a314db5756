package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	// An interrupted serve run exits quietly; cobra's own printing is off
	// via SilenceErrors.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "whorl:", err)
	}
	os.Exit(1)
}
