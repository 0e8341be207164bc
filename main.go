package main

import (
	"errors"
	"os"

	"github.com/keyforge/keyforge/cmd"
	kferrors "github.com/keyforge/keyforge/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var usage *kferrors.UsageError
		if errors.As(err, &usage) {
			os.Exit(usage.ExitCode)
		}
		os.Exit(1)
	}
}
