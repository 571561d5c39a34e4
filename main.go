package main

import (
	"errors"
	"log"
	"os"

	"github.com/thiagokokada/gitstat/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		if errors.Is(err, cmd.ErrNoContent) {
			os.Exit(1)
		}
		log.Fatalf("gitstat: %v", err)
	}
}
