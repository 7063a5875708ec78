package main

import (
	"os"

	pageragcmder "github.com/papercomputeco/pagerag/cmd/pagerag"
)

func main() {
	cmd := pageragcmder.NewPageragCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
