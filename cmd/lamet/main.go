package main

import (
	"fmt"
	"os"

	"github.com/ncobase/lamet/cmd/lamet/commands"

	_ "github.com/ncobase/lamet/data/all"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
