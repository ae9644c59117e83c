package main

import (
	"os"

	"github.com/dmitrijs2005/hourbank/internal/admincli"
)

func main() {
	if err := admincli.New().Command().Execute(); err != nil {
		os.Exit(1)
	}
}
