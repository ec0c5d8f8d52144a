package main

import (
	"log"

	"github.com/mithrel/hashmark/internal/cli"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("hashmark: ")
	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}
