//go:build ignore
// +build ignore

// Generates markdown and man pages for every command:
//
//	go run ./cmd/hashmark/doc_gen.go
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/mithrel/hashmark/internal/cli"
)

func main() {
	root := cli.NewRootCmd()
	root.DisableAutoGenTag = true

	for _, dir := range []string{"./docs/markdown", "./docs/man"} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal(err)
		}
	}
	if err := doc.GenMarkdownTree(root, "./docs/markdown"); err != nil {
		log.Fatal(err)
	}

	header := &doc.GenManHeader{
		Title:   "HASHMARK",
		Section: "1",
	}
	if err := doc.GenManTree(root, header, "./docs/man"); err != nil {
		log.Fatal(err)
	}
}
