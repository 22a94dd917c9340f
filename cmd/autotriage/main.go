// Package main implements the autotriage CLI for recording complaints and
// running analyses against the local feedback database.
package main

import (
	"context"
	"os"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
