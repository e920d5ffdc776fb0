package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/nikolasavic/nfslock/internal/identity"
)

// cmdCreate implements spec.md's excluded "atomically create-and-open a
// regular file" convenience operation (SPEC_FULL.md §4.K): a trivial,
// standalone application of the create-unique-and-link primitive, with no
// sweeper, refresher, or retry loop attached — it proves the primitive
// works in isolation from the rest of the locking protocol.
func cmdCreate(args []string) int {
	fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: nfslock create <path>")
		return ExitUsage
	}
	target := fs.Arg(0)

	if _, err := identity.CreateUnique(target); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}
	fmt.Printf("created %q\n", target)
	return ExitOK
}
