package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/nikolasavic/nfslock/internal/doctor"
)

func cmdDoctor(args []string) int {
	fs := pflag.NewFlagSet("doctor", pflag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "output machine-readable JSON")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: nfslock doctor [--json] <path>")
		return ExitUsage
	}
	target := fs.Arg(0)

	results := doctor.Run(target)
	overall := doctor.Overall(results)

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(struct {
			Overall doctor.Status         `json:"overall"`
			Checks  []doctor.CheckResult  `json:"checks"`
		}{Overall: overall, Checks: results})
	} else {
		for _, r := range results {
			fmt.Printf("%-16s %-5s %s\n", r.Name, r.Status, r.Message)
		}
		fmt.Printf("overall: %s\n", overall)
	}

	if overall == doctor.StatusFail {
		return ExitError
	}
	return ExitOK
}
