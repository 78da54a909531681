// Command replay reads a recording written by cmd/sim and verifies round
// ordering, resource conservation and non-negative state.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"ekon-lab/internal/replay"
)

func main() {
	path := flag.String("file", "", "Recording to verify (required)")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		os.Exit(2)
	}

	r, err := replay.Open(*path)
	if err != nil {
		fatalf("open recording: %v", err)
	}
	frames, err := r.ReadAll()
	r.Close()
	if err != nil {
		fatalf("read recording: %v", err)
	}

	rep, verifyErr := replay.Verify(frames)
	if rep == nil {
		fatalf("verify: %v", verifyErr)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fatalf("encode report: %v", err)
		}
	} else {
		printReport(rep)
	}

	if verifyErr != nil {
		fmt.Fprintf(os.Stderr, "Verification failed: %v\n", verifyErr)
		os.Exit(1)
	}
}

func printReport(rep *replay.Report) {
	fmt.Printf("Frames: %d (rounds %d-%d)\n", rep.Frames, rep.FirstRound, rep.LastRound)
	fmt.Printf("Sub-actions: %d accepted, %d rejected; %d failed turns\n", rep.Accepted, rep.Rejected, rep.TurnFailures)

	resources := make([]string, 0, len(rep.Totals))
	for res := range rep.Totals {
		resources = append(resources, res)
	}
	sort.Strings(resources)
	fmt.Println("Resource totals:")
	for _, res := range resources {
		fmt.Printf("  %-16s %d\n", res, rep.Totals[res])
	}

	for _, d := range rep.Divergences {
		fmt.Printf("DIVERGENCE round %d %s: expected %d, got %d\n", d.Round, d.Resource, d.Expected, d.Actual)
	}
	for _, n := range rep.NegativeState {
		fmt.Printf("NEGATIVE %s\n", n)
	}
	if rep.OK() {
		fmt.Println("OK")
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
