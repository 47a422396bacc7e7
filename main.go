// Package main provides the entry point for apexsim.
// apexsim is a cycle-accurate simulator of the APEX out-of-order core.
//
// For the full CLI, use: go run ./cmd/apexsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("apexsim - APEX out-of-order core simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: apexsim [options] <program.asm>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config       Path to timing configuration JSON file")
	fmt.Println("  -issue-width  Instructions issued per cycle (default 3)")
	fmt.Println("  -cycles N     Simulate N cycles and print statistics")
	fmt.Println("  -run          Simulate until HALT and print statistics")
	fmt.Println("  -trace        Log every pipeline event")
	fmt.Println("  -v            Log verbosity")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/apexsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/apexsim' instead.")
	}
}
