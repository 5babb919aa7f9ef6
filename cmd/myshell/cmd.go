package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	code, err := rootCmd().execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(code)
}
