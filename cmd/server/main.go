package main

import (
	"fmt"
	"os"

	"nomina/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "nomina: %v\n", err)
		os.Exit(1)
	}
}
