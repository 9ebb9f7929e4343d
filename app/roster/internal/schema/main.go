package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/tepuyroraima/roster/app/roster"
)

func main() {
	schema := roster.SeedSchema()

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal schema: %v", err)
	}

	outputPath := "seed.schema.json"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}

	if err := os.WriteFile(outputPath, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		log.Fatalf("failed to write seed schema: %v", err)
	}

	fmt.Printf("Seed schema generated at %s\n", outputPath)
}
