package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/vdd/config"
	"github.com/grovetools/vdd/schema"
)

func main() {
	outputDir := "schema"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}

	outputs := []struct {
		name     string
		generate func() ([]byte, error)
	}{
		{"vdd.schema.json", config.GenerateSchema},
		{"topology.schema.json", schema.Generate},
	}

	for _, out := range outputs {
		data, err := out.generate()
		if err != nil {
			log.Fatalf("Error generating %s: %v", out.name, err)
		}
		outputPath := filepath.Join(outputDir, out.name)
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			log.Fatalf("Error writing schema file: %v", err)
		}
		log.Printf("Successfully generated schema at %s", outputPath)
	}
}
