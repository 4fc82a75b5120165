package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"blob-uploader/core/config"
	"blob-uploader/core/storage"
)

// debug_stat reports what a provider currently says about one blob and
// saves the answer to debug_stat.json.
//
//	debug_stat <provider> <identity> <credential> <container> <name>
func main() {
	if len(os.Args) < 6 {
		fmt.Printf("Usage: %s <provider> <identity> <credential> <container> <name>\n", os.Args[0])
		os.Exit(1)
	}
	provider, identity, credential := os.Args[1], os.Args[2], os.Args[3]
	container, name := os.Args[4], os.Args[5]

	cfg, err := config.LoadConfig(".", nil)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	sc, err := storage.Open(ctx, provider, identity, credential, cfg.Storage)
	if err != nil {
		log.Fatal(err)
	}
	defer sc.Close()

	fmt.Println("=== Existence ===")
	exists, err := sc.BlobExists(ctx, container, name)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s/%s exists: %v\n", container, name, exists)

	output := map[string]any{
		"provider":  sc.Provider(),
		"container": container,
		"name":      name,
		"exists":    exists,
	}

	if exists {
		fmt.Println("\n=== Metadata ===")
		md, err := sc.BlobMetadata(ctx, container, name)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(md)
		output["metadata"] = md
		output["available"] = md.ContentLength != nil
	}

	if err := writeReport("debug_stat.json", output); err != nil {
		log.Fatal(err)
	}

	fmt.Println("\nDebug complete. Check debug_stat.json for details.")
}

func writeReport(path string, output map[string]any) error {
	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
