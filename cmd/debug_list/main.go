package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"blob-uploader/core/config"
	"blob-uploader/core/storage"

	"github.com/minio/minio-go/v7"
)

// debug_list prints the objects of an S3 compatible container.
//
//	debug_list <access-key> <secret-key> <container> [prefix]
func main() {
	if len(os.Args) < 4 {
		fmt.Printf("Usage: %s <access-key> <secret-key> <container> [prefix]\n", os.Args[0])
		os.Exit(1)
	}
	accessKey, secretKey, container := os.Args[1], os.Args[2], os.Args[3]
	prefix := ""
	if len(os.Args) > 4 {
		prefix = os.Args[4]
	}

	cfg, err := config.LoadConfig(".", nil)
	if err != nil {
		log.Fatal(err)
	}

	client, err := storage.NewClient(accessKey, secretKey, cfg.Storage)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, container)
	if err != nil {
		log.Fatal(err)
	}
	if !exists {
		fmt.Printf("Container %q does not exist\n", container)
		return
	}

	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}

	count := 0
	var total int64
	for obj := range client.ListObjects(ctx, container, opts) {
		if obj.Err != nil {
			log.Fatal(obj.Err)
		}
		count++
		total += obj.Size
		fmt.Printf("%-60s %10d  %s  %s\n", obj.Key, obj.Size, obj.LastModified.Format("2006-01-02 15:04:05"), strings.Trim(obj.ETag, `"`))
	}

	fmt.Printf("\nTotal: %d objects, %d bytes\n", count, total)
}
