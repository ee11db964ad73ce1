// Package storage wires the object-storage client with a retry loop at
// startup, since MinIO usually comes up later than the app in compose.
package storage

import (
	"log"
	"time"

	"github.com/wb-go/wbf/config"

	"photomark/internal/storage/miniostorage"
)

func NewImgStorage(cfg *config.Config, delay time.Duration) *miniostorage.MinioImageStorage {
	for {
		log.Println("Connecting to IMG-storage...")
		client, err := miniostorage.NewMinioClient(cfg)
		if err != nil {
			log.Printf("Failed to init connection to IMG-storage: %v\nNext retry in %v...", err, delay)
			time.Sleep(delay)
			continue
		}
		log.Println("Successfully connected IMG-storage!")
		return client
	}
}
