// Command seed populates the Qdrant collection with candidate records for
// local testing, grounded on the reference adapter's out-of-band ingestion
// path (tencent_vectordb_adapter.py has no equivalent CLI; profiles are
// expected to arrive via an external batch job). Reads newline-delimited
// JSON profiles from stdin, each `{"user_id": "...", "bio": "...", ...}`.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"go-llama/internal/config"
	"go-llama/internal/embedding"
	"go-llama/internal/vectorstore"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	store, err := vectorstore.New(cfg.VectorDBEndpoint, cfg.VectorDBCollection, cfg.VectorDBKey)
	if err != nil {
		log.Fatalf("[Seed] Failed to connect to vector store: %v", err)
	}

	dense := embedding.NewDenseEncoder(cfg.EmbeddingAPIURL, cfg.EmbeddingModelName)
	sparse := embedding.NewSparseEncoder(cfg.SparseAPIURL, cfg.SparseModelName)

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	count := 0
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var profile map[string]interface{}
		if err := json.Unmarshal([]byte(line), &profile); err != nil {
			log.Printf("[Seed] skipping malformed line: %v", err)
			continue
		}

		userID, _ := profile["user_id"].(string)
		if userID == "" {
			log.Printf("[Seed] skipping record with no user_id")
			continue
		}

		text := profileText(profile)
		denseVec, err := dense.EncodeDense(ctx, text)
		if err != nil {
			log.Printf("[Seed] skipping user_id=%s: dense encode failed: %v", userID, err)
			continue
		}
		sparseVec := sparse.EncodeSparse(ctx, text)

		if err := store.Upsert(ctx, userID, denseVec, sparseVec, profile); err != nil {
			log.Printf("[Seed] skipping user_id=%s: upsert failed: %v", userID, err)
			continue
		}
		count++
	}

	if err := scanner.Err(); err != nil {
		log.Fatalf("[Seed] read error: %v", err)
	}
	log.Printf("[Seed] seeded %d records", count)
}

// profileText concatenates the profile's bio and its skills into a single
// description; other fields (goals, demands, ...) are not included.
func profileText(profile map[string]interface{}) string {
	bio, _ := profile["bio"].(string)
	text := bio
	if skills, ok := profile["skills"].([]interface{}); ok {
		for _, s := range skills {
			if str, ok := s.(string); ok {
				text += " " + str
			}
		}
	}
	return text
}
