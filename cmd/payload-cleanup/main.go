// Command payload-cleanup repairs the payload store: a payload key and its
// revision counter are written as a pair, and a half-written pair (after a
// partial FLUSHDB, a failed restore, manual key deletion) leaves the watcher
// either blind or spinning. This tool scans for widowed keys and deletes them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	payloadPattern = "payload:*"
	revSuffix      = ":rev"
	scanCount      = 100
)

func main() {
	var (
		redisURL = flag.String("redis", os.Getenv("REDIS_URL"), "Redis URL (or set REDIS_URL env)")
		dryRun   = flag.Bool("dry-run", false, "Dry run mode (don't write to Redis)")
		verbose  = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *redisURL == "" {
		log.Fatal("Redis URL required (--redis or REDIS_URL env)")
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	opts, err := goredis.ParseURL(*redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	rdb := goredis.NewClient(opts)
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	slog.Info("Connected to Redis", "url", sanitizeURL(*redisURL))

	if err := cleanupWidowedKeys(ctx, rdb, *dryRun); err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}

	slog.Info("Cleanup complete")
}

func cleanupWidowedKeys(ctx context.Context, rdb *goredis.Client, dryRun bool) error {
	start := time.Now()
	var cursor uint64
	var scanned, deleted, intact int

	slog.Info("Starting cleanup", "dry_run", dryRun)

	for {
		keys, nextCursor, err := rdb.Scan(ctx, cursor, payloadPattern, scanCount).Result()
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		for _, key := range keys {
			scanned++

			// Each pair shows up twice in the scan; check it from the payload
			// side only.
			var payloadKey, revKey string
			if strings.HasSuffix(key, revSuffix) {
				payloadKey = strings.TrimSuffix(key, revSuffix)
				revKey = key
			} else {
				payloadKey = key
				revKey = key + revSuffix
			}

			existing, err := rdb.Exists(ctx, payloadKey, revKey).Result()
			if err != nil {
				return fmt.Errorf("exists check failed for %s: %w", key, err)
			}
			if existing == 2 {
				intact++
				continue
			}

			slog.Debug("Found widowed key", "key", key)
			if !dryRun {
				if err := rdb.Del(ctx, key).Err(); err != nil {
					return fmt.Errorf("delete failed for %s: %w", key, err)
				}
			}
			deleted++
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	duration := time.Since(start)
	slog.Info("Cleanup summary",
		"scanned", scanned,
		"intact", intact,
		"deleted", deleted,
		"duration_ms", duration.Milliseconds())

	return nil
}

func sanitizeURL(url string) string {
	// Hide password in Redis URL for logging
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) == 2 {
			credParts := strings.Split(parts[0], ":")
			if len(credParts) >= 2 {
				return credParts[0] + ":***@" + parts[1]
			}
		}
	}
	return url
}
