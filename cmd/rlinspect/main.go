// cmd/rlinspect lists the Redis-backed rate limit buckets and can clear
// them, e.g. to unblock a client IP during an incident.
//
//	rlinspect [-addr host:port] [-pattern rl:203.0.113.*] [-del]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/infrastructure/redis"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rlinspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		addr    = fs.String("addr", envOr("REDIS_ADDR", "127.0.0.1:6379"), "redis address host:port")
		pass    = fs.String("pass", os.Getenv("REDIS_PASSWORD"), "redis password")
		db      = fs.Int("db", 0, "redis db")
		pattern = fs.String("pattern", "rl:*", "scan pattern")
		doDel   = fs.Bool("del", false, "delete matched buckets")
		count   = fs.Int64("count", 200, "SCAN COUNT hint")
		timeout = fs.Duration("timeout", 5*time.Second, "overall timeout")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	c := redis.New(*addr, *pass, *db)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		fmt.Fprintf(stderr, "redis ping failed: %v\n", err)
		return 1
	}

	total := 0
	var matched []string
	err := c.ScanBuckets(ctx, *pattern, *count, func(b redis.Bucket) error {
		total++
		matched = append(matched, b.Key)
		fmt.Fprintf(stdout, "%d) %s count=%d ttl=%s\n", total, b.Key, b.Count, b.TTL)
		return nil
	})
	if err != nil {
		fmt.Fprintf(stderr, "scan failed: %v\n", err)
		return 1
	}
	if total == 0 {
		fmt.Fprintln(stdout, "No buckets matched.")
		return 0
	}

	if *doDel {
		n, err := c.DeleteKeys(ctx, matched...)
		if err != nil {
			fmt.Fprintf(stderr, "delete failed: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "deleted %d bucket(s)\n", n)
	}
	return 0
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
