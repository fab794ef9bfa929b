package main

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/VoolFI71/fast-kv/internal/client"
)

// Бенчмарки ходят в уже запущенный сервер; без него они пропускаются.
func benchmarkServerAddr() string {
	if addr := os.Getenv("FASTKV_BENCH_ADDR"); addr != "" {
		return addr
	}
	return "localhost:8080"
}

func dialOrSkip(b *testing.B) *client.Client {
	b.Helper()
	c, err := client.Dial(benchmarkServerAddr(), 5*time.Second)
	if err != nil {
		b.Skipf("server not reachable at %s: %v", benchmarkServerAddr(), err)
	}
	return c
}

func BenchmarkSET(b *testing.B) {
	c := dialOrSkip(b)
	defer c.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i)); err != nil {
			b.Fatalf("SET: %v", err)
		}
	}
}

func BenchmarkGET(b *testing.B) {
	c := dialOrSkip(b)
	defer c.Close()

	for i := 0; i < 1000; i++ {
		c.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := c.Get(fmt.Sprintf("key%d", i%1000)); err != nil {
			b.Fatalf("GET: %v", err)
		}
	}
}

func BenchmarkINCRParallel(b *testing.B) {
	probe := dialOrSkip(b)
	probe.Close()

	b.RunParallel(func(pb *testing.PB) {
		c, err := client.Dial(benchmarkServerAddr(), 5*time.Second)
		if err != nil {
			b.Errorf("dial: %v", err)
			return
		}
		defer c.Close()

		for pb.Next() {
			if _, err := c.Incr("bench_counter"); err != nil {
				b.Errorf("INCR: %v", err)
				return
			}
		}
	})
}

func BenchmarkSETPipeline(b *testing.B) {
	c := dialOrSkip(b)
	defer c.Close()

	const batch = 100
	b.ResetTimer()
	for i := 0; i < b.N; i += batch {
		n := min(batch, b.N-i)
		for j := 0; j < n; j++ {
			c.Send(fmt.Sprintf("SET pkey%d pvalue%d", i+j, i+j))
		}
		if err := c.Flush(); err != nil {
			b.Fatalf("flush: %v", err)
		}
		if err := c.ReadReplies(n); err != nil {
			b.Fatalf("replies: %v", err)
		}
	}
}
