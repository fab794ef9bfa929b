//go:build benchmark
// +build benchmark

package main

import (
	"flag"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VoolFI71/fast-kv/internal/client"
)

type BenchmarkResults struct {
	TotalOps     int64
	Duration     time.Duration
	OpsPerSecond float64
	AvgLatency   time.Duration
	MinLatency   time.Duration
	MaxLatency   time.Duration
	P50Latency   time.Duration
	P95Latency   time.Duration
	P99Latency   time.Duration
	Errors       int64
}

// recorder collects per-batch latencies from all client goroutines.
type recorder struct {
	mu        sync.Mutex
	latencies []int64
	ops       atomic.Int64
	errors    atomic.Int64
}

func (r *recorder) observe(latency time.Duration, ops int, err error) {
	r.mu.Lock()
	r.latencies = append(r.latencies, latency.Nanoseconds())
	r.mu.Unlock()
	if err != nil {
		r.errors.Add(int64(ops))
	} else {
		r.ops.Add(int64(ops))
	}
}

func (r *recorder) results(duration time.Duration) BenchmarkResults {
	res := BenchmarkResults{
		TotalOps:     r.ops.Load(),
		Errors:       r.errors.Load(),
		Duration:     duration,
		OpsPerSecond: float64(r.ops.Load()) / duration.Seconds(),
	}
	if len(r.latencies) == 0 {
		return res
	}

	sorted := make([]int64, len(r.latencies))
	copy(sorted, r.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total int64
	for _, l := range sorted {
		total += l
	}
	res.AvgLatency = time.Duration(total / int64(len(sorted)))
	res.MinLatency = time.Duration(sorted[0])
	res.MaxLatency = time.Duration(sorted[len(sorted)-1])
	res.P50Latency = time.Duration(sorted[len(sorted)*50/100])
	res.P95Latency = time.Duration(sorted[len(sorted)*95/100])
	res.P99Latency = time.Duration(sorted[len(sorted)*99/100])
	return res
}

// runBenchmark runs numOps lines split across numClients connections, sending
// batch lines per flush. batch=1 measures plain request/response latency.
func runBenchmark(addr, name string, numOps, numClients, batch int, line func(idx int) string) BenchmarkResults {
	fmt.Printf("\n=== %s (batch=%d) ===\n", name, batch)
	fmt.Printf("Операций: %d, Клиентов: %d\n", numOps, numClients)

	opsPerClient := max(numOps/numClients, 1)
	rec := &recorder{latencies: make([]int64, 0, numOps/batch+1)}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()

			c, err := client.Dial(addr, 10*time.Second)
			if err != nil {
				fmt.Printf("Ошибка подключения клиента %d: %v\n", clientID, err)
				rec.errors.Add(int64(opsPerClient))
				return
			}
			defer c.Close()

			idx := clientID * opsPerClient
			for remaining := opsPerClient; remaining > 0; {
				n := min(batch, remaining)
				batchStart := time.Now()
				for j := 0; j < n; j++ {
					c.Send(line(idx + j))
				}
				err := c.Flush()
				if err == nil {
					err = c.ReadReplies(n)
				}
				rec.observe(time.Since(batchStart), n, err)
				idx += n
				remaining -= n
			}
		}(i)
	}
	wg.Wait()

	return rec.results(time.Since(start))
}

func printResults(results BenchmarkResults) {
	fmt.Printf("Результаты:\n")
	fmt.Printf("  ✓ Всего операций: %d\n", results.TotalOps)
	fmt.Printf("  ✗ Ошибок: %d\n", results.Errors)
	fmt.Printf("  ⏱  Время выполнения: %v\n", results.Duration)
	fmt.Printf("  🚀 Пропускная способность: %.2f ops/sec (%.2f K ops/sec)\n",
		results.OpsPerSecond, results.OpsPerSecond/1000)
	fmt.Printf("\n  Латентность:\n")
	fmt.Printf("    Средняя (avg):  %10v\n", results.AvgLatency)
	fmt.Printf("    Медиана (p50):   %10v\n", results.P50Latency)
	fmt.Printf("    95-й перцентиль: %10v\n", results.P95Latency)
	fmt.Printf("    99-й перцентиль: %10v\n", results.P99Latency)
	fmt.Printf("    Минимальная:     %10v\n", results.MinLatency)
	fmt.Printf("    Максимальная:   %10v\n", results.MaxLatency)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	ops := flag.Int("ops", 200000, "operations per scenario")
	clients := flag.Int("clients", 10, "concurrent connections")
	batch := flag.Int("batch", 100, "pipeline batch size")
	flag.Parse()

	fmt.Println("=== fast-kv Benchmark ===")
	fmt.Printf("Убедитесь, что сервер запущен на %s\n", *addr)

	setLine := func(idx int) string { return fmt.Sprintf("SET bench_key_%d bench_value_%d", idx, idx) }
	getLine := func(idx int) string { return fmt.Sprintf("GET bench_key_%d", idx%10000) }
	incrLine := func(int) string { return "INCR bench_counter" }
	mixedLine := func(idx int) string {
		if idx%2 == 0 {
			return setLine(idx)
		}
		return getLine(idx)
	}

	printResults(runBenchmark(*addr, "SET", *ops, 1, 1, setLine))
	printResults(runBenchmark(*addr, "SET", *ops, *clients, 1, setLine))
	printResults(runBenchmark(*addr, "GET", *ops, *clients, 1, getLine))
	printResults(runBenchmark(*addr, "INCR (shared key)", *ops, *clients, 1, incrLine))
	printResults(runBenchmark(*addr, "SET Pipeline", *ops, *clients, *batch, setLine))
	printResults(runBenchmark(*addr, "GET Pipeline", *ops, *clients, *batch, getLine))
	printResults(runBenchmark(*addr, "Смешанная нагрузка (50% SET, 50% GET)", *ops, *clients, 1, mixedLine))

	fmt.Println("\n=== Benchmark завершен ===")
}
