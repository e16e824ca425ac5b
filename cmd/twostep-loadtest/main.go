// Command twostep-loadtest measures issue and verify throughput
// against a real or embedded Redis.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	twostep "github.com/twostep-io/twostep"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type challengeState struct {
	userID      string
	correlation string
	code        string
}

func main() {
	var (
		users       = flag.Int("users", 50000, "number of users to drive, one challenge each")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "users and concurrency must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	sink := newCaptureSink()

	cfg := twostep.DefaultConfig()
	cfg.Token.Secret = []byte("loadtest-secret")
	cfg.Audit.Enabled = false

	engine, err := twostep.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(noUserProvider{}).
		WithPasswordHasher(noHasher{}).
		WithDelivery(sink).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]challengeState, *users)
	for i := range states {
		states[i].userID = fmt.Sprintf("user-%d", i)
	}

	issueStats := runIssuePhase(ctx, engine, sink, states, *concurrency)
	verifyStats := runVerifyPhase(ctx, engine, states, *concurrency)

	fmt.Println("---- results ----")
	printStats("issue", issueStats)
	printStats("verify", verifyStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("counters: issued=%d verify_ok=%d verify_fail=%d\n",
		snap.Counters[twostep.MetricChallengeIssued],
		snap.Counters[twostep.MetricVerifySuccess],
		snap.Counters[twostep.MetricVerifyFailure],
	)
}

func runIssuePhase(ctx context.Context, engine *twostep.Engine, sink *captureSink, states []challengeState, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, len(states))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(states) {
					return
				}
				state := &states[i]
				address := state.userID + "@load.test"

				t0 := time.Now()
				correlation, err := engine.IssueChallenge(ctx, state.userID, address)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					state.correlation = correlation
					state.code = sink.take(address)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runVerifyPhase(ctx context.Context, engine *twostep.Engine, states []challengeState, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, len(states))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(states) {
					return
				}
				state := &states[i]
				if state.correlation == "" || state.code == "" {
					atomic.AddInt64(&failures, 1)
					continue
				}

				t0 := time.Now()
				_, err := engine.Verify(ctx, state.correlation, state.code)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// captureSink records the last code sent per address.
type captureSink struct {
	mu    sync.Mutex
	codes map[string]string
}

func newCaptureSink() *captureSink {
	return &captureSink{codes: make(map[string]string)}
}

func (s *captureSink) Send(_ context.Context, address, _ string, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[address] = code
	return nil
}

func (s *captureSink) take(address string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.codes[address]
	delete(s.codes, address)
	return code
}

// The load driver calls IssueChallenge and Verify directly, so the
// provider and hasher are never exercised.

type noUserProvider struct{}

func (noUserProvider) GetUserByEmail(context.Context, string) (twostep.UserRecord, error) {
	return twostep.UserRecord{}, fmt.Errorf("not implemented")
}

type noHasher struct{}

func (noHasher) Verify(string, string) (bool, error) {
	return false, fmt.Errorf("not implemented")
}
