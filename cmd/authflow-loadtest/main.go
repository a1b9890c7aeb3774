package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	authflow "github.com/viktorspaces/authflow"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		forms       = flag.Int("forms", 100000, "number of parked forms to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (resume + submit)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "afs", "step store key prefix")
	)
	flag.Parse()

	if *forms <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "forms, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var cleanup func()
	var client *redis.Client
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := authflow.Config{}
	cfg.Flow.MinPasswordLength = 8
	cfg.Flow.PrefillResetEmail = true
	cfg.StepStore.RedisPrefix = *prefix
	cfg.StepStore.StepTTL = 24 * time.Hour
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	flows, err := authflow.New().
		WithConfig(cfg).
		WithCapability(acceptAllCapability{}).
		WithRedis(client).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "flows build failed: %v\n", err)
		os.Exit(1)
	}
	defer flows.Close()

	// Seed: park every form mid-flow at the reset-code step so both phases
	// have real records to hit.
	formIDs := make([]string, *forms)
	fmt.Printf("seeding %d parked forms...\n", *forms)
	startSeed := time.Now()
	for i := 0; i < *forms; i++ {
		c := flows.NewSignIn()
		c.ForgotPassword(ctx)
		if err := c.Submit(ctx, authflow.Form{Email: fmt.Sprintf("user-%d@load.test", i)}); err != nil {
			fmt.Fprintf(os.Stderr, "seed submit failed: %v\n", err)
			os.Exit(1)
		}
		formIDs[i] = c.FormID()
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resumeStats := runResumePhase(ctx, flows, formIDs, *ops, *concurrency)
	submitStats := runSubmitPhase(ctx, flows, formIDs, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("resume", resumeStats)
	printStats("submit", submitStats)
}

// runResumePhase hammers the read path: restore a random parked form from
// Redis without advancing it.
func runResumePhase(ctx context.Context, flows *authflow.Flows, formIDs []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(formIDs))
				t0 := time.Now()
				_, err := flows.ResumeSignIn(ctx, formIDs[idx])
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

// runSubmitPhase hammers the write path: resume a parked form and advance
// it one step, which re-persists the new position. A reset that runs to
// completion clears its record; the worker then seeds a replacement form in
// the same slot, so the working set stays constant. Each worker owns a
// shard of the slots, so slots are never contended.
func runSubmitPhase(ctx context.Context, flows *authflow.Flows, formIDs []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				// Sharded slot choice: each worker stays inside its own
				// block of slots.
				shard := len(formIDs) / concurrency
				if shard == 0 {
					shard = 1
				}
				idx := (worker*shard + r.Intn(shard)) % len(formIDs)

				t0 := time.Now()
				err := advanceOrReseed(ctx, flows, formIDs, idx, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}

				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func advanceOrReseed(ctx context.Context, flows *authflow.Flows, formIDs []string, idx, op int) error {
	c, err := flows.ResumeSignIn(ctx, formIDs[idx])
	if err != nil {
		return reseedForm(ctx, flows, formIDs, idx)
	}

	switch c.Step().(type) {
	case authflow.StepResetCode:
		err = c.Submit(ctx, authflow.Form{Code: fmt.Sprintf("%06d", op%1000000)})
	case authflow.StepNewPassword:
		err = c.Submit(ctx, authflow.Form{NewPassword: "fresh-password-1"})
		if err == nil && c.Completed() {
			// Record cleared on completion; refill the slot.
			return reseedForm(ctx, flows, formIDs, idx)
		}
	default:
		return reseedForm(ctx, flows, formIDs, idx)
	}
	return err
}

func reseedForm(ctx context.Context, flows *authflow.Flows, formIDs []string, idx int) error {
	c := flows.NewSignIn()
	c.ForgotPassword(ctx)
	if err := c.Submit(ctx, authflow.Form{Email: fmt.Sprintf("reseed-%d@load.test", idx)}); err != nil {
		return err
	}
	formIDs[idx] = c.FormID()
	return nil
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

// acceptAllCapability approves every submission instantly so the load lands
// on the step store, not on an auth backend.
type acceptAllCapability struct{}

func (acceptAllCapability) SignIn(context.Context, string, authflow.Submission) error {
	return nil
}

func (acceptAllCapability) SignOut(context.Context) error { return nil }

func (acceptAllCapability) CurrentUser(context.Context) (*authflow.UserRecord, error) {
	return nil, authflow.ErrNoUser
}
