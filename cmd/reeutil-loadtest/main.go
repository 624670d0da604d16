// reeutil-loadtest measures bearer token resolution and verification code
// round trips against a Redis-backed engine.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
	"github.com/MrBl4ck04/ReeUtil-sub000/internal/logging"
	"github.com/MrBl4ck04/ReeUtil-sub000/jwt"
	"github.com/MrBl4ck04/ReeUtil-sub000/store/memory"
)

const secret = "loadtest-secret-loadtest-secret!!"

// inbox keeps the latest code per address so workers can answer them.
type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *inbox) SendCode(_ context.Context, email, code string, _ reeutil.CodePurpose) error {
	b.mu.Lock()
	b.codes[email] = code
	b.mu.Unlock()
	return nil
}

func (b *inbox) code(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[email]
}

func main() {
	var (
		principals  int
		concurrency int
		ops         int
		redisAddr   string
	)
	flags := pflag.NewFlagSet("reeutil-loadtest", pflag.ExitOnError)
	flags.IntVar(&principals, "principals", 10000, "number of users to seed")
	flags.IntVar(&concurrency, "concurrency", 128, "number of concurrent workers")
	flags.IntVar(&ops, "ops", 100000, "operations per phase")
	flags.StringVar(&redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	_ = flags.Parse(os.Args[1:])

	if principals <= 0 || concurrency <= 0 || ops <= 0 {
		fmt.Fprintln(os.Stderr, "principals, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := redisAddr
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
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := memory.New()
	ids := make([]string, principals)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%d", i)
		_ = store.AddUser(reeutil.User{ID: ids[i], Email: emailFor(i), Role: "user", CreatedAt: time.Now()})
	}

	cfg := reeutil.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(secret)
	box := &inbox{codes: map[string]string{}}
	engine, err := reeutil.New().
		WithConfig(cfg).
		WithPrincipalStore(store).
		WithMailer(box).
		WithRedis(client).
		WithLogger(logging.Discard()).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	tokens, err := mintTokens(cfg, ids)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint tokens: %v\n", err)
		os.Exit(1)
	}

	authorize := runPhase(ops, concurrency, 7919, func(r *rand.Rand) error {
		_, err := engine.Authorize(ctx, tokens[r.Intn(len(tokens))])
		return err
	})
	codes := runPhase(ops, concurrency, 6151, func(r *rand.Rand) error {
		email := emailFor(r.Intn(principals))
		if err := engine.SendVerificationCode(ctx, email); err != nil {
			return err
		}
		// Another worker may have replaced the code in between.
		return engine.VerifyCode(ctx, email, box.code(email))
	})

	fmt.Println("---- results ----")
	printStats("authorize", authorize)
	printStats("verification", codes)
}

func emailFor(i int) string {
	return fmt.Sprintf("user%d@reeutil.test", i)
}

func mintTokens(cfg reeutil.Config, ids []string) ([]string, error) {
	m, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.JWT.TTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    cfg.JWT.PrivateKey,
		Issuer:        cfg.JWT.Issuer,
		Now:           time.Now,
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		if out[i], _, err = m.CreateToken(id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func runPhase(ops, concurrency int, seed int64, op func(*rand.Rand) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := op(r)
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
	return computeStats(time.Since(start), latencies, failures)
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
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
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
