// Command session-soak drives random login, logout, update and restart
// sequences against each storage backend and checks that memory and the
// durable store never disagree.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jaswdr/faker"
	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/storage"
)

var backends = []string{"memory", "file", "sqlite", "redis"}

func main() {
	var (
		backend     = flag.String("backend", "all", "memory, file, sqlite, redis or all")
		sequences   = flag.Int("sequences", 200, "independent sessions per backend")
		ops         = flag.Int("ops", 200, "operations per session")
		concurrency = flag.Int("concurrency", 16, "sessions driven in parallel")
		seed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		dir         = flag.String("dir", "", "directory for file and sqlite stores; a temp dir when empty")
	)
	flag.Parse()

	if *sequences <= 0 || *ops <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "sequences, ops, and concurrency must be > 0")
		os.Exit(2)
	}

	selected := backends
	if *backend != "all" {
		selected = []string{*backend}
	}

	workDir := *dir
	if workDir == "" {
		tmp, err := os.MkdirTemp("", "session-soak-*")
		if err != nil {
			fmt.Fprintf(os.Stderr, "temp dir: %v\n", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmp)
		workDir = tmp
	}

	env := &soakEnv{dir: workDir}
	defer env.close()

	fmt.Printf("seed=%d sequences=%d ops=%d concurrency=%d\n", *seed, *sequences, *ops, *concurrency)

	failed := false
	for _, name := range selected {
		open, err := env.opener(name, *redisAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			os.Exit(1)
		}
		stats := runBackend(context.Background(), open, *sequences, *ops, *concurrency, *seed)
		printStats(name, stats)
		if stats.violations > 0 {
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// opener returns a store for sequence i plus its close function.
type opener func(ctx context.Context, i int) (storage.Store, func(), error)

type soakEnv struct {
	dir     string
	cleanup []func()
}

func (e *soakEnv) close() {
	for i := len(e.cleanup) - 1; i >= 0; i-- {
		e.cleanup[i]()
	}
}

func (e *soakEnv) opener(name, redisAddr string) (opener, error) {
	switch name {
	case "memory":
		return func(context.Context, int) (storage.Store, func(), error) {
			return storage.NewMemory(), func() {}, nil
		}, nil
	case "file":
		return func(_ context.Context, i int) (storage.Store, func(), error) {
			return storage.NewFile(filepath.Join(e.dir, "file", fmt.Sprintf("s-%d.json", i))), func() {}, nil
		}, nil
	case "sqlite":
		return func(ctx context.Context, i int) (storage.Store, func(), error) {
			db, err := storage.OpenSQLite(ctx, filepath.Join(e.dir, "sqlite", fmt.Sprintf("s-%d.db", i)))
			if err != nil {
				return nil, nil, err
			}
			return db, func() { _ = db.Close() }, nil
		}, nil
	case "redis":
		client, err := e.redisClient(redisAddr)
		if err != nil {
			return nil, err
		}
		return func(_ context.Context, i int) (storage.Store, func(), error) {
			return storage.NewRedis(client, fmt.Sprintf("soak:%d", i)), func() {}, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

func (e *soakEnv) redisClient(addr string) (redis.UniversalClient, error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start miniredis: %w", err)
		}
		e.cleanup = append(e.cleanup, mr.Close)
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	e.cleanup = append(e.cleanup, func() { _ = client.Close() })
	return client, nil
}

type soakStats struct {
	total      time.Duration
	ops        int
	restarts   int64
	violations int64
	p50        time.Duration
	p95        time.Duration
	p99        time.Duration
}

func runBackend(ctx context.Context, open opener, sequences, ops, concurrency int, seed int64) soakStats {
	var (
		wg         sync.WaitGroup
		cursor     int64
		restarts   int64
		violations int64
		mu         sync.Mutex
		latencies  = make([]time.Duration, 0, sequences*ops)
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= sequences {
					return
				}
				r := runSequence(ctx, open, i, ops, seed+int64(i)*7919)
				atomic.AddInt64(&restarts, r.restarts)
				atomic.AddInt64(&violations, int64(len(r.violations)))
				for _, v := range r.violations {
					fmt.Fprintf(os.Stderr, "sequence %d: %s\n", i, v)
				}
				mu.Lock()
				latencies = append(latencies, r.latencies...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	return soakStats{
		total:      time.Since(start),
		ops:        len(latencies),
		restarts:   restarts,
		violations: violations,
		p50:        percentile(latencies, 50),
		p95:        percentile(latencies, 95),
		p99:        percentile(latencies, 99),
	}
}

type sequenceResult struct {
	latencies  []time.Duration
	restarts   int64
	violations []string
}

func runSequence(ctx context.Context, open opener, i, ops int, seed int64) sequenceResult {
	var res sequenceResult
	store, closeStore, err := open(ctx, i)
	if err != nil {
		res.violations = append(res.violations, "open store: "+err.Error())
		return res
	}
	defer closeStore()

	f := faker.NewWithSeed(rand.NewSource(seed))
	m, err := start(ctx, store)
	if err != nil {
		res.violations = append(res.violations, err.Error())
		return res
	}

	for op := 0; op < ops; op++ {
		before, _ := m.User()
		t0 := time.Now()
		var opErr error
		switch f.IntBetween(0, 9) {
		case 0, 1, 2:
			opErr = m.Login(ctx, goSession.Credentials{
				Access:  f.UUID().V4(),
				Refresh: f.UUID().V4(),
			}, randomUser(f))
		case 3, 4:
			opErr = m.Logout(ctx)
		case 5, 6, 7, 8:
			first := f.Person().FirstName()
			bio := f.Lorem().Sentence(4)
			opErr = m.UpdateUser(ctx, goSession.UserPatch{FirstName: &first, Bio: &bio})
		case 9:
			m.Close()
			res.restarts++
			next, err := start(ctx, store)
			if err != nil {
				res.violations = append(res.violations, err.Error())
				return res
			}
			m = next
			after, _ := m.User()
			if before != after {
				res.violations = append(res.violations, fmt.Sprintf("op %d: restart restored %+v, want %+v", op, after, before))
			}
		}
		res.latencies = append(res.latencies, time.Since(t0))

		if opErr != nil {
			res.violations = append(res.violations, fmt.Sprintf("op %d: %v", op, opErr))
		}
		if v := checkInvariants(ctx, m, store); v != "" {
			res.violations = append(res.violations, fmt.Sprintf("op %d: %s", op, v))
		}
	}
	m.Close()
	return res
}

func start(ctx context.Context, store storage.Store) (*goSession.Manager, error) {
	m, err := goSession.New().WithStore(store).Build()
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	if err := m.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return m, nil
}

func randomUser(f faker.Faker) goSession.User {
	roles := goSession.AllRoles.Roles()
	return goSession.User{
		ID:            f.UUID().V4(),
		Email:         fmt.Sprintf("soak%d@example.com", f.IntBetween(1, 1_000_000)),
		FirstName:     f.Person().FirstName(),
		LastName:      f.Person().LastName(),
		Role:          roles[f.IntBetween(0, len(roles)-1)],
		EmailVerified: f.Bool(),
	}
}

// checkInvariants compares the manager's view with what is persisted.
func checkInvariants(ctx context.Context, m *goSession.Manager, store storage.Store) string {
	keys := goSession.DefaultConfig().Storage
	view := m.View()
	if view.IsAuthenticated() != (view.User != nil) {
		return "authenticated flag disagrees with user presence"
	}

	_, hasUser, err := store.Get(ctx, keys.UserKey)
	if err != nil {
		return "read user key: " + err.Error()
	}
	access, hasAccess, err := store.Get(ctx, keys.AccessKey)
	if err != nil {
		return "read access key: " + err.Error()
	}
	_, hasRefresh, err := store.Get(ctx, keys.RefreshKey)
	if err != nil {
		return "read refresh key: " + err.Error()
	}

	if view.IsAuthenticated() {
		if !hasUser || !hasAccess || !hasRefresh {
			return "authenticated session is not fully persisted"
		}
		token, _ := m.AccessToken(ctx)
		if token != access {
			return "persisted access token differs from memory"
		}
		return ""
	}
	if hasUser || hasAccess || hasRefresh {
		return "logged-out session left keys behind"
	}
	return ""
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s soakStats) {
	fmt.Printf("%s: ops=%d restarts=%d violations=%d total=%s p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.restarts,
		s.violations,
		s.total.Round(time.Millisecond),
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
