// README: Smoke cases: environment, migration, auth, ride flow, and the accept race.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"campusride/internal/auth"
	"campusride/internal/types"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client

	riderToken   string
	captainToken string
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	signer := auth.NewVerifier(cfg.JWTSecret)
	rider, _ := signer.Sign(auth.Identity{Subject: "bench-rider", Role: auth.RoleRider})
	captain, _ := signer.Sign(auth.Identity{Subject: "bench-captain", Role: auth.RoleCaptain})
	return &Runner{
		cfg:          cfg,
		httpc:        &http.Client{Timeout: 10 * time.Second},
		riderToken:   rider,
		captainToken: captain,
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "FAIL", Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
					if !exists {
						return Result{Status: "FAIL", Note: "missing table: " + t}
					}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "API: health",
			Run: func(ctx context.Context, r *Runner) Result {
				start := time.Now()
				resp, err := r.httpc.Get(base + "/health")
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				_ = resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", resp.StatusCode)}
				}
				return Result{Status: "PASS", Latency: time.Since(start)}
			},
		},
		{
			Name: "API: metrics exposed",
			Run: func(ctx context.Context, r *Runner) Result {
				resp, err := r.httpc.Get(base + "/metrics")
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				body, _ := io.ReadAll(resp.Body)
				_ = resp.Body.Close()
				if !strings.Contains(string(body), "campusride_") {
					return Result{Status: "FAIL", Note: "no campusride metrics in output"}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Auth: missing token rejected",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.expect(ctx, http.MethodGet, base+"/api/rides/mine", "", nil, []int{401})
			},
		},
		{
			Name: "Auth: rider cannot use captain routes",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.expect(ctx, http.MethodGet, base+"/api/captain/rides", r.riderToken, nil, []int{403})
			},
		},
		{
			Name: "Ride: create missing fields -> 400",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.expect(ctx, http.MethodPost, base+"/api/rides", r.riderToken, map[string]any{}, []int{400})
			},
		},
		{
			Name: "Ride: invalid vehicle class -> 400",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.expect(ctx, http.MethodPost, base+"/api/rides", r.riderToken, map[string]any{
					"pickup": "Main Gate", "destination": "Library", "vehicle_class": "tractor",
				}, []int{400})
			},
		},
		{
			Name: "Ride: fare quote",
			Run: func(ctx context.Context, r *Runner) Result {
				// 502 is acceptable when the maps key is a stub.
				return r.expect(ctx, http.MethodGet,
					base+"/api/rides/fare?pickup=Main+Gate&destination=Library",
					r.riderToken, nil, []int{200, 502})
			},
		},
		{
			Name: "Ride: captain listing empty ok",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.expect(ctx, http.MethodGet, base+"/api/captain/rides", r.captainToken, nil, []int{200})
			},
		},
		{
			Name: "Schedule: invalid period -> 400",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.expect(ctx, http.MethodPost, base+"/api/rides/schedule", r.riderToken, map[string]any{
					"pickup": "Main Gate", "destination": "Library",
					"vehicle_class": "car", "period": "forever", "start_date": "2030-01-01",
				}, []int{400})
			},
		},
		{
			Name: "Concurrency: accept race yields one winner",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.acceptRace(ctx)
			},
		},
		{
			Name: "Perf: health under load",
			Run: func(ctx context.Context, r *Runner) Result {
				return r.loadCheck(ctx, base+"/health")
			},
		},
	}
}

// expect fires one request and checks the status code against the
// accepted set.
func (r *Runner) expect(ctx context.Context, method, url, token string, body map[string]any, okCodes []int) Result {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	_ = resp.Body.Close()
	for _, c := range okCodes {
		if resp.StatusCode == c {
			return Result{Status: "PASS", Latency: time.Since(start)}
		}
	}
	return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d want=%v", resp.StatusCode, okCodes)}
}

// acceptRace creates a pending ride straight in the database and has N
// captains race to accept it over HTTP. Exactly one 200 must come back.
func (r *Runner) acceptRace(ctx context.Context) Result {
	if r.db == nil {
		return Result{Status: "SKIP", Note: "db not configured"}
	}
	rideID := fmt.Sprintf("bench%d", time.Now().UnixNano())
	_, err := r.db.Exec(ctx, `
        INSERT INTO rides (id, rider_id, pickup, destination, distance_km, duration_min,
                           vehicle_class, fare, per_ride_fare, otp, status)
        VALUES ($1, 'bench-rider', 'Main Gate', 'Library', 3.2, 9, 'auto', 45, 45, '123456', 'pending')`,
		rideID,
	)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}

	signer := auth.NewVerifier(r.cfg.JWTSecret)
	var wg sync.WaitGroup
	wins := make(chan int, r.cfg.Concurrency)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			token, _ := signer.Sign(auth.Identity{
				Subject: types.ID(fmt.Sprintf("bench-captain-%d", n)), Role: auth.RoleCaptain,
			})
			res := r.expect(ctx, http.MethodPost,
				r.cfg.BaseURL+"/api/captain/rides/"+rideID+"/accept", token, map[string]any{}, []int{200})
			if res.Status == "PASS" {
				wins <- n
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		return Result{Status: "FAIL", Note: fmt.Sprintf("winners=%d", won)}
	}
	return Result{Status: "PASS"}
}

func (r *Runner) loadCheck(ctx context.Context, url string) Result {
	deadline := time.Now().Add(r.cfg.Duration)
	var total, failed int
	start := time.Now()
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			break
		}
		resp, err := r.httpc.Get(url)
		total++
		if err != nil || resp.StatusCode != http.StatusOK {
			failed++
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
	}
	if total == 0 || failed > total/10 {
		return Result{Status: "FAIL", Note: fmt.Sprintf("total=%d failed=%d", total, failed)}
	}
	rate := float64(total) / time.Since(start).Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("%.0f req/s", rate)}
}

var createTableRe = regexp.MustCompile(`(?i)CREATE TABLE IF NOT EXISTS\s+(\w+)`)

func extractTables(path string) ([]string, error) {
	sql, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, m := range createTableRe.FindAllStringSubmatch(string(sql), -1) {
		tables = append(tables, m[1])
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables found in %s", path)
	}
	return tables, nil
}
