package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Status is the reachability of each backing store.
type Status struct {
	Postgres string `json:"postgres"`
	Redis    string `json:"redis"`
}

// Healthy reports whether no configured store is down.
func (s Status) Healthy() bool {
	return s.Postgres != "down" && s.Redis != "down"
}

// Check pings both stores with a short timeout. Nil clients are reported as
// "disabled".
func Check(ctx context.Context, pool *pgxpool.Pool, rdb *redis.Client) Status {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := Status{Postgres: "disabled", Redis: "disabled"}
	if pool != nil {
		st.Postgres = "up"
		if err := pool.Ping(ctx); err != nil {
			st.Postgres = "down"
		}
	}
	if rdb != nil {
		st.Redis = "up"
		if err := rdb.Ping(ctx).Err(); err != nil {
			st.Redis = "down"
		}
	}
	return st
}
