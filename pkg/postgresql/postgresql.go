package postgresql

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/tsel-ticketmaster/tm-fulfillment/config"
)

var (
	db   *sql.DB
	once sync.Once
)

// GetDatabase opens the shared connection pool. The pool is lazy, callers
// should Ping to learn whether the database is reachable.
func GetDatabase() *sql.DB {
	once.Do(func() {
		c := config.Get()

		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Postgres.Host, c.Postgres.Port, c.Postgres.User, c.Postgres.Password, c.Postgres.DBName, c.Postgres.SSLMode,
		)

		conn, err := sql.Open("pgx", dsn)
		if err != nil {
			panic(err)
		}

		conn.SetMaxOpenConns(c.Postgres.MaxOpenConns)
		conn.SetMaxIdleConns(c.Postgres.MaxIdleConns)
		conn.SetConnMaxLifetime(c.Postgres.ConnMaxLifetime)

		db = conn
	})

	return db
}
