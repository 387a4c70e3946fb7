// Package database owns the MySQL connection pool and the schema
// bootstrap run at startup.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL, applies the pool settings and verifies the
// connection with a short ping. parseTime maps DATETIME columns to
// time.Time and loc=UTC keeps every timestamp in UTC.
func Open(user, pass, host, port, name string, maxOpen, maxIdle int, connLifetime time.Duration) (*sql.DB, error) {
	creds := user
	if pass != "" {
		creds = fmt.Sprintf("%s:%s", user, pass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		creds, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}
