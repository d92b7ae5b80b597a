package database

import (
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/grayson-dev/gcis-api/pkg/config"
)

// NewCams returns a client for the upstream CAMS SQL Server database.
// The connection is read-only from this service's point of view; only
// the load pipeline holds one.
func NewCams(cfg config.CamsConfig) (*sqlx.DB, error) {
	u := &url.URL{
		Scheme: "sqlserver",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	q := url.Values{}
	q.Set("database", cfg.Name)
	u.RawQuery = q.Encode()

	db, err := sqlx.Open("sqlserver", u.String())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
