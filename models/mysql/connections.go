package mysql

import (
	"database/sql"
	"time"

	driver "github.com/go-sql-driver/mysql"
)

// Config holds the MySQL connection settings
type Config struct {
	User         string `json:"user" env:"MYSQL_USER"`
	Password     string `json:"password" env:"MYSQL_PASSWORD"`
	Host         string `json:"host" env:"MYSQL_HOST"`
	DB           string `json:"db" env:"MYSQL_DB"`
	MaxOpenConns int    `json:"max_open_conns" env:"MYSQL_MAX_OPEN_CONNS"`
}

// DSN returns the driver data source name for the config
func (c Config) DSN() string {
	cfg := driver.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.DBName = c.DB
	if c.Host != "" {
		cfg.Net = "tcp"
		cfg.Addr = c.Host
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// Init opens the MySQL connection pool
func Init(conf Config) (*sql.DB, error) {
	dbConn, err := sql.Open("mysql", conf.DSN())
	if err != nil {
		return nil, err
	}
	maxOpen := conf.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 100
	}
	dbConn.SetMaxOpenConns(maxOpen)
	return dbConn, nil
}
