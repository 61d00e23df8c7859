package mssql

import (
	"fmt"
	"net/url"
)

// Config holds SQL Server connection settings for a datasource.
type Config struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"-" yaml:"-"`
	Database string `json:"database" yaml:"database"`
	Encrypt  string `json:"encrypt" yaml:"encrypt"` // "true", "false", or "disable"
}

// ConnectionString renders the config as a sqlserver:// URL.
func (c *Config) ConnectionString() string {
	query := url.Values{}
	query.Set("database", c.Database)
	if c.Encrypt != "" {
		query.Set("encrypt", c.Encrypt)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
