package db

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"sp-service/configs"

	_ "github.com/SAP/go-hdb/driver"
	_ "github.com/denisenkom/go-mssqldb"
)

type dialect struct {
	driverName string
	dsn        func(cfg configs.DbConfig) string
	newCursor  func(q queryer) Cursor
}

var dialects = map[string]dialect{
	configs.DriverSQLServer: {
		driverName: "sqlserver",
		dsn:        sqlServerDSN,
		newCursor:  func(q queryer) Cursor { return &sqlCursor{q: q} },
	},
	configs.DriverHANA: {
		driverName: "hdb",
		dsn:        hanaDSN,
		newCursor:  func(q queryer) Cursor { return newHanaCursor(q) },
	},
}

func lookupDialect(driver string) (dialect, error) {
	d, ok := dialects[strings.ToLower(driver)]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported driver: %q", driver)
	}
	return d, nil
}

func sqlServerDSN(cfg configs.DbConfig) string {
	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Server, strconv.Itoa(cfg.Port)),
	}

	q := url.Values{}
	if cfg.Database != "" {
		q.Set("database", cfg.Database)
	}
	q.Set("encrypt", "disable")

	u.RawQuery = q.Encode()
	return u.String()
}

func hanaDSN(cfg configs.DbConfig) string {
	u := &url.URL{
		Scheme: "hdb",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Server, strconv.Itoa(cfg.Port)),
	}
	if cfg.Database != "" {
		q := url.Values{}
		q.Set("databaseName", cfg.Database)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// EXEC dbo.Proc @p1, @p2
func sqlServerCall(procedure string, nargs int) string {
	params := make([]string, nargs)
	for i := range params {
		params[i] = fmt.Sprintf("@p%d", i+1)
	}
	if nargs == 0 {
		return "EXEC " + procedure
	}
	return "EXEC " + procedure + " " + strings.Join(params, ", ")
}

// CALL SCHEMA.PROC(?, ?), one mark per declared parameter
func hanaCall(procedure string, nparams int) string {
	marks := make([]string, nparams)
	for i := range marks {
		marks[i] = "?"
	}
	return "CALL " + procedure + "(" + strings.Join(marks, ", ") + ")"
}
