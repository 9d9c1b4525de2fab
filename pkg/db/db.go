package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"sp-service/configs"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// SQLDialer opens a dedicated database handle per session. Handles are never shared
// between sessions, so there is no pooling across requests.
type SQLDialer struct {
	dialect     dialect
	dsn         string
	autoCommit  bool
	pingTimeout time.Duration
	open        func(driverName, dsn string) (*sqlx.DB, error)
}

func NewSQLDialer(cfg configs.DbConfig) (*SQLDialer, error) {
	d, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	pingTimeout := cfg.ConnectTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}

	return &SQLDialer{
		dialect:     d,
		dsn:         d.dsn(cfg),
		autoCommit:  cfg.AutoCommit,
		pingTimeout: pingTimeout,
		open:        sqlx.Open,
	}, nil
}

func (d *SQLDialer) Dial(ctx context.Context) (Conn, error) {
	dbx, err := d.open(d.dialect.driverName, d.dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	dbx.SetMaxOpenConns(1)
	dbx.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, d.pingTimeout)
	defer cancel()
	if err := dbx.PingContext(pingCtx); err != nil {
		_ = dbx.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	conn, err := dbx.Connx(ctx)
	if err != nil {
		_ = dbx.Close()
		return nil, errors.Wrap(err, "acquire connection")
	}

	c := &sqlConn{db: dbx, conn: conn, dialect: d.dialect}
	if !d.autoCommit {
		tx, err := conn.BeginTxx(ctx, nil)
		if err != nil {
			_ = c.Close()
			return nil, errors.Wrap(err, "begin transaction")
		}
		c.tx = tx
	}
	return c, nil
}

// queryer is what *sqlx.Conn and *sqlx.Tx have in common.
type queryer interface {
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type sqlConn struct {
	db      *sqlx.DB
	conn    *sqlx.Conn
	tx      *sqlx.Tx
	dialect dialect
}

func (c *sqlConn) Cursor() (Cursor, error) {
	var q queryer = c.conn
	if c.tx != nil {
		q = c.tx
	}
	return c.dialect.newCursor(q), nil
}

// Commit and Rollback are no-ops in autocommit mode.
func (c *sqlConn) Commit() error {
	if c.tx == nil {
		return nil
	}
	return c.tx.Commit()
}

func (c *sqlConn) Rollback() error {
	if c.tx == nil {
		return nil
	}
	return c.tx.Rollback()
}

func (c *sqlConn) Close() error {
	return stderrors.Join(c.conn.Close(), c.db.Close())
}

// sqlCursor runs a procedure as a query and walks the driver's result sets.
type sqlCursor struct {
	q    queryer
	rows *sqlx.Rows
}

func (c *sqlCursor) Call(ctx context.Context, procedure string, args ...any) error {
	if c.rows != nil {
		_ = c.rows.Close()
		c.rows = nil
	}

	rows, err := c.q.QueryxContext(ctx, sqlServerCall(procedure, len(args)), args...)
	if err != nil {
		return errors.Wrapf(err, "call %s", procedure)
	}
	c.rows = rows
	return nil
}

func (c *sqlCursor) Description() ([]string, error) {
	if c.rows == nil {
		return nil, nil
	}
	return c.rows.Columns()
}

func (c *sqlCursor) FetchAll() ([][]any, error) {
	if c.rows == nil {
		return nil, errors.New("no active result set")
	}

	// Column types must be read before the last set is drained and the rows close.
	types, err := c.rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	rows, err := scanAll(c.rows.Rows)
	if err != nil {
		return nil, err
	}
	for i, ct := range types {
		if strings.EqualFold(ct.DatabaseTypeName(), "UNIQUEIDENTIFIER") {
			formatGUIDs(rows, i)
		}
	}
	return rows, nil
}

// formatGUIDs replaces raw uniqueidentifier bytes in column i with the canonical
// GUID text SQL Server itself prints.
func formatGUIDs(rows [][]any, i int) {
	for _, row := range rows {
		b, ok := row[i].([]byte)
		if !ok {
			continue
		}
		var id mssql.UniqueIdentifier
		if err := id.Scan(b); err == nil {
			row[i] = id.String()
		}
	}
}

func (c *sqlCursor) NextSet() (bool, error) {
	if c.rows == nil {
		return false, nil
	}
	if c.rows.NextResultSet() {
		return true, nil
	}
	return false, c.rows.Err()
}

func (c *sqlCursor) Close() error {
	if c.rows == nil {
		return nil
	}
	err := c.rows.Close()
	c.rows = nil
	return err
}

func scanAll(rows *sql.Rows) ([][]any, error) {
	out := make([][]any, 0, 64)
	for rows.Next() {
		values, err := sqlx.SliceScan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
