package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// HANA procedures return their result sets as table-typed OUT parameters. go-hdb
// fills those only through a prepared Exec with one sql.Out per table, so the
// cursor reads the procedure signature before calling it.

const hanaParamsQuery = `SELECT PARAMETER_NAME, DATA_TYPE_NAME, PARAMETER_TYPE
FROM SYS.PROCEDURE_PARAMETERS
WHERE SCHEMA_NAME = %s AND PROCEDURE_NAME = ?
ORDER BY POSITION`

const hanaTableType = "TABLE_TYPE"

type hanaParam struct {
	Name     string `db:"PARAMETER_NAME"`
	DataType string `db:"DATA_TYPE_NAME"`
	Mode     string `db:"PARAMETER_TYPE"`
}

func (p hanaParam) table() bool {
	return strings.EqualFold(p.DataType, hanaTableType)
}

type hanaCursor struct {
	q      queryer
	stmt   *sqlx.Stmt
	tables []*sql.Rows
	pos    int
}

func newHanaCursor(q queryer) *hanaCursor {
	return &hanaCursor{q: q, pos: -1}
}

func (c *hanaCursor) Call(ctx context.Context, procedure string, args ...any) error {
	if err := c.Close(); err != nil {
		return err
	}

	schema, name := hanaObjectName(procedure)
	params, err := c.describe(ctx, schema, name)
	if err != nil {
		return errors.Wrapf(err, "describe %s", procedure)
	}
	if len(params) == 0 {
		return errors.Errorf("procedure %s not found or declares no parameters", procedure)
	}

	bind, tables, err := hanaBind(params, args)
	if err != nil {
		return errors.Wrapf(err, "call %s", procedure)
	}

	stmt, err := c.q.PreparexContext(ctx, hanaCall(procedure, len(params)))
	if err != nil {
		return errors.Wrapf(err, "prepare call %s", procedure)
	}
	if _, err := stmt.ExecContext(ctx, bind...); err != nil {
		_ = stmt.Close()
		return errors.Wrapf(err, "call %s", procedure)
	}

	c.stmt = stmt
	c.tables = tables
	c.pos = 0
	return nil
}

func (c *hanaCursor) describe(ctx context.Context, schema, name string) ([]hanaParam, error) {
	var params []hanaParam
	if schema == "" {
		err := c.q.SelectContext(ctx, &params, fmt.Sprintf(hanaParamsQuery, "CURRENT_SCHEMA"), name)
		return params, err
	}
	err := c.q.SelectContext(ctx, &params, fmt.Sprintf(hanaParamsQuery, "?"), schema, name)
	return params, err
}

func (c *hanaCursor) current() *sql.Rows {
	if c.pos < 0 || c.pos >= len(c.tables) {
		return nil
	}
	return c.tables[c.pos]
}

func (c *hanaCursor) Description() ([]string, error) {
	rows := c.current()
	if rows == nil {
		return nil, nil
	}
	return rows.Columns()
}

func (c *hanaCursor) FetchAll() ([][]any, error) {
	rows := c.current()
	if rows == nil {
		return nil, errors.New("no active result set")
	}
	return scanAll(rows)
}

func (c *hanaCursor) NextSet() (bool, error) {
	if c.pos < 0 {
		return false, nil
	}
	c.pos++
	return c.pos < len(c.tables), nil
}

// Close closes the table outputs and the call statement that keeps them readable.
func (c *hanaCursor) Close() error {
	var errs []error
	for _, rows := range c.tables {
		// A table the driver never filled has no columns and must not be closed.
		if _, err := rows.Columns(); err == nil {
			errs = append(errs, rows.Close())
		}
	}
	if c.stmt != nil {
		errs = append(errs, c.stmt.Close())
	}
	c.stmt, c.tables, c.pos = nil, nil, -1
	return stderrors.Join(errs...)
}

// hanaBind orders the call arguments the way go-hdb expects them: scalar
// parameters in declaration order, then one sql.Rows per table output. Scalar OUT
// values are discarded; only tables are result sets.
func hanaBind(params []hanaParam, args []any) ([]any, []*sql.Rows, error) {
	var inputs int
	for _, p := range params {
		if strings.EqualFold(p.Mode, "IN") && !p.table() {
			inputs++
		}
	}
	if inputs != len(args) {
		return nil, nil, fmt.Errorf("procedure declares %d input parameters, %d given", inputs, len(args))
	}

	var (
		scalars []any
		tables  []*sql.Rows
		next    int
	)
	for _, p := range params {
		switch mode := strings.ToUpper(p.Mode); {
		case mode == "IN" && p.table():
			return nil, nil, fmt.Errorf("table input parameter %s is not supported", p.Name)
		case mode == "IN":
			scalars = append(scalars, args[next])
			next++
		case mode == "OUT" && p.table():
			tables = append(tables, new(sql.Rows))
		case mode == "OUT":
			scalars = append(scalars, sql.Out{Dest: new(any)})
		default:
			return nil, nil, fmt.Errorf("%s parameter %s is not supported", strings.ToLower(mode), p.Name)
		}
	}

	bind := scalars
	for _, t := range tables {
		bind = append(bind, sql.Out{Dest: t})
	}
	return bind, tables, nil
}

// hanaObjectName splits [schema.]name for the catalog lookup. Quoted parts keep
// their case; plain parts are folded to upper case like HANA does.
func hanaObjectName(procedure string) (schema, name string) {
	parts := splitQuoted(strings.TrimSpace(procedure))
	for i, p := range parts {
		parts[i] = unquote(p)
	}
	name = parts[len(parts)-1]
	if len(parts) > 1 {
		schema = parts[len(parts)-2]
	}
	return schema, name
}

func splitQuoted(s string) []string {
	var (
		parts  []string
		start  int
		closer rune
	)
	for i, r := range s {
		switch {
		case closer != 0:
			if r == closer {
				closer = 0
			}
		case r == '"':
			closer = '"'
		case r == '[':
			closer = ']'
		case r == '.':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unquote(p string) string {
	if len(p) >= 2 && (p[0] == '"' && p[len(p)-1] == '"' || p[0] == '[' && p[len(p)-1] == ']') {
		return p[1 : len(p)-1]
	}
	return strings.ToUpper(p)
}
