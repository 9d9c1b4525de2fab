package db

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"sp-service/configs"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHanaObjectName(t *testing.T) {
	tests := []struct {
		in         string
		wantSchema string
		wantName   string
	}{
		{in: "GET_ORDERS", wantName: "GET_ORDERS"},
		{in: "sales.get_orders", wantSchema: "SALES", wantName: "GET_ORDERS"},
		{in: `"Sales"."getOrders"`, wantSchema: "Sales", wantName: "getOrders"},
		{in: `"my.schema".proc`, wantSchema: "my.schema", wantName: "PROC"},
		{in: "[Sales].[Get Orders]", wantSchema: "Sales", wantName: "Get Orders"},
		{in: "erp.sales.get_orders", wantSchema: "SALES", wantName: "GET_ORDERS"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			schema, name := hanaObjectName(tt.in)
			assert.Equal(t, tt.wantSchema, schema)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestHanaBind(t *testing.T) {
	params := []hanaParam{
		{Name: "IV_CUSTOMER", DataType: "NVARCHAR", Mode: "IN"},
		{Name: "ET_HEAD", DataType: "TABLE_TYPE", Mode: "OUT"},
		{Name: "EV_COUNT", DataType: "INTEGER", Mode: "OUT"},
		{Name: "IV_STATUS", DataType: "NVARCHAR", Mode: "IN"},
		{Name: "ET_ITEMS", DataType: "TABLE_TYPE", Mode: "OUT"},
	}

	bind, tables, err := hanaBind(params, []any{"7", "open"})
	require.NoError(t, err)
	require.Len(t, tables, 2)
	require.Len(t, bind, 5)

	// scalars in declaration order, tables last
	assert.Equal(t, "7", bind[0])
	out, ok := bind[1].(sql.Out)
	require.True(t, ok)
	assert.IsType(t, new(any), out.Dest)
	assert.Equal(t, "open", bind[2])
	assert.Equal(t, sql.Out{Dest: tables[0]}, bind[3])
	assert.Equal(t, sql.Out{Dest: tables[1]}, bind[4])
}

func TestHanaBindRejects(t *testing.T) {
	tests := []struct {
		name    string
		params  []hanaParam
		args    []any
		wantErr string
	}{
		{
			name:    "missing argument",
			params:  []hanaParam{{Name: "A", DataType: "INTEGER", Mode: "IN"}, {Name: "B", DataType: "INTEGER", Mode: "IN"}},
			args:    []any{"1"},
			wantErr: "declares 2 input parameters, 1 given",
		},
		{
			name:    "extra argument",
			params:  []hanaParam{{Name: "ET", DataType: "TABLE_TYPE", Mode: "OUT"}},
			args:    []any{"1"},
			wantErr: "declares 0 input parameters, 1 given",
		},
		{
			name:    "table input",
			params:  []hanaParam{{Name: "IT_KEYS", DataType: "TABLE_TYPE", Mode: "IN"}},
			wantErr: "table input parameter IT_KEYS is not supported",
		},
		{
			name:    "inout",
			params:  []hanaParam{{Name: "CV_TOTAL", DataType: "DECIMAL", Mode: "INOUT"}},
			wantErr: "inout parameter CV_TOTAL is not supported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := hanaBind(tt.params, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func hanaParamRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"PARAMETER_NAME", "DATA_TYPE_NAME", "PARAMETER_TYPE"})
}

func TestHanaCursorCallsThroughPreparedExec(t *testing.T) {
	d, mock := newMockDialer(t, configs.DriverHANA, true)

	mock.ExpectPing()
	mock.ExpectQuery(fmt.Sprintf(hanaParamsQuery, "?")).
		WithArgs("SALES", "GET_ORDERS").
		WillReturnRows(hanaParamRows().
			AddRow("IV_CUSTOMER", "NVARCHAR", "IN").
			AddRow("EV_COUNT", "INTEGER", "OUT").
			AddRow("ET_HEAD", "TABLE_TYPE", "OUT").
			AddRow("ET_ITEMS", "TABLE_TYPE", "OUT"))
	mock.ExpectPrepare("CALL sales.get_orders(?, ?, ?, ?)").
		ExpectExec().
		WithArgs("7", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	ctx := context.Background()
	conn, err := d.Dial(ctx)
	require.NoError(t, err)
	cur, err := conn.Cursor()
	require.NoError(t, err)

	require.NoError(t, cur.Call(ctx, "sales.get_orders", "7"))
	hc := cur.(*hanaCursor)
	assert.Len(t, hc.tables, 2)
	assert.NotNil(t, hc.stmt)

	require.NoError(t, cur.Close())
	assert.Nil(t, hc.stmt)
	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHanaCursorUnqualifiedUsesCurrentSchema(t *testing.T) {
	d, mock := newMockDialer(t, configs.DriverHANA, true)

	mock.ExpectPing()
	mock.ExpectQuery(fmt.Sprintf(hanaParamsQuery, "CURRENT_SCHEMA")).
		WithArgs("MISSING").
		WillReturnRows(hanaParamRows())
	mock.ExpectClose()

	ctx := context.Background()
	conn, err := d.Dial(ctx)
	require.NoError(t, err)
	cur, err := conn.Cursor()
	require.NoError(t, err)

	err = cur.Call(ctx, "missing", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found or declares no parameters")

	require.NoError(t, cur.Close())
	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHanaCursorRejectsArgumentMismatchBeforeCalling(t *testing.T) {
	d, mock := newMockDialer(t, configs.DriverHANA, true)

	mock.ExpectPing()
	mock.ExpectQuery(fmt.Sprintf(hanaParamsQuery, "?")).
		WithArgs("SALES", "GET_ORDERS").
		WillReturnRows(hanaParamRows().AddRow("ET_HEAD", "TABLE_TYPE", "OUT"))
	mock.ExpectClose()

	ctx := context.Background()
	conn, err := d.Dial(ctx)
	require.NoError(t, err)
	cur, err := conn.Cursor()
	require.NoError(t, err)

	err = cur.Call(ctx, "SALES.GET_ORDERS", "1", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares 0 input parameters, 2 given")

	require.NoError(t, conn.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHanaCursorWalksTableOutputs(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	mock.ExpectQuery("ET_HEAD").WillReturnRows(sqlmock.NewRows([]string{"ORDER_ID", "CUSTOMER"}).AddRow(int64(10), "7"))
	mock.ExpectQuery("ET_ITEMS").WillReturnRows(sqlmock.NewRows([]string{"ORDER_ID", "LINE", "QTY"}).
		AddRow(int64(10), int64(1), 2.5).
		AddRow(int64(10), int64(2), 1.0))

	head, err := mockDB.Query("ET_HEAD")
	require.NoError(t, err)
	items, err := mockDB.Query("ET_ITEMS")
	require.NoError(t, err)

	c := &hanaCursor{tables: []*sql.Rows{head, items}, pos: 0}

	cols, err := c.Description()
	require.NoError(t, err)
	assert.Equal(t, []string{"ORDER_ID", "CUSTOMER"}, cols)
	rows, err := c.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(10), "7"}}, rows)

	more, err := c.NextSet()
	require.NoError(t, err)
	require.True(t, more)

	cols, err = c.Description()
	require.NoError(t, err)
	assert.Equal(t, []string{"ORDER_ID", "LINE", "QTY"}, cols)
	rows, err = c.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(10), int64(1), 2.5}, {int64(10), int64(2), 1.0}}, rows)

	more, err = c.NextSet()
	require.NoError(t, err)
	assert.False(t, more)

	cols, err = c.Description()
	assert.NoError(t, err)
	assert.Nil(t, cols)
	assert.NoError(t, c.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHanaCursorWithoutCall(t *testing.T) {
	c := newHanaCursor(nil)

	cols, err := c.Description()
	assert.NoError(t, err)
	assert.Nil(t, cols)

	_, err = c.FetchAll()
	assert.Error(t, err)

	more, err := c.NextSet()
	assert.NoError(t, err)
	assert.False(t, more)
	assert.NoError(t, c.Close())
}
