package db

import (
	"context"
	"errors"
	"strconv"

	mssql "github.com/denisenkom/go-mssqldb"
)

const (
	CodeTimeout  = "TIMEOUT"
	CodeCanceled = "CANCELED"
	CodeUnknown  = "UNKNOWN"
)

// Shape of go-hdb server errors; matched structurally so other drivers with the same
// accessors are covered too.
type codedError interface {
	Code() int
	Text() string
}

// DriverError extracts a database error code and description from err.
// Drivers that expose no code still keep their message as description.
func DriverError(err error) (code, description string) {
	if err == nil {
		return "", ""
	}

	var me mssql.Error
	if errors.As(err, &me) {
		return strconv.Itoa(int(me.Number)), me.Message
	}

	var ce codedError
	if errors.As(err, &ce) {
		return strconv.Itoa(ce.Code()), ce.Text()
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout, err.Error()
	case errors.Is(err, context.Canceled):
		return CodeCanceled, err.Error()
	}
	return CodeUnknown, err.Error()
}
