package procedure

import (
	"context"
	"strings"

	"sp-service/pkg/db"
)

// Invoke calls procedure with parameter as its only positional argument. The
// argument is always bound, even when empty. Names are validated before the cursor
// is touched.
func Invoke(ctx context.Context, cursor db.Cursor, procedure, parameter string) error {
	if err := ValidateProcedureName(procedure); err != nil {
		return err
	}
	name := strings.TrimSpace(procedure)

	if err := cursor.Call(ctx, name, parameter); err != nil {
		code, desc := db.DriverError(err)
		return InvocationError{
			Procedure:   name,
			Parameter:   parameter,
			Code:        code,
			Description: desc,
			Err:         err,
		}
	}
	return nil
}
