package db

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Cursor is an open statement handle that walks the result sets of one call.
type Cursor interface {
	// Call runs procedure with positional args and positions the cursor on its first result set.
	Call(ctx context.Context, procedure string, args ...any) error
	// Description returns the column names of the current result set, or none when
	// the current set carries no column metadata.
	Description() ([]string, error)
	FetchAll() ([][]any, error)
	// NextSet advances to the next result set and reports whether one exists.
	NextSet() (bool, error)
	Close() error
}

// Conn is a single database connection with at most one open transaction.
type Conn interface {
	Cursor() (Cursor, error)
	Commit() error
	Rollback() error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Session owns one connection and one cursor for the duration of a request.
// It is not safe for concurrent use.
type Session struct {
	conn      Conn
	cursor    Cursor
	log       logrus.FieldLogger
	committed bool
	released  bool
}

// Acquire dials a connection and opens its cursor. On error nothing is left open.
func Acquire(ctx context.Context, d Dialer, log logrus.FieldLogger) (*Session, error) {
	conn, err := d.Dial(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := conn.Cursor()
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("connection close failed")
		}
		return nil, errors.Wrap(err, "open cursor")
	}

	return &Session{conn: conn, cursor: cursor, log: log}, nil
}

func (s *Session) Cursor() Cursor {
	return s.cursor
}

// Commit ends the session's work successfully. Release will not roll back afterwards.
func (s *Session) Commit() error {
	if s.released {
		return errors.New("session already released")
	}
	if err := s.conn.Commit(); err != nil {
		return err
	}
	s.committed = true
	return nil
}

// Release rolls back uncommitted work, then closes the cursor and the connection.
// Close failures are logged and never returned. Safe to call more than once and on nil.
func (s *Session) Release() {
	if s == nil || s.released {
		return
	}
	s.released = true

	if !s.committed {
		if err := s.conn.Rollback(); err != nil {
			s.log.WithError(err).Warn("rollback failed")
		} else {
			s.log.Debug("transaction rolled back")
		}
	}

	if s.cursor != nil {
		if err := s.cursor.Close(); err != nil {
			s.log.WithError(err).Warn("cursor close failed")
		}
	}

	if err := s.conn.Close(); err != nil {
		s.log.WithError(err).Warn("connection close failed")
	}
}
