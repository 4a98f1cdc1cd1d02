package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrPersistence marks a failed read or write for a single key. The store
	// itself is still reachable.
	ErrPersistence = errors.New("persistence failure")
	// ErrUnavailable marks a store that cannot be reached at all.
	ErrUnavailable = errors.New("store unavailable")
)

// Classify wraps a driver error with ErrPersistence or ErrUnavailable while
// keeping the original error in the chain.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPersistence) || errors.Is(err, ErrUnavailable) {
		return err
	}
	if IsUnavailable(err) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

// IsUnavailable reports a store that cannot be reached. An expired or
// cancelled context is not an outage, even though it satisfies net.Error.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08 connection exception, 57P01-03 shutdown, 53300 too many connections
		switch {
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		case pgErr.Code == "57P01", pgErr.Code == "57P02", pgErr.Code == "57P03", pgErr.Code == "53300":
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "closed pool")
}

// IsNoRows reports a lookup that matched nothing. A malformed uuid key
// (22P02) can never match a row, so it counts too.
func IsNoRows(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
