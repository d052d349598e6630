// Package repository implements persistence for reservations. The MySQL
// implementation backs production deployments; the in-memory one backs
// local runs and tests. Both translate missing rows into
// booking.ErrNotFound so higher layers never see sql.ErrNoRows.
package repository

import "errors"

// ErrTxClosed is returned when a memory transaction handle is used after
// WithinTx has returned.
var ErrTxClosed = errors.New("transaction already closed")
