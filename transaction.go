package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/gopsql/db"
)

// Transaction starts a transaction on the connection. It is committed if
// block returns nil and rolled back if block returns an error or panics.
func (c *Connection) Transaction(ctx context.Context, block TransactionBlock) (err error) {
	if c.db == nil {
		return ErrNoConnection
	}
	logStatement(c.logger, "BEGIN", nil)
	var tx db.Tx
	tx, err = c.db.BeginTx(ctx, "", false)
	if err != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logStatement(c.logger, "ROLLBACK", nil)
			tx.Rollback(ctx)
			if rerr, ok := r.(error); ok {
				err = rerr
			} else {
				err = errors.New(fmt.Sprint(r))
			}
		} else if err != nil {
			logStatement(c.logger, "ROLLBACK", nil)
			tx.Rollback(ctx)
		} else {
			logStatement(c.logger, "COMMIT", nil)
			err = tx.Commit(ctx)
		}
	}()
	err = block(ctx, &txGateway{tx: tx, logger: c.logger})
	return
}

// MustTransaction is like Transaction but panics if the transaction fails.
func (c *Connection) MustTransaction(ctx context.Context, block TransactionBlock) {
	if err := c.Transaction(ctx, block); err != nil {
		panic(err)
	}
}

// Transaction starts a transaction on the gateway of the Model. The gateway
// must implement Transactor.
func (m *Model) Transaction(ctx context.Context, block TransactionBlock) error {
	gw := m.Gateway()
	if gw == nil {
		return ErrNoConnection
	}
	t, ok := gw.(Transactor)
	if !ok {
		return &ConfigurationError{Reason: fmt.Sprintf("gateway %T does not support transactions", gw)}
	}
	return t.Transaction(ctx, block)
}
