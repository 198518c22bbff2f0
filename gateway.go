package record

import (
	"context"
	"fmt"
	"strings"

	"github.com/gopsql/db"
	"github.com/gopsql/logger"
)

type (
	// Row is one result row, column name to value.
	Row map[string]interface{}

	// Gateway executes one parameterized SQL statement and returns its
	// rows. Errors from the database are returned unmodified.
	Gateway interface {
		Execute(ctx context.Context, sql string, params []interface{}) ([]Row, error)
	}

	// Transactor is implemented by gateways that can run statements inside a
	// transaction. Transactional statements of a chain (DELETE, INSERT and
	// UPDATE) use it. Other gateways get BEGIN, the statement and COMMIT (or
	// ROLLBACK) as three Execute calls, which only form a transaction if the
	// gateway runs them on the same session.
	Transactor interface {
		Transaction(ctx context.Context, block TransactionBlock) error
	}

	// TransactionBlock runs inside a transaction. The gateway passed to it
	// executes statements in that transaction.
	TransactionBlock func(context.Context, Gateway) error

	// Connection is the Gateway over a gopsql db.DB. One pooled connection
	// is borrowed per statement and released before Execute returns.
	Connection struct {
		db     db.DB
		logger logger.Logger
	}

	txGateway struct {
		tx     db.Tx
		logger logger.Logger
	}
)

var (
	_ Gateway    = (*Connection)(nil)
	_ Transactor = (*Connection)(nil)
	_ Gateway    = (*txGateway)(nil)
)

// NewGateway returns a Gateway over conn. Every statement is logged at debug
// level when log is not nil.
func NewGateway(conn db.DB, log logger.Logger) *Connection {
	return &Connection{db: conn, logger: log}
}

// DB returns the underlying connection.
func (c *Connection) DB() db.DB {
	return c.db
}

// Execute runs the statement and collects every row.
func (c *Connection) Execute(ctx context.Context, sql string, params []interface{}) ([]Row, error) {
	if c.db == nil {
		return nil, ErrNoConnection
	}
	logStatement(c.logger, sql, params)
	rows, err := c.db.QueryContext(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

func (g *txGateway) Execute(ctx context.Context, sql string, params []interface{}) ([]Row, error) {
	logStatement(g.logger, sql, params)
	rows, err := g.tx.QueryContext(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	return collectRows(rows)
}

func collectRows(rows db.Rows) (out []Row, err error) {
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		dests := make([]interface{}, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
				continue
			}
			row[column] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func logStatement(log logger.Logger, sql string, args []interface{}) {
	if log == nil {
		return
	}
	if len(args) == 0 {
		log.Debug(sql)
		return
	}
	values := make([]string, len(args))
	for i, arg := range args {
		values[i] = fmt.Sprintf("$%d = %v", i+1, arg)
	}
	log.Debug(sql, "["+strings.Join(values, ", ")+"]")
}
