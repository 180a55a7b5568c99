// internal/app/system/txn/txn.go
//
// Package txn runs multi-document writes inside a MongoDB transaction and
// degrades to sequential writes with compensation on deployments that
// cannot run transactions (standalone servers).
package txn

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/camphub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes that mean transactions are unavailable.
const (
	codeIllegalOperation         = 20
	codeNoSuchTransaction        = 51
	codeOperationNotSupportedTxn = 263
)

// IsNotSupported reports whether err indicates that the deployment does not
// support transactions or sessions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case codeIllegalOperation, codeNoSuchTransaction, codeOperationNotSupportedTxn:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	hits := 0
	for _, kw := range []string{"transaction", "replica set", "session", "not supported", "illegal operation"} {
		if strings.Contains(msg, kw) {
			hits++
		}
	}
	return hits >= 2
}

// Tx is handed to the work function. In fallback mode it collects undo
// steps that run, newest first, when the work function fails.
type Tx struct {
	fallback bool
	undo     []func(ctx context.Context) error
}

// Fallback reports whether the work is running without a transaction.
func (t *Tx) Fallback() bool { return t.fallback }

// OnRollback registers a compensating action. It only runs in fallback
// mode; inside a real transaction the server discards the writes.
func (t *Tx) OnRollback(fn func(ctx context.Context) error) {
	if t.fallback {
		t.undo = append(t.undo, fn)
	}
}

// Work is the body of a transaction. It must use the ctx it is given so
// that writes join the session.
type Work func(ctx context.Context, tx *Tx) error

// Run executes work inside a transaction on client. When the server does
// not support transactions, work runs again without one and any
// registered rollbacks are applied if it fails.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, work Work) error {
	if log == nil {
		log = zap.NewNop()
	}
	if client == nil {
		return runSequential(ctx, log, work)
	}

	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			log.Warn("sessions unavailable, running without transaction", zap.Error(err))
			return runSequential(ctx, log, work)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, work(sc, &Tx{})
	})
	if err != nil && IsNotSupported(err) {
		log.Warn("transactions unavailable, running sequentially", zap.Error(err))
		return runSequential(ctx, log, work)
	}
	return err
}

func runSequential(ctx context.Context, log *zap.Logger, work Work) error {
	tx := &Tx{fallback: true}
	err := work(ctx, tx)
	if err == nil {
		return nil
	}
	// Compensate even if the request context is already done.
	undoCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Long())
	defer cancel()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		if uerr := tx.undo[i](undoCtx); uerr != nil {
			log.Error("rollback step failed", zap.Int("step", i), zap.Error(uerr))
		}
	}
	return err
}
