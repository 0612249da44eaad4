package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrUnitOfWorkDone = errors.New("unit of work already committed or rolled back")

// UnitOfWork is one database transaction. Every repository call that must
// commit together receives Tx(). It finishes exactly once: Commit, or
// Rollback, and a Rollback after Commit is a no-op so callers can always
// `defer uow.Rollback()`.
type UnitOfWork struct {
	tx     *gorm.DB
	cancel context.CancelFunc
	done   bool
}

func (u *UnitOfWork) Tx() *gorm.DB {
	return u.tx
}

func (u *UnitOfWork) Commit() error {
	if u.done {
		return ErrUnitOfWorkDone
	}
	u.done = true
	defer u.cancel()
	return u.tx.Commit().Error
}

func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.cancel()
	return u.tx.Rollback().Error
}

// TxManager opens units of work against one database handle.
type TxManager struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewTxManager creates a manager. A positive timeout bounds each unit of
// work; when it expires the driver aborts and rolls back the transaction.
func NewTxManager(db *gorm.DB, timeout time.Duration) *TxManager {
	return &TxManager{db: db, timeout: timeout}
}

func (m *TxManager) Begin(ctx context.Context) (*UnitOfWork, error) {
	cancel := context.CancelFunc(func() {})
	if m.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
	}
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		cancel()
		return nil, tx.Error
	}
	return &UnitOfWork{tx: tx, cancel: cancel}, nil
}

// DB is the non-transactional handle for plain reads.
func (m *TxManager) DB() *gorm.DB {
	return m.db
}
