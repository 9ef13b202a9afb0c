package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUniqueViolation 违反唯一约束（PostgreSQL 23505）
var ErrUniqueViolation = errors.New("违反唯一约束")

const pgUniqueViolation = "23505"

// mapPGError 将驱动层错误转换为仓储层哨兵错误，其余原样返回
func mapPGError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
	}
	return err
}
