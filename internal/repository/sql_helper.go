package repository

import (
	"database/sql"
	"time"
)

// toMillis time.Time をUnixミリ秒に変換
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// fromMillis Unixミリ秒を time.Time に変換
func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullableMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func timeFromNullable(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}
