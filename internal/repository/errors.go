package repository

import "errors"

var (
	// 対象レコードが存在しない
	ErrNotFound = errors.New("not found")
	// 楽観ロック失敗・一意制約違反
	ErrConflict = errors.New("conflict")
)
