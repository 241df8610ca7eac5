//go:build !cgo

package sql

// 没有 cgo 时 mattn/go-sqlite3 不会编译出 sqlite3.Error，
// 也不可能在运行期产生该类型的错误，直接返回 false。
func isSQLiteDuplicateKey(error) bool {
	return false
}
