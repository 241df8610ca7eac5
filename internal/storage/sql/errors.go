package sql

import (
	"errors"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// isDuplicateKey 判断错误是否为唯一键/主键冲突。
// 占用事务需要把这类冲突与其他存储故障区分开：前者是预期内的竞争，
// 换个后缀重试即可；后者必须原样上抛。
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}

	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062 // ER_DUP_ENTRY
	}

	return isSQLiteDuplicateKey(err)
}
