package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"mailrelay/backend/internal/service"
	sqlstore "mailrelay/backend/internal/storage/sql"
)

// seedpool 把名字文件批量写入名字池，重复执行是幂等的。
func main() {
	dbType := flag.String("type", "", "数据库类型: sqlite3、mysql 或 postgres")
	dbDSN := flag.String("dsn", "", "数据库连接字符串")
	file := flag.String("file", "name.txt", "名字文件路径，每行一个名字")
	flag.Parse()

	if *dbType == "" || *dbDSN == "" {
		fmt.Println("用法:")
		fmt.Println("  go run cmd/seedpool/main.go -type=sqlite3 -dsn='./mailrelay.db' -file=name.txt")
		os.Exit(1)
	}

	store, err := sqlstore.NewStore(*dbType, *dbDSN, 5, 2, 5*time.Minute)
	if err != nil {
		fmt.Printf("错误: 无法连接数据库: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	pool := service.NewNamePoolService(store)

	inserted, err := pool.SeedFromFile(*file)
	if err != nil {
		fmt.Printf("错误: 播种失败: %v\n", err)
		os.Exit(1)
	}

	unused, err := store.CountUnusedNames()
	if err != nil {
		fmt.Printf("错误: 统计失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ 新增 %d 个名字，当前未使用 %d 个\n", inserted, unused)
}
