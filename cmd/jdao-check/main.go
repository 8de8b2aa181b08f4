package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/sijms/go-ora/v2"

	"github.com/shrek82/jdao/catalog"
	"github.com/shrek82/jdao/core"
)

// 命令行参数定义
var (
	driverName = flag.String("driver", "sqlite3", "数据库驱动 (sqlite3, mysql, postgres, sqlserver, oracle)")
	dsn        = flag.String("dsn", "", "数据库连接字符串 (DSN)")
	catalogDir = flag.String("catalog", "./sql", "SQL 目录 (.properties / .toml)")
	configFile = flag.String("config", "", "连接池与日志配置文件 (TOML)，可选")
	genPkg     = flag.String("pkg", "", "若指定，为每个 owner 生成语句键常量到该包")
	outDir     = flag.String("out", "./dao", "生成代码的输出目录")
	overwrite  = flag.Bool("overwrite", false, "如果文件已存在，是否覆盖")
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	flag.Parse()

	// 加载 SQL 目录
	cat := catalog.New()
	if err := cat.LoadDir(*catalogDir); err != nil {
		log.Fatalf("加载 SQL 目录失败: %v", err)
	}
	if len(cat.Owners()) == 0 {
		log.Fatalf("目录 %s 中没有任何语句", *catalogDir)
	}

	// 只生成代码时不需要连接数据库
	if *genPkg != "" {
		n, err := generate(cat, *genPkg, *outDir, *overwrite)
		if err != nil {
			log.Fatalf("生成代码失败: %v", err)
		}
		fmt.Printf("生成完成！共 %d 个文件\n", n)
		return
	}

	if *dsn == "" {
		fmt.Println("使用说明: jdao-check -dsn <dsn> [-driver sqlite3] [-catalog ./sql] [-config jdao.toml]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var opts *core.Options
	if *configFile != "" {
		o, err := core.LoadOptions(*configFile)
		if err != nil {
			log.Fatalf("读取配置失败: %v", err)
		}
		opts = o
	}

	db, err := core.Open(*driverName, *dsn, opts)
	if err != nil {
		log.Fatalf("无法连接到数据库: %v", err)
	}
	defer db.Close()
	db.SetCatalog(cat)

	failures, total, err := check(context.Background(), db)
	if err != nil {
		log.Fatalf("检查失败: %v", err)
	}
	for _, f := range failures {
		fmt.Printf("FAIL %s.%s: %v\n", f.Owner, f.Key, f.Err)
	}
	fmt.Printf("%d 条语句，%d 条失败\n", total, len(failures))
	if len(failures) > 0 {
		db.Close()
		os.Exit(1)
	}
}
