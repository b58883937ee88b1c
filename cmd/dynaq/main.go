// dynaq - утилита оператора: проверка подключения и выполнение
// запросов к целям из YAML-конфигурации, с выводом в консоль или XLSX.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ruslano69/dynaq/pkg/config"
	"github.com/ruslano69/dynaq/pkg/engine"
	"github.com/ruslano69/dynaq/pkg/mapper"

	// Регистрация всех драйверов
	_ "github.com/ruslano69/dynaq/pkg/drivers/mssql"
	_ "github.com/ruslano69/dynaq/pkg/drivers/mysql"
	_ "github.com/ruslano69/dynaq/pkg/drivers/odbc"
	_ "github.com/ruslano69/dynaq/pkg/drivers/postgres"
	_ "github.com/ruslano69/dynaq/pkg/drivers/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "ping":
		err = runPing(os.Args[2:])
	case "query":
		err = runQuery(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`dynaq - dynamic data access CLI

Usage:
  dynaq ping  -config <file> [-db <target>]
  dynaq query -config <file> [-db <target>] -sql <query> [-xlsx <file>] [-sheet <name>]

Commands:
  ping    Проверить подключение к цели
  query   Выполнить запрос и вывести строки (консоль или XLSX)`)
}

func openTarget(configPath, target string) (*engine.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	db, err := cfg.Target(target)
	if err != nil {
		return nil, err
	}
	return engine.Open(db.DriverConfig())
}

func runPing(args []string) error {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	configPath := fs.String("config", "dynaq.yaml", "путь к конфигурации")
	target := fs.String("db", "", "имя цели (по умолчанию - default из конфигурации)")
	fs.Parse(args)

	db, err := openTarget(*configPath, *target)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	conn, err := db.Pool().Acquire(ctx)
	if err != nil {
		return err
	}
	db.Pool().Release(conn)

	fmt.Printf("✓ Connection OK (%s)\n", db.Dialect().Name())
	return nil
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", "dynaq.yaml", "путь к конфигурации")
	target := fs.String("db", "", "имя цели")
	query := fs.String("sql", "", "текст запроса")
	xlsxPath := fs.String("xlsx", "", "выгрузить результат в XLSX-файл")
	sheet := fs.String("sheet", "Result", "имя листа XLSX")
	fs.Parse(args)

	if *query == "" {
		return fmt.Errorf("query: -sql is required")
	}

	db, err := openTarget(*configPath, *target)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.Records(context.Background(), *query)
	if err != nil {
		return err
	}

	if *xlsxPath != "" {
		if err := writeXLSX(records, *xlsxPath, *sheet); err != nil {
			return err
		}
		fmt.Printf("✓ %d row(s) written to %s\n", len(records), *xlsxPath)
		return nil
	}

	printRecords(records)
	fmt.Printf("(%d row(s))\n", len(records))
	return nil
}

func printRecords(records []*mapper.DynamicRecord) {
	if len(records) == 0 {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 1, 4, 2, ' ', 0)
	names := records[0].Names()
	for i, n := range names {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, n)
	}
	fmt.Fprintln(w)

	for _, rec := range records {
		for i, n := range names {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			v, _ := rec.Get(n)
			fmt.Fprintf(w, "%v", v)
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}
