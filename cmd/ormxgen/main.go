// Command ormxgen describes database tables and writes ormx table structure
// declarations for them.
//
//	ormxgen -config ormx.yaml -table admins -table admin_settings -o schema
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arllen133/ormx"
	"github.com/arllen133/ormx/cmd/ormxgen/generator"
	"github.com/arllen133/ormx/config"
)

type tableList []string

func (l *tableList) String() string { return strings.Join(*l, ",") }

func (l *tableList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var tables tableList
	configPath := flag.String("config", "", "config file (default: ormx.yaml in . or $HOME/.ormx)")
	schema := flag.String("schema", "", "database schema (default: public on PostgreSQL, current database on MySQL)")
	outDir := flag.String("o", ".", "output directory")
	pkg := flag.String("package", "", "package name of generated files (default: output directory name)")
	flag.Var(&tables, "table", "table to describe, repeatable")
	flag.Parse()

	if len(tables) == 0 {
		log.Fatal("at least one -table is required")
	}
	if *pkg == "" {
		abs, err := filepath.Abs(*outDir)
		if err != nil {
			log.Fatalf("failed to resolve output directory: %v", err)
		}
		*pkg = filepath.Base(abs)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	session, err := ormx.Open(cfg)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer session.Close()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	describer := ormx.NewInformationSchemaDescriber(session)
	ctx := context.Background()
	for _, table := range tables {
		fmt.Printf("Describing %s...\n", table)
		desc, err := describer.DescribeTable(ctx, table, *schema)
		if err != nil {
			log.Fatalf("failed to describe %s: %v", table, err)
		}
		src, err := generator.Render(desc, generator.Options{Package: *pkg})
		if err != nil {
			log.Fatalf("failed to render %s: %v", table, err)
		}
		path := filepath.Join(*outDir, table+"_structure.go")
		if err := os.WriteFile(path, src, 0o644); err != nil {
			log.Fatalf("failed to write %s: %v", path, err)
		}
	}

	fmt.Println("Done.")
}
