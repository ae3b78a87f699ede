// Command repodb inspects database tables and generates repodb entities.
//
//	repodb [-config file | -dialect name -dsn dsn] fields <table>...
//	repodb [-dialect name] sql [-fields a,b -primary a -identity] <operation> <table>
//	repodb [-config file | -dialect name -dsn dsn] gen [-out dir -package name] <table>...
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("repodb: ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}
