package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mikependon/repodb"
	"github.com/mikependon/repodb/compiler/gen"
	"github.com/mikependon/repodb/config"
	"github.com/mikependon/repodb/dialect"
	"github.com/mikependon/repodb/schema"
	"github.com/mikependon/repodb/statement"
)

const usage = `usage: repodb [flags] <command> [args]

commands:
  fields <table>...            print the columns of the tables
  sql <operation> <table>      print the statement of an operation
  gen <table>...               generate entity structs for the tables

flags:
`

// globals are the flags shared by every command.
type globals struct {
	config  string
	dialect string
	dsn     string
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var g globals
	fs := flag.NewFlagSet("repodb", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&g.config, "config", "", "YAML configuration file")
	fs.StringVar(&g.dialect, "dialect", "", "dialect name (sqlserver, mysql, postgres, sqlite)")
	fs.StringVar(&g.dsn, "dsn", "", "data source name, overrides the configuration")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "fields":
		return runFields(ctx, g, rest, stdout)
	case "sql":
		return runSQL(g, rest, stdout)
	case "gen":
		return runGen(ctx, g, rest, stdout)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// loadConfig builds the configuration from the flags when a DSN is given,
// and from the configuration file and the environment otherwise.
func (g globals) loadConfig() (config.Config, error) {
	if g.dsn == "" {
		cfg, err := config.Load(g.config)
		if err != nil {
			return cfg, err
		}
		if g.dialect != "" {
			cfg.Dialect = dialect.Normalize(g.dialect)
		}
		return cfg, nil
	}
	cfg := config.Config{Dialect: g.dialect, DSN: g.dsn}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

func (g globals) open(ctx context.Context) (*repodb.DB, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return repodb.OpenConfig(ctx, cfg)
}

func tableFields(ctx context.Context, db *repodb.DB, tables []string) ([]gen.Table, error) {
	out := make([]gen.Table, 0, len(tables))
	for _, name := range tables {
		fields, err := db.Fields(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, gen.Table{Name: name, Fields: fields})
	}
	return out, nil
}

func runFields(ctx context.Context, g globals, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("fields: missing table")
	}
	db, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	tables, err := tableFields(ctx, db, args)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	for _, t := range tables {
		fmt.Fprintf(w, "%s\n", t.Name)
		for _, f := range t.Fields {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", f.Name, f.Type, f.GoType(db.Dialect()), flags(f))
		}
	}
	return w.Flush()
}

func flags(f *schema.Field) string {
	var fl []string
	if f.IsPrimary {
		fl = append(fl, "primary")
	}
	if f.IsIdentity {
		fl = append(fl, "identity")
	}
	if f.IsNullable {
		fl = append(fl, "nullable")
	}
	return strings.Join(fl, ",")
}

// runSQL prints the statement the builder of a dialect renders for an
// operation. No connection is made.
func runSQL(g globals, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sql", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fields := fs.String("fields", "", "comma separated columns")
	primary := fs.String("primary", "", "primary key column")
	identity := fs.Bool("identity", false, "the primary key is an identity")
	qualifiers := fs.String("qualifiers", "", "comma separated qualifier columns")
	batch := fs.Int("batch", 1, "rows per statement")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("sql: expected <operation> <table>")
	}
	name := g.dialect
	if name == "" {
		name = dialect.SQLServer
	}
	b, ok := statement.Get(name)
	if !ok {
		return fmt.Errorf("sql: unknown dialect %q", name)
	}
	req := sqlRequest{
		table:      fs.Arg(1),
		fields:     split(*fields),
		primary:    *primary,
		qualifiers: split(*qualifiers),
		batch:      *batch,
	}
	if *identity {
		req.identity = *primary
	}
	text, err := req.build(b, strings.ToLower(fs.Arg(0)))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, text)
	return err
}

type sqlRequest struct {
	table      string
	fields     []string
	primary    string
	identity   string
	qualifiers []string
	batch      int
}

func (r sqlRequest) build(b statement.Builder, op string) (string, error) {
	switch op {
	case "query":
		return b.CreateQuery(&statement.QueryRequest{Table: r.table, Fields: r.fields})
	case "count":
		return b.CreateCountAll(&statement.CountRequest{Table: r.table})
	case "insert":
		return b.CreateInsertAll(&statement.InsertRequest{Table: r.table, Fields: r.fields,
			Primary: r.primary, Identity: r.identity, BatchSize: r.batch})
	case "merge":
		return b.CreateMergeAll(&statement.MergeRequest{Table: r.table, Fields: r.fields,
			Qualifiers: r.qualifiers, Primary: r.primary, Identity: r.identity, BatchSize: r.batch})
	case "update":
		return b.CreateUpdateAll(&statement.UpdateRequest{Table: r.table, Fields: r.fields,
			Qualifiers: r.qualifiers, Primary: r.primary, Identity: r.identity, BatchSize: r.batch})
	case "delete":
		return b.CreateDeleteAll(&statement.DeleteRequest{Table: r.table})
	case "truncate":
		return b.CreateTruncate(&statement.TruncateRequest{Table: r.table})
	default:
		return "", fmt.Errorf("sql: unknown operation %q", op)
	}
}

func split(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func runGen(ctx context.Context, g globals, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	fs.SetOutput(stdout)
	out := fs.String("out", "models", "output directory")
	pkg := fs.String("package", "models", "package name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("gen: missing table")
	}
	db, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	tables, err := tableFields(ctx, db, fs.Args())
	if err != nil {
		return err
	}
	paths, err := gen.Generate(ctx, tables,
		gen.WithTarget(*out), gen.WithPackage(*pkg), gen.WithDialect(db.Dialect()))
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}
	return nil
}
