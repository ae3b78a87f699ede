package gen

import (
	"go/token"
	"runtime"

	"github.com/mikependon/repodb/dialect"
)

// DefaultHeader is written at the top of every generated file.
const DefaultHeader = "Code generated by repodb. DO NOT EDIT."

// Config holds the generation settings.
type Config struct {
	// Package is the name of the generated package.
	Package string
	// Target is the output directory.
	Target string
	// Header is the comment written at the top of each file.
	Header string
	// Dialect resolves the Go types of the columns.
	Dialect string
	// Workers bounds the files generated in parallel.
	Workers int
}

// Option configures code generation.
type Option func(*Config) error

func defaultConfig() *Config {
	return &Config{
		Package: "models",
		Target:  ".",
		Header:  DefaultHeader,
		Dialect: dialect.SQLServer,
		Workers: runtime.GOMAXPROCS(0),
	}
}

// WithPackage sets the package name of the generated files.
func WithPackage(pkg string) Option {
	return func(c *Config) error {
		if !token.IsIdentifier(pkg) {
			return NewConfigError("Package", pkg, "package must be a Go identifier")
		}
		c.Package = pkg
		return nil
	}
}

// WithTarget sets the output directory.
func WithTarget(dir string) Option {
	return func(c *Config) error {
		if dir == "" {
			return NewConfigError("Target", nil, "target directory cannot be empty")
		}
		c.Target = dir
		return nil
	}
}

// WithHeader sets the file header comment. An empty header omits it.
func WithHeader(header string) Option {
	return func(c *Config) error {
		c.Header = header
		return nil
	}
}

// WithDialect sets the dialect whose type names the columns use.
func WithDialect(name string) Option {
	return func(c *Config) error {
		s, ok := dialect.Get(name)
		if !ok {
			return NewConfigError("Dialect", name, "unknown dialect")
		}
		c.Dialect = s.Name
		return nil
	}
}

// WithWorkers sets the number of files generated in parallel.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return NewConfigError("Workers", n, "workers must be positive")
		}
		c.Workers = n
		return nil
	}
}
