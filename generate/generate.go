// Package generate writes model and migration source files for the record
// and migrate packages.
package generate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dave/jennifer/jen"
)

const (
	recordPkg  = "github.com/gopsql/record"
	migratePkg = "github.com/gopsql/record/migrate"

	DefaultModelsDir       = "models"
	DefaultModelsPackage   = "models"
	DefaultMigrationsDir   = "migrations"
	DefaultMigrationsPkg   = "migrations"
	versionTimestampLayout = "20060102150405"
)

var (
	ErrFileExists   = errors.New("generate: file already exists")
	ErrInvalidField = errors.New("generate: invalid field")
	ErrNoTable      = errors.New("generate: could not determine the table name, specify it with table:<name>")
	ErrNoActions    = errors.New("generate: no valid fields provided for migration")
	ErrInvalidName  = errors.New("generate: invalid name")
)

// checkWritable fails with ErrFileExists when path exists and force is not
// set.
func checkWritable(path string, force bool) error {
	if force {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s, use --force to overwrite", ErrFileExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// writeFile renders f to path, creating the directory if needed.
func writeFile(f *jen.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return f.Render(out)
}

func version(now func() time.Time, snake string) string {
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format(versionTimestampLayout) + "_" + snake
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
