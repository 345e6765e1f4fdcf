package database

import (
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every pending embedded migration.
func Migrate(db *sqlx.DB, logger *zap.Logger) error {
	goose.SetBaseFS(migrations)
	if logger != nil {
		goose.SetLogger(zapGooseLogger{l: logger.Sugar()})
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

type zapGooseLogger struct {
	l *zap.SugaredLogger
}

func (z zapGooseLogger) Fatalf(format string, v ...interface{}) { z.l.Fatalf(format, v...) }
func (z zapGooseLogger) Printf(format string, v ...interface{}) { z.l.Infof(format, v...) }
