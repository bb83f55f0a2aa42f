package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdev12/courtside/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

func setupDatabase(ctx context.Context, applySchema bool) (*sql.DB, error) {
	dbConfig := dbconfig.NewConfigFromEnv()

	database, err := dbConfig.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if applySchema {
		if _, err := database.ExecContext(ctx, dbconfig.Schema); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
		log.Info().Msg("database schema applied")
	}

	log.Info().
		Str("user", dbConfig.User).
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Int("max_open_conns", dbConfig.MaxOpenConns).
		Msg("connected to database")
	return database, nil
}
