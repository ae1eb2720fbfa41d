// Package backend opens a credentials.Store by name.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agendacontatos/agenda.go/pkg/constants"
	"github.com/agendacontatos/agenda.go/pkg/credentials"
	"github.com/agendacontatos/agenda.go/pkg/credentials/filestore"
	"github.com/agendacontatos/agenda.go/pkg/credentials/redisstore"
	"github.com/agendacontatos/agenda.go/pkg/credentials/sqlitestore"
)

const (
	Memory = "memory"
	File   = "file"
	SQLite = "sqlite"
	Redis  = "redis"
)

type Config struct {
	// Backend is one of Memory, File, SQLite or Redis. Empty means File.
	Backend string
	// Path is the file or database path. Empty uses DefaultPath.
	Path string

	RedisURL    string
	RedisPrefix string
}

// DefaultPath is <user config dir>/agenda/<name>.
func DefaultPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "agenda", name)
}

// Open returns the configured store. Stores holding connections also
// implement io.Closer.
func Open(ctx context.Context, cfg Config) (credentials.Store, error) {
	switch cfg.Backend {
	case Memory:
		return credentials.NewMemory(), nil
	case "", File:
		path := cfg.Path
		if path == "" {
			path = DefaultPath("credentials.cbor")
		}
		return filestore.New(path), nil
	case SQLite:
		path := cfg.Path
		if path == "" {
			path = DefaultPath("agenda.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create credentials dir: %w", err)
		}
		return sqlitestore.Open(path)
	case Redis:
		client, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return redisstore.New(client, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("%w: %q", constants.ErrUnknownBackend, cfg.Backend)
	}
}
