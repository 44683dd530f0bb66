package main

import (
	"fmt"
	"io"

	"github.com/rpggio/orgchat/internal/config"
	"github.com/rpggio/orgchat/internal/repository"
	"github.com/rpggio/orgchat/internal/sqlite"
)

// openKV opens the session store named by path. config.MemoryStorage keeps
// everything in process memory.
func openKV(path string) (repository.KVStore, io.Closer, error) {
	if path == config.MemoryStorage {
		return repository.NewMemoryKV(), nopCloser{}, nil
	}
	if err := ensureParentDir(path); err != nil {
		return nil, nil, fmt.Errorf("prepare storage path: %w", err)
	}

	db, err := sqlite.New(path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return sqlite.NewKVRepository(db), db, nil
}
