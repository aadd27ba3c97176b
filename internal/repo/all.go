// Package repo is used for performing database repository operations.
package repo

import (
	"database/sql"

	"grabarr/internal/contracts"
)

// Store holds the database variable and sub-stores.
type Store struct {
	db           *sql.DB
	historyStore *HistoryStore
}

// InitStores injects databases into the store methods.
func InitStores(db *sql.DB) *Store {
	return &Store{
		db:           db,
		historyStore: GetHistoryStore(db),
	}
}

// HistoryStore with pointer receiver.
func (s *Store) HistoryStore() contracts.HistoryStore {
	return s.historyStore
}
