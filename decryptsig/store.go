package decryptsig

import (
	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/storage"
)

// Store is a durable string key-value store.
type Store interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// DBStore keeps items in a storage.DB under a fixed prefix.
type DBStore struct {
	db     storage.DB
	prefix string
}

// NewDBStore wraps db. Items are stored under "decsig/".
func NewDBStore(db storage.DB) *DBStore {
	return &DBStore{db: db, prefix: "decsig/"}
}

func (s *DBStore) GetItem(key string) (string, bool, error) {
	v, err := s.db.Get([]byte(s.prefix + key))
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get %s", key)
	}
	return string(v), true, nil
}

func (s *DBStore) SetItem(key, value string) error {
	return errors.Wrapf(s.db.Set([]byte(s.prefix+key), []byte(value)), "set %s", key)
}

func (s *DBStore) RemoveItem(key string) error {
	return errors.Wrapf(s.db.Delete([]byte(s.prefix+key)), "remove %s", key)
}
