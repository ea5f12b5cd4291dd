package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v4"
)

// Key namespace:
//
//	snap:<server>:<time>   JSON Record, <time> sortable (see timeKey)
const prefixSnapshot = "snap:"

func keySnapshot(server, at string) []byte {
	return []byte(prefixSnapshot + server + ":" + at)
}

func keyServerPrefix(server string) []byte {
	if server == "" {
		return []byte(prefixSnapshot)
	}
	return []byte(prefixSnapshot + server + ":")
}

// BadgerStore keeps every exported snapshot, so history survives restarts.
type BadgerStore struct {
	db     *badgerdb.DB
	logger *slog.Logger
}

// OpenBadger opens or creates a snapshot database in dir.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = badgerdb.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("export: open badger at %q: %w", dir, err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// Export stores rec under its server name and snapshot time.
func (s *BadgerStore) Export(_ context.Context, rec Record) error {
	data, err := encode(rec)
	if err != nil {
		return err
	}
	key := keySnapshot(rec.Server, timeKey(rec.Snapshot.Taken))
	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("export: store snapshot: %w", err)
	}
	s.logger.Debug("Snapshot stored", "key", string(key))
	return nil
}

// List returns up to limit records for server, newest first. An empty server
// lists every server; limit <= 0 means no limit.
func (s *BadgerStore) List(ctx context.Context, server string, limit int) ([]Record, error) {
	prefix := keyServerPrefix(server)
	var out []Record

	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts from the largest key with the prefix.
		seek := append(append([]byte(nil), prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export: list snapshots: %w", err)
	}
	return out, nil
}

// Latest returns the newest record for server.
func (s *BadgerStore) Latest(ctx context.Context, server string) (Record, bool, error) {
	recs, err := s.List(ctx, server, 1)
	if err != nil || len(recs) == 0 {
		return Record{}, false, err
	}
	return recs[0], true, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
