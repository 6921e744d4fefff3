// Package kv is an embedded, single-process store on top of LevelDB. It
// offers what the repositories need from a relational store: tables of JSON
// rows addressed by autoincrement ids, unique secondary indexes, and atomic
// transactions that serialise writers.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	ErrNotFound  = errors.New("kv: not found")
	ErrKeyExists = errors.New("kv: unique key already exists")
)

// handle is the subset of operations shared by *leveldb.DB and
// *leveldb.Transaction.
type handle interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
	Has(key []byte, ro *opt.ReadOptions) (bool, error)
	Put(key, value []byte, wo *opt.WriteOptions) error
	Delete(key []byte, wo *opt.WriteOptions) error
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator
}

type txKey struct{}

type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) a LevelDB database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens a store backed by memory only.
func OpenMemory() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open memory leveldb: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithinTx runs fn inside a LevelDB transaction. Only one transaction is
// open at a time, so concurrent writers queue behind each other. A nested
// call reuses the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tr, err := s.db.OpenTransaction()
	if err != nil {
		return fmt.Errorf("open transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tr.Discard()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tr)); err != nil {
		tr.Discard()
		return err
	}
	if err := tr.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func txFromContext(ctx context.Context) *leveldb.Transaction {
	tr, _ := ctx.Value(txKey{}).(*leveldb.Transaction)
	return tr
}

func (s *Store) reader(ctx context.Context) handle {
	if tr := txFromContext(ctx); tr != nil {
		return tr
	}
	return s.db
}

// write runs fn against the current transaction, opening one when the
// context carries none.
func (s *Store) write(ctx context.Context, fn func(h handle) error) error {
	if tr := txFromContext(ctx); tr != nil {
		return fn(tr)
	}
	return s.WithinTx(ctx, func(ctx context.Context) error {
		return fn(txFromContext(ctx))
	})
}

func rowKey(table string, id int64) []byte {
	return []byte(fmt.Sprintf("t/%s/%020d", table, id))
}

func seqKey(table string) []byte {
	return []byte("seq/" + table)
}

func indexKey(index, key string) []byte {
	return []byte("idx/" + index + "/" + key)
}

// NextID allocates the next autoincrement id of table, starting at 1.
func (s *Store) NextID(ctx context.Context, table string) (int64, error) {
	var next int64
	err := s.write(ctx, func(h handle) error {
		raw, err := h.Get(seqKey(table), nil)
		switch {
		case errors.Is(err, leveldb.ErrNotFound):
			next = 1
		case err != nil:
			return err
		default:
			cur, err := strconv.ParseInt(string(raw), 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt sequence %s: %w", table, err)
			}
			next = cur + 1
		}
		return h.Put(seqKey(table), []byte(strconv.FormatInt(next, 10)), nil)
	})
	if err != nil {
		return 0, fmt.Errorf("next id %s: %w", table, err)
	}
	return next, nil
}

// Put stores v as the JSON row id of table.
func (s *Store) Put(ctx context.Context, table string, id int64, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%d: %w", table, id, err)
	}
	return s.write(ctx, func(h handle) error {
		return h.Put(rowKey(table, id), data, nil)
	})
}

// Get decodes row id of table into v, or returns ErrNotFound.
func (s *Store) Get(ctx context.Context, table string, id int64, v interface{}) error {
	raw, err := s.reader(ctx).Get(rowKey(table, id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s/%d: %w", table, id, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s/%d: %w", table, id, err)
	}
	return nil
}

// Scan calls fn with the raw JSON of every row of table in id order.
func (s *Store) Scan(ctx context.Context, table string, fn func(raw []byte) error) error {
	iter := s.reader(ctx).NewIterator(util.BytesPrefix([]byte("t/"+table+"/")), nil)
	defer iter.Release()
	for iter.Next() {
		// The iterator reuses its buffer between calls.
		raw := append([]byte(nil), iter.Value()...)
		if err := fn(raw); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("scan %s: %w", table, err)
	}
	return nil
}

// PutUnique claims key in index for id, failing with ErrKeyExists when the
// key is already taken.
func (s *Store) PutUnique(ctx context.Context, index, key string, id int64) error {
	return s.write(ctx, func(h handle) error {
		exists, err := h.Has(indexKey(index, key), nil)
		if err != nil {
			return err
		}
		if exists {
			return ErrKeyExists
		}
		return h.Put(indexKey(index, key), []byte(strconv.FormatInt(id, 10)), nil)
	})
}

// Lookup resolves key in index to the id stored by PutUnique.
func (s *Store) Lookup(ctx context.Context, index, key string) (int64, error) {
	raw, err := s.reader(ctx).Get(indexKey(index, key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup %s/%s: %w", index, key, err)
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt index %s/%s: %w", index, key, err)
	}
	return id, nil
}

// ScanIndex calls fn with the id of every entry of index whose key starts
// with prefix, in key order.
func (s *Store) ScanIndex(ctx context.Context, index, prefix string, fn func(id int64) error) error {
	iter := s.reader(ctx).NewIterator(util.BytesPrefix(indexKey(index, prefix)), nil)
	defer iter.Release()
	for iter.Next() {
		id, err := strconv.ParseInt(string(iter.Value()), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt index %s/%s: %w", index, iter.Key(), err)
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("scan index %s: %w", index, err)
	}
	return nil
}

// Ping reports whether the database is still open.
func (s *Store) Ping(context.Context) error {
	_, err := s.db.GetProperty("leveldb.num-files-at-level0")
	return err
}

// Stats returns LevelDB's own statistics table.
func (s *Store) Stats() interface{} {
	stats, err := s.db.GetProperty("leveldb.stats")
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return map[string]string{"leveldb": stats}
}
