package state

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"leasex/storage"
)

// Manager provides typed accessors over the key-value store. Writes are
// buffered in an overlay until Commit so a failed operation can be dropped
// with Discard and leave the database untouched.
type Manager struct {
	db      storage.Database
	pending map[string][]byte
	deleted map[string]struct{}
}

// NewManager creates a state manager reading through to db.
func NewManager(db storage.Database) *Manager {
	return &Manager{
		db:      db,
		pending: make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) get(hashed []byte) ([]byte, error) {
	k := string(hashed)
	if value, ok := m.pending[k]; ok {
		return value, nil
	}
	if _, ok := m.deleted[k]; ok {
		return nil, nil
	}
	value, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (m *Manager) set(hashed []byte, value []byte) {
	k := string(hashed)
	delete(m.deleted, k)
	m.pending[k] = value
}

func (m *Manager) remove(hashed []byte) {
	k := string(hashed)
	delete(m.pending, k)
	m.deleted[k] = struct{}{}
}

// Dirty reports whether the overlay holds uncommitted writes.
func (m *Manager) Dirty() bool {
	return len(m.pending) > 0 || len(m.deleted) > 0
}

// Commit flushes the overlay to the database in a single batch. Keys are
// written in sorted order so the batch content is deterministic.
func (m *Manager) Commit() error {
	if !m.Dirty() {
		return nil
	}
	keys := make([]string, 0, len(m.pending)+len(m.deleted))
	for k := range m.pending {
		keys = append(keys, k)
	}
	for k := range m.deleted {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := m.db.NewBatch()
	for _, k := range keys {
		if value, ok := m.pending[k]; ok {
			batch.Put([]byte(k), value)
			continue
		}
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.Discard()
	return nil
}

// Discard drops every buffered write.
func (m *Manager) Discard() {
	m.pending = make(map[string][]byte)
	m.deleted = make(map[string]struct{})
}

// KVPut stores the RLP encoding of value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.set(kvKey(key), encoded)
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes key from state.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.remove(kvKey(key))
	return nil
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	list, err := m.loadList(key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

// KVRemove drops value from the list stored under key. Missing values are
// ignored.
func (m *Manager) KVRemove(key []byte, value []byte) error {
	list, err := m.loadList(key)
	if err != nil {
		return err
	}
	filtered := list[:0]
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			continue
		}
		filtered = append(filtered, existing)
	}
	if len(filtered) == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, filtered)
}

func (m *Manager) loadList(key []byte) ([][]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("kv: key must not be empty")
	}
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// KVGetList decodes the list stored under key into out, which must point to
// a slice. Missing keys yield an empty slice.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.get(kvKey(key))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}

// nextSequence returns the counter stored under key and advances it. The first
// call yields start.
func (m *Manager) nextSequence(key []byte, start uint64) (uint64, error) {
	var next uint64
	ok, err := m.KVGet(key, &next)
	if err != nil {
		return 0, err
	}
	if !ok {
		next = start
	}
	if err := m.KVPut(key, next+1); err != nil {
		return 0, err
	}
	return next, nil
}
