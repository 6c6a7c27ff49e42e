// Package session はサーバー側セッションストアを提供します。
// セッション本体はKV抽象の背後に保存され、バックエンド（インメモリ/Redis）を
// ハンドラーに触れずに差し替えられます。
package session

import (
	"context"
	"sync"
	"time"
)

// KV はセッションIDをキーとする最小限の保存操作です。
type KV interface {
	// Get はidに対応するデータを返します。存在しない場合は nil, nil を返します。
	Get(ctx context.Context, id string) ([]byte, error)
	// Set はidに対応するデータをTTL付きで保存します。
	Set(ctx context.Context, id string, data []byte, ttl time.Duration) error
	// Delete はidに対応するデータを削除します。存在しなくてもエラーにしません。
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryKV はプロセス内メモリのKV実装です。
// サーバー再起動でセッションは失われます（開発・単一プロセス運用向け）。
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryKV は MemoryKV を作成します。
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]memoryEntry)}
}

// Get はidに対応するデータを返します。期限切れのエントリは削除して nil を返します。
func (m *MemoryKV) Get(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.entries, id)
		return nil, nil
	}
	return entry.data, nil
}

// Set はデータを保存します。ttl <= 0 の場合は無期限です。
func (m *MemoryKV) Set(_ context.Context, id string, data []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	m.entries[id] = memoryEntry{data: data, expiresAt: expiresAt}

	// ついでに期限切れエントリを間引く
	now := time.Now()
	for key, e := range m.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Delete はエントリを削除します。
func (m *MemoryKV) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}
