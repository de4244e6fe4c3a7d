package generation

import (
	"fmt"
	"sync"
)

// KeyPool хранит пул API ключей и ротирует их при исчерпании квоты.
// Ключи передаются при создании, сервис не читает глобальное окружение.
type KeyPool struct {
	mu   sync.Mutex
	keys []string
	idx  int
}

// NewKeyPool создает пул ключей; пустой пул — ошибка конфигурации
func NewKeyPool(keys []string) (*KeyPool, error) {
	filtered := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			filtered = append(filtered, k)
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("generation key pool requires at least one API key")
	}
	return &KeyPool{keys: filtered}, nil
}

// Pick возвращает текущий ключ пула
func (p *KeyPool) Pick() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keys[p.idx]
}

// Rotate переключает пул на следующий ключ и возвращает его.
// После последнего ключа пул возвращается к первому.
func (p *KeyPool) Rotate() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idx = (p.idx + 1) % len(p.keys)
	return p.keys[p.idx]
}

// Size возвращает число ключей в пуле
func (p *KeyPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}
