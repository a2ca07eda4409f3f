package secret

import (
	"os"
	"strings"
	"sync"
)

// EnvStore resolves secrets from environment variables named
// LINKBIO_SECRET_<KEY>, with the key upper-cased and non-alphanumerics
// turned into underscores. Set only affects this process.
type EnvStore struct {
	mu        sync.Mutex
	overrides map[string][]byte
}

func NewEnvStore() *EnvStore {
	return &EnvStore{overrides: map[string][]byte{}}
}

// EnvName returns the variable consulted for key.
func EnvName(key string) string {
	var sb strings.Builder
	sb.WriteString("LINKBIO_SECRET_")
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	e.mu.Lock()
	v, ok := e.overrides[key]
	e.mu.Unlock()
	if ok {
		return v, nil
	}
	if v := os.Getenv(EnvName(key)); v != "" {
		return []byte(v), nil
	}
	return nil, nil
}

func (e *EnvStore) Set(key string, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overrides[key] = append([]byte(nil), value...)
	return nil
}

func (e *EnvStore) Delete(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.overrides, key)
	return nil
}
