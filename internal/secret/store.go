package secret

import "errors"

// SecretStore holds credentials for the document-store backends so that the
// YAML config only names a key, never the password itself.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Chain reads from each store in order and returns the first non-empty
// value. Writes go to the first store. Stores reporting ErrUnavailable are
// skipped.
type Chain []SecretStore

func (c Chain) Get(key string) ([]byte, error) {
	for _, s := range c {
		v, err := s.Get(key)
		if errors.Is(err, ErrUnavailable) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(v) > 0 {
			return v, nil
		}
	}
	return nil, nil
}

func (c Chain) Set(key string, value []byte) error {
	if len(c) == 0 {
		return nil
	}
	return c[0].Set(key, value)
}

func (c Chain) Delete(key string) error {
	for _, s := range c {
		if err := s.Delete(key); err != nil && !errors.Is(err, ErrUnavailable) {
			return err
		}
	}
	return nil
}
