package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrUnavailable is returned by a store whose backend does not exist on
// this machine. Chain skips such stores.
var ErrUnavailable = errors.New("secret store unavailable")

// DefaultKeychainService is the keychain service the store passwords are
// filed under.
const DefaultKeychainService = "linkbio-store"

// exitNotFound is the `security` exit status for a missing item.
const exitNotFound = 44

// Runner executes the `security` tool and returns its stdout and exit
// status. It returns ErrUnavailable when the tool is not installed.
type Runner func(args ...string) (out []byte, code int, err error)

// KeychainStore keeps store passwords in the macOS Keychain through the
// `security` CLI. On other systems every call reports ErrUnavailable.
type KeychainStore struct {
	service string
	run     Runner
}

type KeychainOption func(*KeychainStore)

// WithService files items under a service other than DefaultKeychainService.
func WithService(name string) KeychainOption {
	return func(k *KeychainStore) { k.service = name }
}

// WithRunner replaces the `security` invocation.
func WithRunner(r Runner) KeychainOption {
	return func(k *KeychainStore) { k.run = r }
}

func NewKeychainStore(opts ...KeychainOption) *KeychainStore {
	k := &KeychainStore{service: DefaultKeychainService, run: runSecurity}
	for _, o := range opts {
		o(k)
	}
	return k
}

func runSecurity(args ...string) ([]byte, int, error) {
	path, err := exec.LookPath("security")
	if err != nil {
		return nil, -1, fmt.Errorf("%w: security: %v", ErrUnavailable, err)
	}
	var stderr strings.Builder
	cmd := exec.Command(path, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, exitErr.ExitCode(), fmt.Errorf("security %s: %s", args[0], strings.TrimSpace(stderr.String()))
	}
	if err != nil {
		return out, -1, err
	}
	return out, 0, nil
}

// Set stores value under key, replacing an existing item.
func (k *KeychainStore) Set(key string, value []byte) error {
	_, _, err := k.run("add-generic-password", "-a", key, "-s", k.service, "-w", string(value), "-U")
	if err != nil {
		return fmt.Errorf("keychain set %s: %w", key, err)
	}
	return nil
}

// Get returns the item for key, or nil without error when there is none.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, code, err := k.run("find-generic-password", "-a", key, "-s", k.service, "-w")
	if code == exitNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keychain get %s: %w", key, err)
	}
	return []byte(strings.TrimSpace(string(out))), nil
}

// Delete removes the item for key. A missing item is not an error.
func (k *KeychainStore) Delete(key string) error {
	_, code, err := k.run("delete-generic-password", "-a", key, "-s", k.service)
	if code == exitNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}
