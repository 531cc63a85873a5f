// Package profile holds the device-local preferences file and resolves which
// owner's task collection is active.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// ActiveChildKey holds the username of the selected child; absent means the
// account itself.
const ActiveChildKey = "activeChild"

// Prefs is a small string key-value store persisted as a JSON object.
type Prefs struct {
	path     string
	lockPath string
}

// NewPrefs returns a store backed by path. The file is created on first write.
func NewPrefs(path string) *Prefs {
	return &Prefs{path: path, lockPath: path + ".lock"}
}

func (p *Prefs) Get(key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := p.withLock(syscall.LOCK_SH, func(data map[string]string) (bool, error) {
		value, ok = data[key]
		return false, nil
	})
	return value, ok, err
}

func (p *Prefs) Set(key, value string) error {
	return p.withLock(syscall.LOCK_EX, func(data map[string]string) (bool, error) {
		data[key] = value
		return true, nil
	})
}

// Delete removes key. Deleting a missing key is not an error.
func (p *Prefs) Delete(key string) error {
	return p.withLock(syscall.LOCK_EX, func(data map[string]string) (bool, error) {
		if _, ok := data[key]; !ok {
			return false, nil
		}
		delete(data, key)
		return true, nil
	})
}

// withLock runs fn under a flock on the sidecar lock file. fn reports whether
// data changed and must be written back.
func (p *Prefs) withLock(how int, fn func(map[string]string) (bool, error)) error {
	if err := os.MkdirAll(filepath.Dir(p.lockPath), 0o750); err != nil {
		return fmt.Errorf("create prefs directory: %w", err)
	}
	lock, err := os.OpenFile(p.lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer lock.Close()
	if err := syscall.Flock(int(lock.Fd()), how); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer syscall.Flock(int(lock.Fd()), syscall.LOCK_UN) //nolint:errcheck

	data, err := p.read()
	if err != nil {
		return err
	}
	changed, err := fn(data)
	if err != nil || !changed {
		return err
	}
	return p.write(data)
}

func (p *Prefs) read() (map[string]string, error) {
	data := make(map[string]string)
	content, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return nil, fmt.Errorf("read prefs file: %w", err)
	}
	if len(content) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("parse prefs file: %w", err)
	}
	return data, nil
}

func (p *Prefs) write(data map[string]string) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
