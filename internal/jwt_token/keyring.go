package jwttoken

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const keySize = 32

// KeyPath is where the HS256 key for purpose lives under dir.
func KeyPath(dir string, purpose Purpose) string {
	return filepath.Join(dir, "hmac", string(purpose)+".key")
}

// LoadOrCreateKeys reads one base64url key per purpose from dir/hmac,
// generating any that are missing.
func LoadOrCreateKeys(dir string) (map[Purpose][]byte, error) {
	if err := os.MkdirAll(filepath.Join(dir, "hmac"), 0o700); err != nil {
		return nil, fmt.Errorf("create hmac key dir: %w", err)
	}
	keys := make(map[Purpose][]byte, len(Purposes))
	for _, p := range Purposes {
		key, err := loadOrCreate(KeyPath(dir, p))
		if err != nil {
			return nil, fmt.Errorf("%s key: %w", p, err)
		}
		keys[p] = key
	}
	return keys, nil
}

func loadOrCreate(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		key, decErr := base64.URLEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if decErr != nil {
			return nil, fmt.Errorf("decode %s: %w", path, decErr)
		}
		if len(key) < keySize {
			return nil, fmt.Errorf("%s holds %d bytes, want %d", path, len(key), keySize)
		}
		return key, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := os.WriteFile(path, []byte(base64.URLEncoding.EncodeToString(key)), 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return key, nil
}
