package oidc

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
)

// KeyBits is the modulus size for newly generated signing keys.
const KeyBits = 4096

// ErrNoKeys is returned when the key directory holds no signing keys.
var ErrNoKeys = errors.New("no oidc signing keys loaded")

// KeySet holds the RSA signing keys, indexed by key id. Key ids are the unix
// timestamp the key was created at, so the highest id is the newest key.
type KeySet struct {
	keys map[int64]*rsa.PrivateKey
	kids []int64
}

func NewKeySet(keys map[int64]*rsa.PrivateKey) (*KeySet, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	ks := &KeySet{keys: keys, kids: make([]int64, 0, len(keys))}
	for kid := range keys {
		ks.kids = append(ks.kids, kid)
	}
	sort.Slice(ks.kids, func(i, j int) bool { return ks.kids[i] < ks.kids[j] })
	return ks, nil
}

// Dir is where signing keys live under the key root.
func Dir(root string) string {
	return filepath.Join(root, "oidc")
}

// LoadKeys reads every <kid>.pem file under Dir(root). Both PKCS#1 and
// PKCS#8 encodings are accepted.
func LoadKeys(root string) (*KeySet, error) {
	entries, err := os.ReadDir(Dir(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoKeys
		}
		return nil, fmt.Errorf("read key directory: %w", err)
	}
	keys := make(map[int64]*rsa.PrivateKey, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".pem" {
			continue
		}
		kid, err := strconv.ParseInt(strings.TrimSuffix(e.Name(), ".pem"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("key file %s: name must be a unix timestamp", e.Name())
		}
		raw, err := os.ReadFile(filepath.Join(Dir(root), e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read key %s: %w", e.Name(), err)
		}
		key, err := ParsePrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", e.Name(), err)
		}
		keys[kid] = key
	}
	return NewKeySet(keys)
}

func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return key, nil
}

// GenerateKey writes a new PKCS#1 key named after now and returns its id.
func GenerateKey(root string, now time.Time) (int64, error) {
	return generateKey(root, now, KeyBits)
}

func generateKey(root string, now time.Time, bits int) (int64, error) {
	if err := os.MkdirAll(Dir(root), 0o700); err != nil {
		return 0, fmt.Errorf("create key directory: %w", err)
	}
	// Key ids must stay unique when rotating twice within a second.
	kid := now.Unix()
	path := filepath.Join(Dir(root), strconv.FormatInt(kid, 10)+".pem")
	for {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			break
		}
		kid++
		path = filepath.Join(Dir(root), strconv.FormatInt(kid, 10)+".pem")
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return 0, fmt.Errorf("generate rsa key: %w", err)
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return 0, fmt.Errorf("write key: %w", err)
	}
	return kid, nil
}

// EnsureKey generates a first key when none exist. It reports whether a key
// was created.
func EnsureKey(root string, now time.Time) (bool, error) {
	if _, err := LoadKeys(root); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNoKeys) {
		return false, err
	}
	if _, err := GenerateKey(root, now); err != nil {
		return false, err
	}
	return true, nil
}

// Signing returns the newest key and its id.
func (ks *KeySet) Signing() (string, *rsa.PrivateKey) {
	kid := ks.kids[len(ks.kids)-1]
	return strconv.FormatInt(kid, 10), ks.keys[kid]
}

// JWKS publishes the public half of every loaded key.
func (ks *KeySet) JWKS() jose.JSONWebKeySet {
	set := jose.JSONWebKeySet{Keys: make([]jose.JSONWebKey, 0, len(ks.kids))}
	for _, kid := range ks.kids {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       &ks.keys[kid].PublicKey,
			KeyID:     strconv.FormatInt(kid, 10),
			Algorithm: string(jose.RS256),
			Use:       "sig",
		})
	}
	return set
}
