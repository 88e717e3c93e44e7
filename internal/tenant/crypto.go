package tenant

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var errEmptyKey = errors.New("encryption key is empty")

// Decrypt reverses Encrypt: base64-decode, then XOR every byte against key
// repeated cyclically.
func Decrypt(ciphertext, key string) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return "", fmt.Errorf("decoding credential: %w", err)
	}
	return string(xorBytes(raw, []byte(key))), nil
}

// Encrypt XORs plaintext against key and base64-encodes the result. This is
// the format admin tooling stores in bot_credentials.
func Encrypt(plaintext, key string) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}
	return base64.StdEncoding.EncodeToString(xorBytes([]byte(plaintext), []byte(key))), nil
}

func xorBytes(data, key []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}
