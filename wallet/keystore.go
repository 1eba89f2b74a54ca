// Package wallet provides key management and transaction signing helpers.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tolelom/indiechain/crypto"
	"golang.org/x/crypto/pbkdf2"
)

const (
	keystoreVersion = 1
	kdfIterations   = 210_000
	saltLen         = 16
)

// ErrWrongPassword is returned by LoadKey when the keystore cannot be
// decrypted with the given password.
var ErrWrongPassword = errors.New("wrong password or corrupted keystore")

// sealedKey is the on-disk keystore layout. Binary fields are hex strings.
type sealedKey struct {
	Version    int    `json:"version"`
	Address    string `json:"address"`
	PubKey     string `json:"pub_key"`
	Iterations int    `json:"kdf_iterations"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipher_text"`
}

// aead builds the AES-256-GCM cipher for password and salt.
func aead(password string, salt []byte, iterations int) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, iterations, 32, sha256.New)
	blk, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(blk)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

// SaveKey encrypts priv under password and writes it to path, readable by
// the owner only. Parent directories are created as needed.
func SaveKey(path, password string, priv crypto.PrivateKey) error {
	salt, err := randomBytes(saltLen)
	if err != nil {
		return err
	}
	gcm, err := aead(password, salt, kdfIterations)
	if err != nil {
		return err
	}
	nonce, err := randomBytes(gcm.NonceSize())
	if err != nil {
		return err
	}

	pub := priv.Public()
	sk := sealedKey{
		Version:    keystoreVersion,
		Address:    pub.Address(),
		PubKey:     pub.Hex(),
		Iterations: kdfIterations,
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		// pub key is authenticated so a swapped header fails to open
		CipherText: hex.EncodeToString(gcm.Seal(nil, nonce, priv, []byte(pub.Hex()))),
	}
	data, err := json.MarshalIndent(sk, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadKey reads and decrypts the keystore at path.
func LoadKey(path, password string) (crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sk sealedKey
	if err := json.Unmarshal(data, &sk); err != nil {
		return nil, fmt.Errorf("keystore %s: %w", path, err)
	}
	if sk.Version != keystoreVersion {
		return nil, fmt.Errorf("keystore %s: unsupported version %d", path, sk.Version)
	}

	var salt, nonce, sealed []byte
	for _, f := range []struct {
		dst *[]byte
		src string
	}{{&salt, sk.Salt}, {&nonce, sk.Nonce}, {&sealed, sk.CipherText}} {
		if *f.dst, err = hex.DecodeString(f.src); err != nil {
			return nil, fmt.Errorf("keystore %s: %w", path, err)
		}
	}

	gcm, err := aead(password, salt, sk.Iterations)
	if err != nil {
		return nil, err
	}
	raw, err := gcm.Open(nil, nonce, sealed, []byte(sk.PubKey))
	if err != nil {
		return nil, ErrWrongPassword
	}
	priv := crypto.PrivateKey(raw)
	if got := priv.Public().Hex(); got != sk.PubKey {
		return nil, fmt.Errorf("keystore %s: public key %s does not match %s", path, got, sk.PubKey)
	}
	return priv, nil
}
