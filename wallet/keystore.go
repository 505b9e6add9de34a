package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/pbkdf2"

	"github.com/tolelom/fhe2048/crypto"
)

// ErrWrongPassword is returned when a keystore cannot be opened.
var ErrWrongPassword = errors.New("wrong password or corrupted keystore")

type keystoreFile struct {
	Address    string `json:"address"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipher_text"`
}

// SaveKey encrypts priv with password and writes it to path.
// Key derivation: PBKDF2-SHA256, 210k iterations.
func SaveKey(path, password string, priv *crypto.PrivateKey) error {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return errors.Wrap(err, "read salt")
	}
	gcm, err := newGCM(password, salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return errors.Wrap(err, "read nonce")
	}
	cipherText := gcm.Seal(nil, nonce, priv.Bytes(), nil)

	ks := keystoreFile{
		Address:    priv.Address().String(),
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		CipherText: hex.EncodeToString(cipherText),
	}
	data, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal keystore")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0600), "write keystore %s", path)
}

// LoadKey decrypts the keystore at path using password.
func LoadKey(path, password string) (*crypto.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read keystore %s", path)
	}
	var ks keystoreFile
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, errors.Wrap(err, "decode keystore")
	}
	salt, err := hex.DecodeString(ks.Salt)
	if err != nil {
		return nil, errors.Wrap(err, "decode salt")
	}
	nonce, err := hex.DecodeString(ks.Nonce)
	if err != nil {
		return nil, errors.Wrap(err, "decode nonce")
	}
	cipherText, err := hex.DecodeString(ks.CipherText)
	if err != nil {
		return nil, errors.Wrap(err, "decode cipher text")
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	privBytes, err := gcm.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	priv, err := crypto.PrivKeyFromBytes(privBytes)
	if err != nil {
		return nil, err
	}
	if ks.Address != "" && crypto.Address(ks.Address) != priv.Address() {
		return nil, errors.Wrapf(ErrWrongPassword, "keystore address %s does not match key", ks.Address)
	}
	return priv, nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, errors.Wrap(err, "aes")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "gcm")
	}
	return gcm, nil
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, 210_000, 32, sha256.New)
}
