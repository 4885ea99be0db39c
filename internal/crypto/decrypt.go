// Package crypto decrypts AES-128 media segments.
//
// HLS encrypts each segment independently with AES-128 in CBC mode and
// PKCS#7 padding. When the playlist declares no IV, the IV is the
// segment's index as a 16-byte big-endian integer.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"github.com/RealChuan/hlsget/internal/model"
)

// DecryptError reports that fetched bytes could not be turned into
// plaintext. It is deliberately distinct from fetch failures: the
// network delivered something, but the something is unusable.
type DecryptError struct {
	Index int
	Err   error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("decrypt segment %d: %v", e.Index, e.Err)
}

func (e *DecryptError) Unwrap() error { return e.Err }

// IVForIndex derives the default IV for a segment: its index in a
// 16-byte big-endian field.
func IVForIndex(index int) []byte {
	iv := make([]byte, aes.BlockSize)
	binary.BigEndian.PutUint64(iv[8:], uint64(index))
	return iv
}

// DecryptSegment turns a fetched segment body into plaintext. For an
// unencrypted segment (nil ref or METHOD=NONE) it returns data
// unchanged. key must be the 16 resolved key bytes for encrypted
// segments.
func DecryptSegment(data, key []byte, ref *model.EncryptionKey, index int) ([]byte, error) {
	if ref == nil || ref.Method == model.MethodNone {
		return data, nil
	}

	iv := ref.IV
	if iv == nil {
		iv = IVForIndex(index)
	}

	plain, err := decryptCBC(data, key, iv)
	if err != nil {
		return nil, &DecryptError{Index: index, Err: err}
	}
	return plain, nil
}

func decryptCBC(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv length %d, want %d", len(iv), aes.BlockSize)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a positive multiple of the block size", len(ciphertext))
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	return unpadPKCS7(plain)
}

// unpadPKCS7 strips and validates PKCS#7 padding. Invalid padding means
// the ciphertext was corrupt or decrypted with the wrong key.
func unpadPKCS7(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding length %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding byte")
		}
	}
	return data[:len(data)-n], nil
}
