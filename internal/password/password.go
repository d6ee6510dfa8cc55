// Package password provides password hashing and password-based key
// derivation. scrypt is presently the only supported KDF.
package password

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/howeyc/gopass"
	"golang.org/x/crypto/scrypt"

	"github.com/arbordb/arbor/pkg/types"
)

// RandomSaltSize is the size of a random salt value to use with a password.
const RandomSaltSize = 16

// genPassPrefix is prepended to all randomly generated passwords.
const genPassPrefix = "ARBOR-GENPASS"

// ErrRandomnessUnavailable means the injected randomness source could not
// supply enough entropy. It is surfaced to the caller, never a panic.
var ErrRandomnessUnavailable = errors.New("password: randomness unavailable")

type costParams struct {
	N, R, P int
}

// params is the fixed cost-parameter set for scrypt. Tests swap in weaker
// parameters to keep runtimes down; release builds always use these.
var params = costParams{N: 1 << 16, R: 8, P: 1}

// Derive runs password and salt through the KDF identified by alg, producing
// keyLen bytes. Deterministic: the same inputs and length always yield the
// same bytes.
func Derive(alg types.PasswordAlg, salt []byte, password string, keyLen int) ([]byte, error) {
	if alg != types.PasswordAlgScrypt {
		return nil, fmt.Errorf("password: unsupported algorithm %v", alg)
	}
	key, err := scrypt.Key([]byte(password), salt, params.N, params.R, params.P, keyLen)
	if err != nil {
		return nil, fmt.Errorf("password: scrypt: %w", err)
	}
	return key, nil
}

// Verify reports whether password matches a previously derived key. The
// comparison is constant-time and the result never reveals why a mismatch
// happened.
func Verify(alg types.PasswordAlg, salt []byte, password string, previouslyDerived []byte) bool {
	derived, err := Derive(alg, salt, password, len(previouslyDerived))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(derived, previouslyDerived) == 1
}

// RandomSalt draws a fresh salt from the given randomness source.
func RandomSalt(rng io.Reader) ([]byte, error) {
	salt := make([]byte, RandomSaltSize)
	if _, err := io.ReadFull(rng, salt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
	}
	return salt, nil
}

// Generate produces an easy-to-type secret from the given randomness source:
// six random bytes through the bubble-babble encoding plus two decimal groups,
// behind a fixed prefix.
func Generate(rng io.Reader) (string, error) {
	var bytes [8]byte
	if _, err := io.ReadFull(rng, bytes[:]); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRandomnessUnavailable, err)
	}

	return fmt.Sprintf("%s-%s-%02d%03d",
		genPassPrefix,
		encodeBubbleBabble(bytes[0:6]),
		bytes[6]%100,
		bytes[7],
	), nil
}

// Prompt reads a secret from the terminal without echoing input.
func Prompt(message string) (string, error) {
	secret, err := gopass.GetPasswdPrompt(message, false, os.Stdin, os.Stdout)
	if err != nil {
		return "", fmt.Errorf("password: prompt: %w", err)
	}
	return string(secret), nil
}

// encodeBubbleBabble encodes data with the Bubble Babble encoding: pairs of
// input bytes become vowel-consonant-vowel triples separated by
// consonant-dash-consonant groups, driven by a running checksum seeded at 1,
// the whole output bracketed by 'x' markers.
func encodeBubbleBabble(data []byte) string {
	vowels := []byte("aeiouy")
	consonants := []byte("bcdfghklmnprstvzx")

	result := []byte{'x'}
	c := 1

	for i := 0; i <= len(data); i += 2 {
		if i >= len(data) {
			result = append(result, vowels[c%6], consonants[16], vowels[c/6])
			break
		}

		byte1 := int(data[i])
		result = append(result,
			vowels[(((byte1>>6)&3)+c)%6],
			consonants[(byte1>>2)&15],
			vowels[((byte1&3)+(c/6))%6],
		)

		if i+1 >= len(data) {
			break
		}

		byte2 := int(data[i+1])
		result = append(result, consonants[(byte2>>4)&15], '-', consonants[byte2&15])

		c = (c*5 + byte1*7 + byte2) % 36
	}

	result = append(result, 'x')
	return string(result)
}
