package password

import "golang.org/x/crypto/bcrypt"

// Hash hashes plaintext using bcrypt.
func Hash(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// Compare compares plaintext to a hashed secret.
func Compare(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
