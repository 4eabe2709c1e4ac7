package models

// Encryption parameters for at-rest message body encryption.
const (
	NonceSize        = 12
	SaltSize         = 16
	KeySize          = 32
	PBKDF2Iterations = 100000
)
