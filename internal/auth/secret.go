package auth

import "errors"

// SecretProvider supplies the key used to sign and verify session tokens.
type SecretProvider interface {
	SigningKey() []byte
}

// StaticSecret is a SecretProvider backed by a fixed key loaded at startup.
type StaticSecret struct {
	key []byte
}

// NewStaticSecret copies secret into an immutable provider.
func NewStaticSecret(secret string) (*StaticSecret, error) {
	if secret == "" {
		return nil, errors.New("signing secret must not be empty")
	}
	return &StaticSecret{key: []byte(secret)}, nil
}

// SigningKey returns a copy of the key so callers cannot mutate it.
func (s *StaticSecret) SigningKey() []byte {
	out := make([]byte, len(s.key))
	copy(out, s.key)
	return out
}
