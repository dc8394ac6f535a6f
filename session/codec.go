package session

import (
	"encoding/json"
	"errors"
)

var errEmptyIdentity = errors.New("empty identity payload")

// EncodeIdentity serializes an identity into the value stored under [IdentityEntry].
func EncodeIdentity(id *Identity) (string, error) {
	if id == nil {
		return "", errEmptyIdentity
	}
	data, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeIdentity parses a stored identity payload. Callers treat any error as
// "no identity"; a corrupt payload is never fatal.
func DecodeIdentity(raw string) (*Identity, error) {
	if raw == "" {
		return nil, errEmptyIdentity
	}
	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return nil, err
	}
	return &id, nil
}
