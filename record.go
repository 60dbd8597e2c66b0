package goSession

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// errCorruptRecord marks a persisted user record that cannot be trusted.
// It never leaves the package: Initialize recovers from it.
var errCorruptRecord = errors.New("corrupt session record")

func encodeUser(u User) (string, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeUser(v *validator.Validate, raw string) (User, error) {
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, fmt.Errorf("%w: %w", errCorruptRecord, err)
	}
	if err := validateUser(v, u); err != nil {
		return User{}, fmt.Errorf("%w: %w", errCorruptRecord, err)
	}
	return u, nil
}

func validateUser(v *validator.Validate, u User) error {
	if !u.Role.Valid() {
		return fmt.Errorf("role %d is not a declared role", uint8(u.Role))
	}
	return v.Struct(u)
}
