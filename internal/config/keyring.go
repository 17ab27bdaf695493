/*
 * Copyright (c) 2025 by the SmartWish authors.
 * Licensed under the Apache License, Version 2.0.
 */

package config

import (
	"github.com/zalando/go-keyring"
)

// TokenStore abstracts the OS keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// tokenStore is replaced in tests.
var tokenStore TokenStore = osKeyring{}

// osKeyring implements TokenStore using the OS keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) {
	return keyring.Get(service, key)
}

func (osKeyring) Set(service, key, value string) error {
	return keyring.Set(service, key, value)
}

func (osKeyring) Delete(service, key string) error {
	err := keyring.Delete(service, key)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}
