package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQLite, flat file)
// from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrCorruptStore is returned when the flat key-value file cannot be decoded.
var ErrCorruptStore = errors.New("corrupt key-value store")
