package errs

import "errors"

var ErrAuthentication = errors.New("webhook verification failed")
var ErrNotFound = errors.New("record not found")
var ErrConflict = errors.New("conflicting terminal state")
var ErrPersistence = errors.New("storage write failed")
