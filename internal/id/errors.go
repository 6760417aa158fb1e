package id

import "errors"

var errInvalidReplicaIDLength = errors.New("id: decoded replica id has the wrong length")
