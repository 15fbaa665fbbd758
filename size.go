// size.go: approximate cache entry sizing
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package celeris

import (
	"github.com/bytedance/sonic"
)

// fallbackEntrySize is charged for values that cannot be encoded.
const fallbackEntrySize = 1024

// estimateSize returns the approximate footprint of an entry: the key
// length plus the JSON-encoded length of the value. This is a cheap proxy,
// not a memory measurement. On encoding failure the fallback size is
// returned together with the error so the caller can log it and proceed.
func estimateSize(key string, value interface{}) (size int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			size = int64(len(key) + fallbackEntrySize)
			err = NewErrPanicRecovered("estimateSize", r)
		}
	}()

	switch v := value.(type) {
	case nil:
		return int64(len(key)), nil
	case string:
		return int64(len(key) + len(v) + 2), nil
	case []byte:
		return int64(len(key) + len(v)), nil
	}

	encoded, err := sonic.Marshal(value)
	if err != nil {
		return int64(len(key) + fallbackEntrySize), err
	}
	return int64(len(key) + len(encoded)), nil
}
