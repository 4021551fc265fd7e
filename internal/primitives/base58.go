// Copyright (c) 2024 The gem developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package primitives

import (
	"fmt"

	"github.com/EXCCoin/base58"
)

// EncodeBase58 encodes b using the base58 alphabet addresses and imported
// secret keys are rendered in.
func EncodeBase58(b []byte) string {
	return base58.Encode(b)
}

// DecodeBase58 decodes a base58 string back to raw bytes.
func DecodeBase58(s string) ([]byte, error) {
	b := base58.Decode(s)
	if len(b) == 0 && s != "" {
		return nil, fmt.Errorf("primitives: invalid base58 string")
	}
	return b, nil
}

func errInvalidLength(what string, want, got int) error {
	return fmt.Errorf("primitives: invalid %s length: want %d, got %d", what, want, got)
}
