package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Authority is an optional identity allowed to update a pool. The zero value
// is "no authority", which freezes the pool configuration.
type Authority struct {
	addr common.Address
	set  bool
}

// SomeAuthority returns an authority held by addr.
func SomeAuthority(addr common.Address) Authority {
	return Authority{addr: addr, set: true}
}

// NoAuthority returns the empty authority.
func NoAuthority() Authority {
	return Authority{}
}

// Get returns the authority address and whether one is set.
func (a Authority) Get() (common.Address, bool) {
	return a.addr, a.set
}

// IsSet reports whether an authority is present.
func (a Authority) IsSet() bool {
	return a.set
}

// Permits reports whether caller may act as the authority.
func (a Authority) Permits(caller common.Address) bool {
	return a.set && a.addr == caller
}

func (a Authority) String() string {
	if !a.set {
		return "none"
	}
	return a.addr.Hex()
}

// MarshalJSON encodes the authority as a hex address or null.
func (a Authority) MarshalJSON() ([]byte, error) {
	if !a.set {
		return []byte("null"), nil
	}
	return json.Marshal(a.addr.Hex())
}

// UnmarshalJSON decodes a hex address, null or "none". The empty string is
// an error.
func (a *Authority) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = NoAuthority()
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	if strings.EqualFold(text, "none") {
		*a = NoAuthority()
		return nil
	}
	if !common.IsHexAddress(text) {
		return fmt.Errorf("invalid authority address: %s", text)
	}
	*a = SomeAuthority(common.HexToAddress(text))
	return nil
}
