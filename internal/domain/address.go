package domain

import (
	"fmt"
	"regexp"
)

// addressRegex accepts bech32-style account addresses: a lowercase
// human-readable prefix, the separator "1", and a data part drawn from
// the bech32 charset.
var addressRegex = regexp.MustCompile(`^[a-z]{1,16}1[02-9ac-hj-np-z]{6,87}$`)

// Address is a validated account address.
type Address string

// ParseAddress validates s and returns it as an Address.
func ParseAddress(s string) (Address, error) {
	if !addressRegex.MatchString(s) {
		return "", &ValidationError{
			Message: fmt.Sprintf("invalid address: %q", s),
		}
	}
	return Address(s), nil
}

func (a Address) String() string {
	return string(a)
}
