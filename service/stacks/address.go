package stacks

import (
	"fmt"
	"regexp"
	"unicode"
)

const maxAddressLength = 42 // 2-char prefix + 40 chars max

// Stacks principals: "S" + version char (P/M mainnet, T/N testnet) followed
// by 38-40 uppercase c32 characters.
var validAddressRegex = regexp.MustCompile(`^S[PTMN][A-Z0-9]{38,40}$`)

// ValidateAddress validates a Stacks address for format and hygiene.
// Invalid addresses are a terminal input error and must never reach any
// upstream lookup.
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address is required")
	}

	if len(address) > maxAddressLength {
		return fmt.Errorf("address too long: maximum length is %d characters", maxAddressLength)
	}

	// Check for null bytes and control characters
	for _, r := range address {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("invalid characters in address: control characters not allowed")
		}
	}

	if !validAddressRegex.MatchString(address) {
		return fmt.Errorf("invalid address format: expected a Stacks principal like SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7")
	}

	return nil
}
