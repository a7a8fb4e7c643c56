package metadata

import "strings"

// invalidUsernameChars mirrors the original server's rejected character set
// (spec §3: username rejects any of `<>:."/\|?*`).
const invalidUsernameChars = `<>:."/\|?*`

// ValidUsername reports whether username contains none of the reserved
// filesystem-unsafe characters.
func ValidUsername(username string) bool {
	if username == "" {
		return false
	}
	return !strings.ContainsAny(username, invalidUsernameChars)
}
