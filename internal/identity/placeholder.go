package identity

import "strings"

const (
	// PlaceholderName is assigned to accounts created without a display name.
	PlaceholderName = "New User"
	// PlaceholderEmailDomain marks system-generated addresses for wallet-only accounts.
	PlaceholderEmailDomain = "wallet.connect"
)

// IsPlaceholderName reports whether a stored name may be replaced by a real one.
// Empty names, the sentinel itself and sentinel-derived names ("New User #4")
// qualify.
func IsPlaceholderName(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || name == PlaceholderName || strings.HasPrefix(name, PlaceholderName+" ")
}

// IsPlaceholderEmail reports whether an email is empty or system generated.
func IsPlaceholderEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	return email == "" || strings.HasSuffix(email, "@"+PlaceholderEmailDomain)
}

// IsPlaceholderWallet reports whether a wallet address slot is still free.
func IsPlaceholderWallet(address string) bool {
	return strings.TrimSpace(address) == ""
}

// IsPlaceholderPhone reports whether a phone number slot is still free.
func IsPlaceholderPhone(phone string) bool {
	return strings.TrimSpace(phone) == ""
}
