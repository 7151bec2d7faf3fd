package domain

// FlagRequiresPasswordSetup marks identities that were invited and have not chosen a password yet.
const FlagRequiresPasswordSetup = "needs_password_setup"

// Identity is the principal resolved from a bearer credential by the identity provider.
// The session guard only reads it.
type Identity struct {
	ID    string
	Email string
	Flags map[string]bool
}

// HasFlag reports whether the provider set the given flag on the identity.
func (i *Identity) HasFlag(flag string) bool {
	if i == nil || i.Flags == nil {
		return false
	}
	return i.Flags[flag]
}
