package proxy

// Authority is the spec's authority/ACL lookup, named only by its contract
// in spec.md §1 ("a pure function of user -> permissions"). This proxy has
// no external ACL service to call out to, so Authority is realized here as
// a minimal in-process user/password/command-bitset table built from
// config at startup.
type Authority struct {
	users map[string]authUser
	// anonymous is not read anywhere: when no AUTH is required at all
	// (empty users map), NewSession grants AllowAll directly.
	anonymous commandSet
}

type authUser struct {
	password string
	allowed  commandSet
}

// commandSet is the "permitted-command bitset" from spec §3's Session
// fields; a set of upper-cased command names is the Go-idiomatic
// equivalent for a set too open-ended to bit-pack.
type commandSet map[string]bool

// AllowAll is the default permission set for a user with no restrictions
// configured.
var AllowAll commandSet = nil

func (cs commandSet) allows(cmdName string) bool {
	if cs == nil {
		return true
	}
	return cs[cmdName]
}

func NewAuthority() *Authority {
	return &Authority{users: make(map[string]authUser)}
}

// AddUser registers a user with a password and, optionally, a restricted
// command set (nil means "everything").
func (a *Authority) AddUser(user, password string, allowed []string) {
	var set commandSet
	if allowed != nil {
		set = make(commandSet, len(allowed))
		for _, c := range allowed {
			set[c] = true
		}
	}
	a.users[user] = authUser{password: password, allowed: set}
}

// RequiresAuth reports whether any user has been configured; with none
// configured the proxy runs unauthenticated, matching spec's end-to-end
// scenario 1 ("with no AUTH configured").
func (a *Authority) RequiresAuth() bool {
	return len(a.users) > 0
}

// Verify checks a user/password pair and returns the permitted-command set
// on success.
func (a *Authority) Verify(user, password string) (commandSet, bool) {
	u, ok := a.users[user]
	if !ok || u.password != password {
		return nil, false
	}
	return u.allowed, true
}
