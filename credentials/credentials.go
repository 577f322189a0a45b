package credentials

const (
	// MaxSsidLength is the longest SSID in bytes that is accepted.
	MaxSsidLength = 31

	// MaxPassphraseLength is the longest passphrase in bytes that is accepted.
	MaxPassphraseLength = 64
)

// Credential is a user configured access point
type Credential struct {
	Ssid       string
	Passphrase string
}

// ValidSsid reports whether ssid has an acceptable length
func ValidSsid(ssid string) bool {
	return len(ssid) >= 1 && len(ssid) <= MaxSsidLength
}

func (c Credential) Valid() bool {
	if !ValidSsid(c.Ssid) {
		return false
	}

	return len(c.Passphrase) <= MaxPassphraseLength
}

// Store holds configured credentials in insertion order. Ssids are unique.
// A Store is not safe for concurrent use; the connector serializes access.
type Store struct {
	credentials []Credential
}

func NewStore() *Store {
	return &Store{}
}

// Add inserts a credential and returns true, or returns false without
// touching the store when the credential is invalid or its ssid is taken.
func (s *Store) Add(ssid string, passphrase string) bool {
	c := Credential{
		Ssid:       ssid,
		Passphrase: passphrase,
	}

	if !c.Valid() {
		return false
	}

	if _, ok := s.Lookup(ssid); ok {
		return false
	}

	s.credentials = append(s.credentials, c)

	return true
}

func (s *Store) Lookup(ssid string) (Credential, bool) {
	for _, c := range s.credentials {
		if c.Ssid == ssid {
			return c, true
		}
	}

	return Credential{}, false
}

// List returns a copy of all stored credentials
func (s *Store) List() []Credential {
	list := make([]Credential, len(s.credentials))
	copy(list, s.credentials)
	return list
}

func (s *Store) Len() int {
	return len(s.credentials)
}

func (s *Store) Clear() {
	s.credentials = nil
}
