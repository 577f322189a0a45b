package ranking

import (
	"sort"

	"github.com/the-lightning-land/wifid/credentials"
	"github.com/the-lightning-land/wifid/network"
)

// Candidate is an observed access point with a configured credential
type Candidate struct {
	Ssid       string
	Passphrase string
	Rssi       int
	Channel    int
}

// Rank orders observations by signal strength, strongest first, and keeps the
// strongest observation of every ssid that has a configured credential.
// Observations with equal rssi keep their scan order.
func Rank(observations []network.Observation, configured []credentials.Credential) []Candidate {
	sorted := make([]network.Observation, len(observations))
	copy(sorted, observations)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rssi > sorted[j].Rssi
	})

	passphrases := make(map[string]string, len(configured))
	for _, c := range configured {
		passphrases[c.Ssid] = c.Passphrase
	}

	seen := make(map[string]bool)
	candidates := []Candidate{}

	for _, o := range sorted {
		if seen[o.Ssid] || !credentials.ValidSsid(o.Ssid) {
			continue
		}

		passphrase, ok := passphrases[o.Ssid]
		if !ok {
			continue
		}

		seen[o.Ssid] = true
		candidates = append(candidates, Candidate{
			Ssid:       o.Ssid,
			Passphrase: passphrase,
			Rssi:       o.Rssi,
			Channel:    o.Channel,
		})
	}

	return candidates
}
