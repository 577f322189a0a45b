package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeMatcher keeps the match rules of a bus connection
type fakeMatcher struct {
	fail  map[string]bool
	rules []string
}

func (m *fakeMatcher) AddMatchSignal(iface, member string, options ...dbus.MatchOption) *dbus.Call {
	if m.fail[member] {
		return &dbus.Call{Err: errors.New("access denied")}
	}

	m.rules = append(m.rules, member)

	return &dbus.Call{}
}

func (m *fakeMatcher) RemoveMatchSignal(iface, member string, options ...dbus.MatchOption) *dbus.Call {
	for i, rule := range m.rules {
		if rule == member {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			break
		}
	}

	return &dbus.Call{}
}

var _ = Describe("Interface match rules", func() {
	path := dbus.ObjectPath("/fi/w1/wpa_supplicant1/Interfaces/0")

	It("adds a rule per signal", func() {
		m := &fakeMatcher{}

		Expect(addMatches(m, path)).To(Succeed())
		Expect(m.rules).To(Equal([]string{"ScanDone", "PropertiesChanged"}))

		removeMatches(m, path, signalMembers)
		Expect(m.rules).To(BeEmpty())
	})

	It("removes the rules already added when one fails", func() {
		m := &fakeMatcher{fail: map[string]bool{"PropertiesChanged": true}}

		Expect(addMatches(m, path)).ToNot(Succeed())
		Expect(m.rules).To(BeEmpty())
	})
})
