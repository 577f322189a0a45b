package connector_test

import (
	"strings"
	"sync"

	"github.com/go-errors/errors"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/the-lightning-land/wifid/connector"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/ranking"
)

type request struct {
	kind       string
	gen        network.Generation
	ssid       string
	passphrase string
}

var _ network.Network = (*fakeNetwork)(nil)

// fakeNetwork records requests and leaves event delivery to the test
type fakeNetwork struct {
	mu          sync.Mutex
	handler     network.Handler
	requests    []request
	failScan    bool
	failConnect map[string]bool
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		failConnect: make(map[string]bool),
	}
}

func (f *fakeNetwork) Start() error { return nil }
func (f *fakeNetwork) Stop() error  { return nil }

func (f *fakeNetwork) RequestScan(gen network.Generation) error {
	f.record(request{kind: "scan", gen: gen})

	if f.failScan {
		return errors.New("radio busy")
	}

	return nil
}

func (f *fakeNetwork) RequestConnect(gen network.Generation, ssid string, passphrase string) error {
	f.record(request{kind: "connect", gen: gen, ssid: ssid, passphrase: passphrase})

	if f.failConnect[ssid] {
		return errors.New("invalid network")
	}

	return nil
}

func (f *fakeNetwork) RequestDisconnect(gen network.Generation) error {
	f.record(request{kind: "disconnect", gen: gen})
	return nil
}

func (f *fakeNetwork) Subscribe(handler network.Handler) *network.Client {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()

	return network.NewClient(1, func() {
		f.mu.Lock()
		f.handler = nil
		f.mu.Unlock()
	})
}

func (f *fakeNetwork) record(req request) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
}

func (f *fakeNetwork) deliver(ev network.Event) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()

	if handler != nil {
		handler(ev)
	}
}

func (f *fakeNetwork) Requests() []request {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]request(nil), f.requests...)
}

// gen returns the generation of the latest request
func (f *fakeNetwork) gen() network.Generation {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.requests[len(f.requests)-1].gen
}

func (f *fakeNetwork) connects() []string {
	var ssids []string
	for _, req := range f.Requests() {
		if req.kind == "connect" {
			ssids = append(ssids, req.ssid)
		}
	}
	return ssids
}

type disconnect struct {
	ssid   string
	reason int
}

var _ = Describe("Connector", func() {
	var (
		net         *fakeNetwork
		c           *connector.Connector
		connected   []ranking.Candidate
		failures    int
		disconnects []disconnect
	)

	scan := func(observations ...network.Observation) {
		net.deliver(&network.ScanComplete{Generation: net.gen(), Observations: observations})
	}

	BeforeEach(func() {
		net = newFakeNetwork()
		c = connector.New(&connector.Config{Network: net})

		connected = nil
		failures = 0
		disconnects = nil

		c.OnConnected(func(candidate ranking.Candidate) {
			connected = append(connected, candidate)
		})
		c.OnFailure(func() {
			failures++
		})
		c.OnDisconnected(func(ssid string, reason int) {
			disconnects = append(disconnects, disconnect{ssid, reason})
		})
	})

	AfterEach(func() {
		c.Close()
	})

	It("starts idle without credentials", func() {
		Expect(c.Status()).To(Equal(connector.Idle))
		Expect(c.Credentials()).To(BeEmpty())
		Expect(c.Candidates()).To(BeEmpty())

		_, ok := c.Current()
		Expect(ok).To(BeFalse())
	})

	Describe("AddCredential", func() {
		DescribeTable("rejects invalid credentials without touching the store",
			func(ssid string, passphrase string) {
				Expect(c.AddCredential("Home", "homepass")).To(BeTrue())

				Expect(c.AddCredential(ssid, passphrase)).To(BeFalse())
				Expect(c.Credentials()).To(HaveLen(1))
				Expect(c.Credentials()[0].Ssid).To(Equal("Home"))
			},
			Entry("empty ssid", "", "secret"),
			Entry("ssid of 32 bytes", strings.Repeat("s", 32), "secret"),
			Entry("passphrase of 65 bytes", "Office", strings.Repeat("p", 65)),
			Entry("duplicate ssid", "Home", "otherpass"),
		)

		It("accepts the longest allowed ssid and passphrase", func() {
			Expect(c.AddCredential(strings.Repeat("s", 31), strings.Repeat("p", 64))).To(BeTrue())
			Expect(c.AddCredential("Open", "")).To(BeTrue())
			Expect(c.Credentials()).To(HaveLen(2))
		})
	})

	Describe("Start", func() {
		BeforeEach(func() {
			Expect(c.AddCredential("Home", "homepass")).To(BeTrue())
		})

		It("requests a disconnect and a scan for a new attempt", func() {
			Expect(c.Start()).To(BeTrue())
			Expect(c.Status()).To(Equal(connector.Scanning))

			requests := net.Requests()
			Expect(requests).To(HaveLen(2))
			Expect(requests[0].kind).To(Equal("disconnect"))
			Expect(requests[1].kind).To(Equal("scan"))
			Expect(requests[1].gen).To(Equal(requests[0].gen))
		})

		It("uses a fresh generation for every attempt", func() {
			Expect(c.Start()).To(BeTrue())
			first := net.gen()

			net.deliver(&network.ScanComplete{Generation: first, Status: 1})
			Expect(c.Start()).To(BeTrue())

			Expect(net.gen()).To(BeNumerically(">", first))
		})

		It("stays idle when the scan cannot be requested", func() {
			net.failScan = true

			Expect(c.Start()).To(BeFalse())
			Expect(c.Status()).To(Equal(connector.Idle))
			Expect(failures).To(BeZero())
		})

		DescribeTable("rejects a second attempt",
			func(setup func(), status connector.Status) {
				Expect(c.Start()).To(BeTrue())
				setup()
				Expect(c.Status()).To(Equal(status))

				count := len(net.Requests())

				Expect(c.Start()).To(BeFalse())
				Expect(c.Status()).To(Equal(status))
				Expect(net.Requests()).To(HaveLen(count))
				Expect(failures).To(BeZero())
				Expect(disconnects).To(BeEmpty())
			},
			Entry("while scanning", func() {}, connector.Scanning),
			Entry("while connecting", func() {
				scan(network.Observation{Ssid: "Home", Rssi: -50})
			}, connector.Connecting),
			Entry("while connected", func() {
				scan(network.Observation{Ssid: "Home", Rssi: -50})
				net.deliver(&network.GotAddress{Generation: net.gen(), Ip: "10.0.0.2"})
			}, connector.Connected),
		)
	})

	Describe("scanning", func() {
		BeforeEach(func() {
			Expect(c.AddCredential("A", "a-pass")).To(BeTrue())
			Expect(c.AddCredential("B", "b-pass")).To(BeTrue())
			Expect(c.Start()).To(BeTrue())
		})

		It("fails the attempt when the scan fails", func() {
			net.deliver(&network.ScanComplete{Generation: net.gen(), Status: 1})

			Expect(failures).To(Equal(1))
			Expect(c.Status()).To(Equal(connector.Idle))
			Expect(net.connects()).To(BeEmpty())
		})

		It("fails the attempt when no configured access point is in range", func() {
			scan(network.Observation{Ssid: "C", Rssi: -30})

			Expect(failures).To(Equal(1))
			Expect(c.Status()).To(Equal(connector.Idle))
			Expect(c.Candidates()).To(BeEmpty())
		})

		It("connects to the strongest configured access point first", func() {
			scan(
				network.Observation{Ssid: "A", Rssi: -80, Channel: 1},
				network.Observation{Ssid: "B", Rssi: -40, Channel: 6},
				network.Observation{Ssid: "C", Rssi: -60, Channel: 11},
			)

			Expect(c.Status()).To(Equal(connector.Connecting))
			Expect(c.Candidates()).To(Equal([]ranking.Candidate{
				{Ssid: "B", Passphrase: "b-pass", Rssi: -40, Channel: 6},
				{Ssid: "A", Passphrase: "a-pass", Rssi: -80, Channel: 1},
			}))

			requests := net.Requests()
			last := requests[len(requests)-1]
			Expect(last.kind).To(Equal("connect"))
			Expect(last.ssid).To(Equal("B"))
			Expect(last.passphrase).To(Equal("b-pass"))

			current, ok := c.Current()
			Expect(ok).To(BeTrue())
			Expect(current.Ssid).To(Equal("B"))
		})

		It("ranks with the credentials configured when the scan completes", func() {
			Expect(c.AddCredential("C", "c-pass")).To(BeTrue())

			scan(network.Observation{Ssid: "C", Rssi: -30})

			Expect(net.connects()).To(Equal([]string{"C"}))
		})

		It("skips candidates whose connect request fails", func() {
			net.failConnect["B"] = true

			scan(
				network.Observation{Ssid: "A", Rssi: -80},
				network.Observation{Ssid: "B", Rssi: -40},
			)

			Expect(net.connects()).To(Equal([]string{"B", "A"}))
			Expect(c.Status()).To(Equal(connector.Connecting))

			current, _ := c.Current()
			Expect(current.Ssid).To(Equal("A"))
		})

		It("fails when no connect request can be issued", func() {
			net.failConnect["A"] = true
			net.failConnect["B"] = true

			scan(
				network.Observation{Ssid: "A", Rssi: -80},
				network.Observation{Ssid: "B", Rssi: -40},
			)

			Expect(failures).To(Equal(1))
			Expect(c.Status()).To(Equal(connector.Idle))
		})
	})

	Describe("connecting", func() {
		BeforeEach(func() {
			Expect(c.AddCredential("A", "a-pass")).To(BeTrue())
			Expect(c.AddCredential("B", "b-pass")).To(BeTrue())
			Expect(c.Start()).To(BeTrue())

			scan(
				network.Observation{Ssid: "A", Rssi: -80},
				network.Observation{Ssid: "B", Rssi: -40},
			)
		})

		It("falls back to the next candidate on disconnect", func() {
			net.deliver(&network.StationDisconnected{Generation: net.gen(), Ssid: "B", Reason: 15})

			Expect(net.connects()).To(Equal([]string{"B", "A"}))
			Expect(c.Status()).To(Equal(connector.Connecting))
			Expect(failures).To(BeZero())
			Expect(disconnects).To(BeEmpty())
		})

		It("falls back to the next candidate on a lost address", func() {
			net.deliver(&network.LostAddress{Generation: net.gen()})

			Expect(net.connects()).To(Equal([]string{"B", "A"}))
			Expect(c.Status()).To(Equal(connector.Connecting))
		})

		It("fails exactly once when every candidate failed", func() {
			net.deliver(&network.StationDisconnected{Generation: net.gen(), Ssid: "B", Reason: 15})
			net.deliver(&network.StationDisconnected{Generation: net.gen(), Ssid: "A", Reason: 15})

			Expect(failures).To(Equal(1))
			Expect(c.Status()).To(Equal(connector.Idle))

			net.deliver(&network.StationDisconnected{Generation: net.gen(), Ssid: "A", Reason: 3})

			Expect(failures).To(Equal(1))
			Expect(connected).To(BeEmpty())
		})

		It("reports the candidate that got an address", func() {
			net.deliver(&network.StationDisconnected{Generation: net.gen(), Ssid: "B", Reason: 15})
			net.deliver(&network.GotAddress{Generation: net.gen(), Ip: "10.0.0.2"})

			Expect(c.Status()).To(Equal(connector.Connected))
			Expect(connected).To(Equal([]ranking.Candidate{
				{Ssid: "A", Passphrase: "a-pass", Rssi: -80},
			}))

			net.deliver(&network.GotAddress{Generation: net.gen(), Ip: "10.0.0.3"})
			Expect(connected).To(HaveLen(1))
		})
	})

	Describe("connected", func() {
		BeforeEach(func() {
			Expect(c.AddCredential("Home", "homepass")).To(BeTrue())
			Expect(c.Start()).To(BeTrue())
			scan(network.Observation{Ssid: "Home", Rssi: -50})
			net.deliver(&network.GotAddress{Generation: net.gen(), Ip: "10.0.0.2"})
			Expect(c.Status()).To(Equal(connector.Connected))
		})

		It("reports a lost connection and waits for a new start", func() {
			count := len(net.Requests())

			net.deliver(&network.StationDisconnected{Generation: net.gen(), Ssid: "Home", Reason: 3})

			Expect(disconnects).To(Equal([]disconnect{{"Home", 3}}))
			Expect(c.Status()).To(Equal(connector.Idle))
			Expect(net.Requests()).To(HaveLen(count))
			Expect(failures).To(BeZero())
		})

		It("reports the current access point when the event names none", func() {
			net.deliver(&network.StationDisconnected{Generation: net.gen(), Reason: 4})

			Expect(disconnects).To(Equal([]disconnect{{"Home", 4}}))
		})

		It("reports a lost address with an unknown reason", func() {
			net.deliver(&network.LostAddress{Generation: net.gen()})

			Expect(disconnects).To(Equal([]disconnect{{"Home", connector.ReasonUnknown}}))
			Expect(c.Status()).To(Equal(connector.Idle))
		})

		It("keeps the ranked candidates until the next scan", func() {
			net.deliver(&network.LostAddress{Generation: net.gen()})

			Expect(c.Candidates()).To(HaveLen(1))

			_, ok := c.Current()
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Clear", func() {
		BeforeEach(func() {
			Expect(c.AddCredential("Home", "homepass")).To(BeTrue())
			Expect(c.Start()).To(BeTrue())
		})

		It("empties credentials and candidates and returns to idle", func() {
			scan(network.Observation{Ssid: "Home", Rssi: -50})
			Expect(c.Status()).To(Equal(connector.Connecting))

			c.Clear()

			Expect(c.Status()).To(Equal(connector.Idle))
			Expect(c.Credentials()).To(BeEmpty())
			Expect(c.Candidates()).To(BeEmpty())
		})

		It("ignores events of the attempt in flight", func() {
			stale := net.gen()
			scan(network.Observation{Ssid: "Home", Rssi: -50})

			c.Clear()

			net.deliver(&network.GotAddress{Generation: stale, Ip: "10.0.0.2"})
			net.deliver(&network.StationDisconnected{Generation: stale, Ssid: "Home", Reason: 3})
			net.deliver(&network.ScanComplete{Generation: stale, Status: 1})

			Expect(c.Status()).To(Equal(connector.Idle))
			Expect(connected).To(BeEmpty())
			Expect(failures).To(BeZero())
			Expect(disconnects).To(BeEmpty())
		})

		It("drops a connection without reporting it", func() {
			scan(network.Observation{Ssid: "Home", Rssi: -50})
			stale := net.gen()
			net.deliver(&network.GotAddress{Generation: stale, Ip: "10.0.0.2"})
			Expect(c.Status()).To(Equal(connector.Connected))

			c.Clear()

			net.deliver(&network.LostAddress{Generation: stale})
			net.deliver(&network.StationDisconnected{Generation: stale, Ssid: "Home", Reason: 3})

			Expect(c.Status()).To(Equal(connector.Idle))
			Expect(disconnects).To(BeEmpty())
			Expect(failures).To(BeZero())
			Expect(c.Credentials()).To(BeEmpty())
			Expect(c.Candidates()).To(BeEmpty())

			_, ok := c.Current()
			Expect(ok).To(BeFalse())
		})

		It("ignores events of the previous attempt after a restart", func() {
			stale := net.gen()
			c.Clear()

			Expect(c.AddCredential("Office", "officepass")).To(BeTrue())
			Expect(c.Start()).To(BeTrue())

			net.deliver(&network.ScanComplete{
				Generation:   stale,
				Observations: []network.Observation{{Ssid: "Home", Rssi: -50}},
			})

			Expect(c.Status()).To(Equal(connector.Scanning))
			Expect(net.connects()).To(BeEmpty())

			scan(network.Observation{Ssid: "Office", Rssi: -60})
			Expect(net.connects()).To(Equal([]string{"Office"}))
		})
	})

	It("lets handlers start a new attempt", func() {
		c.OnFailure(func() {
			failures++
			if failures < 3 {
				Expect(c.Start()).To(BeTrue())
			}
		})

		Expect(c.Start()).To(BeTrue())

		for i := 0; i < 3; i++ {
			net.deliver(&network.ScanComplete{Generation: net.gen(), Status: 1})
		}

		Expect(failures).To(Equal(3))
		Expect(c.Status()).To(Equal(connector.Idle))
	})

	It("replaces handlers on registration", func() {
		second := 0
		c.OnFailure(func() { second++ })

		Expect(c.Start()).To(BeTrue())
		net.deliver(&network.ScanComplete{Generation: net.gen(), Status: 1})

		Expect(failures).To(BeZero())
		Expect(second).To(Equal(1))
	})

	It("runs without handlers", func() {
		c.OnConnected(nil)
		c.OnFailure(nil)
		c.OnDisconnected(nil)

		Expect(c.Start()).To(BeTrue())
		net.deliver(&network.ScanComplete{Generation: net.gen(), Status: 1})

		Expect(c.Status()).To(Equal(connector.Idle))
	})

	It("ignores events while idle", func() {
		net.deliver(&network.GotAddress{Generation: 0, Ip: "10.0.0.2"})
		net.deliver(&network.StationDisconnected{Generation: 0, Reason: 3})
		net.deliver(&network.ScanComplete{Generation: 0})

		Expect(c.Status()).To(Equal(connector.Idle))
		Expect(connected).To(BeEmpty())
		Expect(failures).To(BeZero())
		Expect(disconnects).To(BeEmpty())
	})

	It("stops receiving events once closed", func() {
		Expect(c.AddCredential("Home", "homepass")).To(BeTrue())
		Expect(c.Start()).To(BeTrue())

		c.Close()
		scan(network.Observation{Ssid: "Home", Rssi: -50})

		Expect(c.Status()).To(Equal(connector.Scanning))
		Expect(net.connects()).To(BeEmpty())
	})
})

var _ = Describe("Connector on the mock network", func() {
	var (
		net *network.MockNetwork
		c   *connector.Connector
	)

	BeforeEach(func() {
		net = network.NewMockNetwork(&network.MockConfig{
			Aps: []network.MockAp{
				{Ssid: "Strong", Passphrase: "strongpass", Rssi: -40, Channel: 1},
				{Ssid: "Weak", Passphrase: "goodpass", Rssi: -70, Channel: 11},
			},
		})
		Expect(net.Start()).To(Succeed())

		c = connector.New(&connector.Config{Network: net})
	})

	AfterEach(func() {
		c.Close()
		Expect(net.Stop()).To(Succeed())
	})

	It("falls back from a failing strong access point to a weak one", func() {
		connected := make(chan ranking.Candidate, 1)
		c.OnConnected(func(candidate ranking.Candidate) {
			connected <- candidate
		})

		Expect(c.AddCredential("Weak", "goodpass")).To(BeTrue())
		Expect(c.AddCredential("Strong", "badpass")).To(BeTrue())
		Expect(c.Start()).To(BeTrue())

		var candidate ranking.Candidate
		Eventually(connected).Should(Receive(&candidate))

		Expect(candidate.Ssid).To(Equal("Weak"))
		Expect(candidate.Passphrase).To(Equal("goodpass"))
		Expect(c.Status()).To(Equal(connector.Connected))

		var attempts []string
		for _, req := range net.Requests() {
			if req.Kind == network.RequestKindConnect {
				attempts = append(attempts, req.Ssid)
			}
		}
		Expect(attempts).To(Equal([]string{"Strong", "Weak"}))
	})

	It("reports a dropped connection", func() {
		lost := make(chan int, 1)
		c.OnDisconnected(func(ssid string, reason int) {
			lost <- reason
		})
		c.OnConnected(func(candidate ranking.Candidate) {
			net.Drop(network.ReasonDeauthLeaving)
		})

		Expect(c.AddCredential("Strong", "strongpass")).To(BeTrue())
		Expect(c.Start()).To(BeTrue())

		Eventually(lost).Should(Receive(Equal(network.ReasonDeauthLeaving)))
		Eventually(c.Status).Should(Equal(connector.Idle))
	})
})
