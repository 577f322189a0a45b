package daemon

import (
	"net"
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/the-lightning-land/wifid/connectivity"
	"github.com/the-lightning-land/wifid/connector"
	"github.com/the-lightning-land/wifid/credentials"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/ranking"
	"github.com/the-lightning-land/wifid/wifidb"
)

// Reconnect delays used when the config leaves them unset
const (
	DefaultReconnectInitial = 2 * time.Second
	DefaultReconnectMax     = 5 * time.Minute
)

// Daemon keeps the station connected. It runs the connector on a network,
// journals every outcome and optionally restarts attempts after a failure or
// a lost connection.
type Daemon struct {
	log                 Logger
	net                 network.Network
	db                  *wifidb.DB
	connector           *connector.Connector
	connectivity        *connectivity.Monitor
	credentials         []credentials.Credential
	reconnect           *reconnector
	metrics             *metrics
	api                 Api
	apiListen           string
	apiListeners        []net.Listener
	done                chan struct{}
	shutdown            sync.Once
	outcomeClients      map[uint32]chan *wifidb.Outcome
	outcomeClientMtx    sync.Mutex
	nextOutcomeClientId uint32
}

func New(config *Config) *Daemon {
	d := &Daemon{
		net:            config.Network,
		db:             config.DB,
		connectivity:   connectivity.NewMonitor(),
		credentials:    config.Credentials,
		metrics:        newMetrics(config.Registerer),
		api:            config.Api,
		apiListen:      config.ApiListen,
		done:           make(chan struct{}),
		outcomeClients: make(map[uint32]chan *wifidb.Outcome),
	}

	if config.Logger != nil {
		d.log = config.Logger
	} else {
		d.log = noopLogger{}
	}

	d.connector = connector.New(&connector.Config{
		Network: config.Network,
		Logger:  config.ConnectorLogger,
	})

	d.connector.OnConnected(d.handleConnected)
	d.connector.OnFailure(d.handleFailure)
	d.connector.OnDisconnected(d.handleDisconnected)

	if config.Reconnect {
		initial := config.ReconnectInitial
		if initial <= 0 {
			initial = DefaultReconnectInitial
		}

		maxInterval := config.ReconnectMax
		if maxInterval < initial {
			maxInterval = DefaultReconnectMax
		}

		d.reconnect = newReconnector(initial, maxInterval, d.attempt, d.log)
	}

	if d.api != nil {
		d.api.SetDaemon(d)
	}

	return d
}

// Run starts the network, the api and the first attempt. It blocks until
// Shutdown is called.
func (d *Daemon) Run() error {
	d.log.Infof("Starting daemon...")

	err := d.net.Start()
	if err != nil {
		return errors.Errorf("Could not start network: %v", err)
	}

	last, err := d.LastConnected()
	if err != nil {
		d.log.Warnf("Could not read last connection: %v", err)
	} else if last != nil {
		d.log.Infof("Last connected to %q at %v", last.Ssid, last.Time)
	}

	for _, c := range d.credentials {
		if !d.connector.AddCredential(c.Ssid, c.Passphrase) {
			d.log.Warnf("Skipping invalid or duplicate access point %q", c.Ssid)
		}
	}

	if d.api != nil && d.apiListen != "" {
		lis, err := net.Listen("tcp", d.apiListen)
		if err != nil {
			d.stop()
			return errors.Errorf("Api unable to listen on %v: %v", d.apiListen, err)
		}

		d.apiListeners = append(d.apiListeners, lis)

		d.log.Infof("Serving api on %v", lis.Addr())

		go func() {
			err := d.api.Serve(lis)
			select {
			case <-d.done:
				// listener closed on shutdown
			default:
				if err != nil {
					d.log.Errorf("Could not serve api: %v", err)
				}
			}
		}()
	}

	if !d.attempt() {
		d.log.Warnf("Could not start first connection attempt")

		if d.reconnect != nil {
			d.reconnect.schedule()
		}
	}

	<-d.done

	d.stop()

	return nil
}

// Shutdown makes Run return
func (d *Daemon) Shutdown() {
	d.shutdown.Do(func() {
		close(d.done)
	})
}

func (d *Daemon) stop() {
	if d.reconnect != nil {
		d.reconnect.stop()
	}

	for _, lis := range d.apiListeners {
		err := lis.Close()
		if err != nil {
			d.log.Errorf("Could not close listener: %v", err)
		}
	}

	d.connector.Close()

	err := d.net.Stop()
	if err != nil {
		d.log.Errorf("Could not stop network: %v", err)
	}

	d.closeOutcomeClients()
}

// attempt starts a connection attempt and reports false when it has to be
// retried later
func (d *Daemon) attempt() bool {
	if d.connector.Start() {
		return true
	}

	// someone else is already attempting or connected
	return d.connector.Status() != connector.Idle
}

// Connect starts a connection attempt on demand
func (d *Daemon) Connect() bool {
	if d.reconnect != nil {
		d.reconnect.reset()
	}

	return d.connector.Start()
}

func (d *Daemon) Status() connector.Status {
	return d.connector.Status()
}

func (d *Daemon) Current() (ranking.Candidate, bool) {
	return d.connector.Current()
}

func (d *Daemon) Candidates() []ranking.Candidate {
	return d.connector.Candidates()
}

func (d *Daemon) Credentials() []credentials.Credential {
	return d.connector.Credentials()
}

func (d *Daemon) AddCredential(ssid string, passphrase string) bool {
	return d.connector.AddCredential(ssid, passphrase)
}

// ClearCredentials forgets all access points and cancels pending reconnects
func (d *Daemon) ClearCredentials() {
	if d.reconnect != nil {
		d.reconnect.reset()
	}

	d.connector.Clear()
	d.connectivity.SetState(connectivity.Offline)
	d.metrics.connected.Set(0)
}

// Connectivity reports whether the station holds an address
func (d *Daemon) Connectivity() connectivity.Reporter {
	return d.connectivity
}

// Outcomes returns the journal, newest first
func (d *Daemon) Outcomes(limit int) ([]*wifidb.Outcome, error) {
	if d.db == nil {
		return []*wifidb.Outcome{}, nil
	}

	return d.db.Outcomes(limit)
}

// LastConnected returns the most recent connected outcome or nil
func (d *Daemon) LastConnected() (*wifidb.Outcome, error) {
	if d.db == nil {
		return nil, nil
	}

	return d.db.LastConnected()
}

func (d *Daemon) handleConnected(candidate ranking.Candidate) {
	d.log.Infof("Connected to %q", candidate.Ssid)

	if d.reconnect != nil {
		d.reconnect.reset()
	}

	d.connectivity.SetState(connectivity.Online)

	d.record(&wifidb.Outcome{
		Kind:    wifidb.OutcomeConnected,
		Ssid:    candidate.Ssid,
		Rssi:    candidate.Rssi,
		Channel: candidate.Channel,
	})
}

func (d *Daemon) handleFailure() {
	d.log.Warnf("Could not connect to any configured access point")

	d.record(&wifidb.Outcome{
		Kind: wifidb.OutcomeFailure,
	})

	if len(d.connector.Credentials()) == 0 {
		d.log.Infof("No access points configured, not reconnecting")
		return
	}

	if d.reconnect != nil {
		d.reconnect.schedule()
	}
}

func (d *Daemon) handleDisconnected(ssid string, reason int) {
	d.log.Warnf("Lost connection to %q, reason %d", ssid, reason)

	d.connectivity.SetState(connectivity.Offline)

	d.record(&wifidb.Outcome{
		Kind:   wifidb.OutcomeDisconnected,
		Ssid:   ssid,
		Reason: reason,
	})

	if d.reconnect != nil {
		d.reconnect.schedule()
	}
}

func (d *Daemon) record(outcome *wifidb.Outcome) {
	outcome.Time = time.Now()

	if d.db != nil {
		err := d.db.AddOutcome(outcome)
		if err != nil {
			d.log.Errorf("Could not journal outcome: %v", err)
		}
	}

	d.metrics.observe(outcome)
	d.publishOutcome(outcome)
}
