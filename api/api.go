package api

import (
	"net"
	"net/http"

	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/the-lightning-land/wifid/connector"
	"github.com/the-lightning-land/wifid/credentials"
	"github.com/the-lightning-land/wifid/daemon"
	"github.com/the-lightning-land/wifid/ranking"
	"github.com/the-lightning-land/wifid/wifidb"
)

// Daemon is what the api exposes over HTTP
type Daemon interface {
	Status() connector.Status
	Current() (ranking.Candidate, bool)
	Credentials() []credentials.Credential
	AddCredential(ssid string, passphrase string) bool
	ClearCredentials()
	Candidates() []ranking.Candidate
	Connect() bool
	Outcomes(limit int) ([]*wifidb.Outcome, error)
	LastConnected() (*wifidb.Outcome, error)
	SubscribeOutcomes() *daemon.OutcomeClient
}

// check Api compliance to the daemon's interface during compile time
var _ daemon.Api = (*Api)(nil)

type Config struct {
	Daemon Daemon
	// Gatherer is exposed on /metrics, defaults to the default gatherer
	Gatherer prometheus.Gatherer
	Logger   Logger
}

type Api struct {
	daemon Daemon
	router *mux.Router
	log    Logger
}

func New(config *Config) *Api {
	api := &Api{
		daemon: config.Daemon,
		router: mux.NewRouter(),
	}

	if config.Logger != nil {
		api.log = config.Logger
	} else {
		api.log = noopLogger{}
	}

	gatherer := config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	api.router.Handle("/api/v1/status", api.handleGetStatus()).Methods(http.MethodGet)

	api.router.Handle("/api/v1/credentials", api.handleGetCredentials()).Methods(http.MethodGet)
	api.router.Handle("/api/v1/credentials", api.handlePostCredential()).Methods(http.MethodPost)
	api.router.Handle("/api/v1/credentials", api.handleDeleteCredentials()).Methods(http.MethodDelete)

	api.router.Handle("/api/v1/candidates", api.handleGetCandidates()).Methods(http.MethodGet)

	api.router.Handle("/api/v1/connection", api.handlePostConnection()).Methods(http.MethodPost)

	api.router.Handle("/api/v1/outcomes", api.handleGetOutcomes()).Methods(http.MethodGet)
	api.router.Handle("/api/v1/events", api.handleGetEvents()).Methods(http.MethodGet)

	api.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return api
}

func (a *Api) SetDaemon(d *daemon.Daemon) {
	a.daemon = d
}

func (a *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *Api) Serve(l net.Listener) error {
	err := http.Serve(l, a.router)
	if err != nil {
		return errors.Errorf("Unable to serve api: %v", err)
	}

	return nil
}
