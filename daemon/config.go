package daemon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/the-lightning-land/wifid/credentials"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/wifidb"
)

type Config struct {
	Network     network.Network
	DB          *wifidb.DB
	Credentials []credentials.Credential

	// Reconnect restarts an attempt after a failure or a lost connection
	Reconnect        bool
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration

	// Api is served on ApiListen when both are set
	Api       Api
	ApiListen string

	Registerer      prometheus.Registerer
	Logger          Logger
	ConnectorLogger Logger
}
