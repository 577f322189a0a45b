package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/the-lightning-land/wifid/credentials"
	"github.com/the-lightning-land/wifid/daemon"
	"github.com/the-lightning-land/wifid/network"
)

const (
	defaultConfigFilename = "wifid.conf"
	defaultDataDir        = "/var/lib/wifid"
	defaultNet            = "wpa"
	defaultInterface      = "wlan0"
	defaultApiListen      = "localhost:9090"
)

type wpaConfig struct {
	Interface string `long:"interface" description:"Wireless interface managed by wpa_supplicant"`
}

type mockConfig struct {
	Aps   []string      `long:"ap" description:"Simulated access point as SSID:PASSPHRASE:RSSI:CHANNEL, may be repeated"`
	Delay time.Duration `long:"delay" description:"Delay before each simulated event"`
}

type apiConfig struct {
	Listen string `long:"listen" description:"Address the HTTP api listens on, empty to disable"`
}

type reconnectConfig struct {
	Initial time.Duration `long:"initial" description:"Delay before the first reconnect attempt"`
	Max     time.Duration `long:"max" description:"Longest delay between reconnect attempts"`
}

type profilingConfig struct {
	Listen string `long:"listen" description:"Enable profiling server on the given address"`
}

type config struct {
	ShowVersion bool     `short:"v" long:"version" description:"Display version information and exit"`
	Debug       bool     `long:"debug" description:"Start in debug mode"`
	ConfigFile  string   `long:"configfile" description:"Path to configuration file"`
	DataDir     string   `long:"datadir" description:"The directory to store wifid's data within"`
	Net         string   `long:"net" description:"Networking backend" choice:"wpa" choice:"mock"`
	Aps         []string `long:"ap" description:"Access point to connect to as SSID:PASSPHRASE, may be repeated"`
	Reconnect   bool     `long:"reconnect" description:"Start a new attempt after a failure or a lost connection"`

	Wpa             *wpaConfig       `group:"wpa_supplicant" namespace:"wpa"`
	Mock            *mockConfig      `group:"Mock network" namespace:"mock"`
	Api             *apiConfig       `group:"API" namespace:"api"`
	ReconnectPolicy *reconnectConfig `group:"Reconnect" namespace:"reconnect"`
	Profiling       *profilingConfig `group:"Profiling" namespace:"profiling"`

	credentials []credentials.Credential
	mockAps     []network.MockAp
}

func defaultConfig() config {
	return config{
		DataDir: defaultDataDir,
		Net:     defaultNet,
		Wpa: &wpaConfig{
			Interface: defaultInterface,
		},
		Mock: &mockConfig{},
		Api: &apiConfig{
			Listen: defaultApiListen,
		},
		ReconnectPolicy: &reconnectConfig{
			Initial: daemon.DefaultReconnectInitial,
			Max:     daemon.DefaultReconnectMax,
		},
		Profiling: &profilingConfig{},
	}
}

// loadConfig initializes the config from defaults, then the config file and
// finally the command line, which takes precedence
func loadConfig() (*config, error) {
	return loadConfigArgs(os.Args[1:])
}

func loadConfigArgs(args []string) (*config, error) {
	preCfg := defaultConfig()

	_, err := flags.NewParser(&preCfg, flags.Default).ParseArgs(args)
	if err != nil {
		return nil, err
	}

	if preCfg.ShowVersion {
		return &preCfg, nil
	}

	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.Default)

	configFile := preCfg.ConfigFile
	if configFile == "" {
		configFile = filepath.Join(preCfg.DataDir, defaultConfigFilename)
	}

	err = flags.NewIniParser(parser).ParseFile(configFile)
	if err != nil {
		// only a missing default config file is fine
		if _, ok := err.(*os.PathError); !ok || preCfg.ConfigFile != "" {
			return nil, errors.Errorf("could not read config file %v: %v", configFile, err)
		}
	}

	_, err = parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}

	for _, ap := range cfg.Aps {
		c, err := parseAccessPoint(ap)
		if err != nil {
			return nil, err
		}

		cfg.credentials = append(cfg.credentials, c)
	}

	for _, ap := range cfg.Mock.Aps {
		mockAp, err := parseMockAccessPoint(ap)
		if err != nil {
			return nil, err
		}

		cfg.mockAps = append(cfg.mockAps, mockAp)
	}

	if cfg.ReconnectPolicy.Initial <= 0 {
		return nil, errors.Errorf("reconnect.initial must be positive, got %v", cfg.ReconnectPolicy.Initial)
	}

	if cfg.ReconnectPolicy.Max < cfg.ReconnectPolicy.Initial {
		return nil, errors.Errorf("reconnect.max %v is shorter than reconnect.initial %v",
			cfg.ReconnectPolicy.Max, cfg.ReconnectPolicy.Initial)
	}

	return &cfg, nil
}

// parseAccessPoint reads SSID:PASSPHRASE. The ssid ends at the first colon,
// the passphrase may contain colons.
func parseAccessPoint(s string) (credentials.Credential, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return credentials.Credential{}, errors.Errorf("access point %q is not SSID:PASSPHRASE", s)
	}

	c := credentials.Credential{
		Ssid:       parts[0],
		Passphrase: parts[1],
	}

	if !c.Valid() {
		return credentials.Credential{}, errors.Errorf("access point %q has an invalid ssid or passphrase", c.Ssid)
	}

	return c, nil
}

// parseMockAccessPoint reads SSID:PASSPHRASE:RSSI:CHANNEL, reading rssi and
// channel from the right so the passphrase may contain colons
func parseMockAccessPoint(s string) (network.MockAp, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 4 {
		return network.MockAp{}, errors.Errorf("mock access point %q is not SSID:PASSPHRASE:RSSI:CHANNEL", s)
	}

	n := len(parts)

	rssi, err := strconv.Atoi(parts[n-2])
	if err != nil {
		return network.MockAp{}, errors.Errorf("mock access point %q has an invalid rssi: %v", s, err)
	}

	channel, err := strconv.Atoi(parts[n-1])
	if err != nil {
		return network.MockAp{}, errors.Errorf("mock access point %q has an invalid channel: %v", s, err)
	}

	return network.MockAp{
		Ssid:       parts[0],
		Passphrase: strings.Join(parts[1:n-2], ":"),
		Rssi:       rssi,
		Channel:    channel,
	}, nil
}
