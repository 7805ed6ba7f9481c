package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"
)

type Config struct {
	Addr        string
	APIUrl      string
	APIToken    string
	TokenSecret string
	Autosave    time.Duration
	HoverDelay  time.Duration
	TouchDelay  time.Duration
	TouchLinger time.Duration
	SessionTTL  time.Duration
	Debug       bool
}

func ParseFlags() (cfg Config, err error) {
	return Parse(flag.CommandLine, os.Args[1:])
}

func Parse(fs *flag.FlagSet, args []string) (cfg Config, err error) {
	var host string
	fs.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	fs.UintVar(&port, "port", 80, "listen port number (default 80)")
	fs.StringVar(&cfg.APIUrl, "api-url", "http://localhost:8000", "base URL of the forms backend")
	fs.StringVar(&cfg.APIToken, "api-token", "", "bearer token sent to the forms backend")
	fs.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for admin token verification")
	fs.DurationVar(&cfg.Autosave, "autosave", 30*time.Second, "autosave interval (default 30s)")
	fs.DurationVar(&cfg.HoverDelay, "hover-delay", 300*time.Millisecond, "pointer hover translation delay (default 300ms)")
	fs.DurationVar(&cfg.TouchDelay, "touch-delay", 100*time.Millisecond, "touch translation delay (default 100ms)")
	fs.DurationVar(&cfg.TouchLinger, "touch-linger", 3*time.Second, "how long a touch translation stays after release (default 3s)")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", 2*time.Hour, "idle time before a fill session is dropped (default 2h)")
	fs.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")

	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case cfg.APIUrl == "":
		err = errors.New("missing parameter -api-url")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
