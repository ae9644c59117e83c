package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/hourbank/internal/flagx"
)

// parseFlags overrides Config fields from command-line flags.
//
//	-a string   HTTP bind address (e.g. ":3000")
//	-d string   database DSN, or memory:// for the in-memory store
//	-l string   login token secret
//	-s string   session token secret
//	-t int      session validity, hours
//	-m string   mail provider: log, mailgun or smtp
//	-r string   Redis address for the PIN attempt limiter
//	-dev        development mode
//
// Flags not listed are ignored so that -c/-config can share os.Args.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-l", "-s", "-t", "-m", "-r", "-dev"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LoginTokenSecret, "l", config.LoginTokenSecret, "login token secret")
	fs.StringVar(&config.SessionTokenSecret, "s", config.SessionTokenSecret, "session token secret")
	sessionHours := fs.Int("t", int(config.SessionTTL.Hours()), "session validity (in hours)")
	fs.StringVar(&config.MailProvider, "m", config.MailProvider, "mail provider")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.BoolVar(&config.DevMode, "dev", config.DevMode, "development mode")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// Sub-hour TTLs from the file survive when -t is not given.
	if isSet(fs, "t") {
		config.SessionTTL = time.Duration(*sessionHours) * time.Hour
	}
	return nil
}

func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
