package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable of a running Ember server, per spec.md §6.
// ReadTimeout, WriteTimeout, MaxHeaderBytes, and MaxBodyBytes are parsed but
// not read by the server; the parser applies httpparse's fixed limits.
type Config struct {
	Port           int
	Workers        int
	Backlog        int
	ReusePort      bool
	IdleTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ShutdownGrace  time.Duration
	MaxHeaderBytes int
	MaxBodyBytes   int
	Env            string
	ServerName     string
}

// New loads configuration from flags, then applies a PORT environment
// override the same way the teacher's config.New sketches (its own
// PORT-from-env branch was left as a TODO comment; Ember fills it in).
func New() *Config {
	cfg := &Config{}

	flag.IntVar(&cfg.Port, "port", 8080, "listen port")
	flag.IntVar(&cfg.Workers, "workers", 0, "reactor count (0 = one per CPU)")
	flag.IntVar(&cfg.Backlog, "backlog", 0, "listen backlog (0 = SOMAXCONN)")
	flag.BoolVar(&cfg.ReusePort, "reuseport", true, "one SO_REUSEPORT listener per reactor instead of a single accepting listener")
	flag.DurationVar(&cfg.IdleTimeout, "idle-timeout", 60*time.Second, "connection idle timeout")
	flag.DurationVar(&cfg.ReadTimeout, "read-timeout", 30*time.Second, "per-read deadline")
	flag.DurationVar(&cfg.WriteTimeout, "write-timeout", 30*time.Second, "per-write deadline")
	flag.DurationVar(&cfg.ShutdownGrace, "shutdown-grace", 10*time.Second, "grace period for in-flight connections on shutdown")
	flag.IntVar(&cfg.MaxHeaderBytes, "max-header-bytes", 16*1024, "maximum total header block size")
	flag.IntVar(&cfg.MaxBodyBytes, "max-body-bytes", 10*1024*1024, "maximum request body size")
	flag.StringVar(&cfg.Env, "env", "development", "deployment environment")
	flag.StringVar(&cfg.ServerName, "server-name", "ember", "identifier sent in the Server response header")

	flag.Parse()

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}

	return cfg
}
