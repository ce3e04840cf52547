package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/rtp"
)

type Config struct {
	Env        string     `yaml:"env" validate:"oneof=local dev prod"`
	HTTPServer HTTPServer `yaml:"http_server"`
	WSServer   HTTPServer `yaml:"ws_server"`
	Storage    Storage    `yaml:"storage"`
	Events     Events     `yaml:"events"`
	RTP        RTP        `yaml:"rtp"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" validate:"required"`
	Timeout     time.Duration `yaml:"timeout"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

type Storage struct {
	Driver StorageDriver `yaml:"driver" validate:"oneof=mysql badger"`
	// DSN is a go-sql-driver/mysql data source name.
	DSN string `yaml:"dsn" validate:"required_if=Driver mysql"`
	// BadgerPath empty keeps the store in memory.
	BadgerPath string `yaml:"badger_path"`
}

type Events struct {
	Driver    EventDriver `yaml:"driver" validate:"oneof=none pusher ws"`
	WSURL     string      `yaml:"ws_url" validate:"required_if=Driver ws"`
	// WSSecret authenticates publishers on the hub's /publish route.
	WSSecret  string      `yaml:"ws_secret" validate:"required_if=Driver ws"`
	Workers   int         `yaml:"workers" validate:"min=1"`
	QueueSize int         `yaml:"queue_size" validate:"min=1"`
	Pusher    Pusher      `yaml:"pusher"`
}

type Pusher struct {
	AppID   string `yaml:"app_id"`
	Key     string `yaml:"key"`
	Secret  string `yaml:"secret"`
	Cluster string `yaml:"cluster"`
}

type RTP struct {
	Tolerance      float64    `yaml:"tolerance" validate:"gte=0,lt=0.005"`
	MinProbability float64    `yaml:"min_probability" validate:"gte=0,lt=1"`
	Bands          []rtp.Band `yaml:"bands" validate:"dive"`
	// CacheTTL is how long solved allocations are memoized by the API.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// SolverConfig converts the section into the solver's own config.
func (r RTP) SolverConfig() rtp.Config {
	return rtp.Config{
		Bands:          r.Bands,
		Tolerance:      r.Tolerance,
		MinProbability: r.MinProbability,
	}
}

var validate = validator.New()

func Default() Config {
	return Config{
		Env: "local",
		HTTPServer: HTTPServer{
			Address:     "localhost:8080",
			Timeout:     4 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
		WSServer: HTTPServer{
			Address:     "localhost:8081",
			Timeout:     4 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
		Storage: Storage{
			Driver: StorageBadger,
		},
		Events: Events{
			Driver:    EventsNone,
			Workers:   4,
			QueueSize: 256,
		},
		RTP: RTP{
			Tolerance:      rtp.DefaultTolerance,
			MinProbability: rtp.DefaultMinProbability,
			Bands:          rtp.DefaultBands(),
			CacheTTL:       5 * time.Minute,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cfg := Default()
	// Bands from the file replace the defaults rather than merging by index.
	cfg.RTP.Bands = nil

	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(cfg.RTP.Bands) == 0 {
		cfg.RTP.Bands = rtp.DefaultBands()
	}

	if err = validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%s: struct validation failed: %w", op, err)
	}

	return &cfg, nil
}

// MustLoad loads the file named by --config or CONFIG_PATH and panics on failure.
func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func fetchConfigPath() string {
	var res string

	if !flag.Parsed() {
		flag.StringVar(&res, "config", "", "path to config file")
		flag.Parse()
	}

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
