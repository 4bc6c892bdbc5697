package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "WATCHPARTY"

var ErrInvalid = errors.New("invalid configuration")

type (
	Config struct {
		APIListenAddr string          `mapstructure:"api_listen_addr"`
		WSListenAddr  string          `mapstructure:"ws_listen_addr"`
		Log           LogConfig       `mapstructure:"log"`
		WebSocket     WebSocketConfig `mapstructure:"websocket"`
		Rooms         RoomsConfig     `mapstructure:"rooms"`
		Engine        EngineConfig    `mapstructure:"engine"`
	}

	LogConfig struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	}

	WebSocketConfig struct {
		Path           string        `mapstructure:"path"`
		PingInterval   time.Duration `mapstructure:"ping_interval"`
		PongWait       time.Duration `mapstructure:"pong_wait"`
		WriteWait      time.Duration `mapstructure:"write_wait"`
		MaxMessageSize int64         `mapstructure:"max_message_size"`
		OutboxSize     int           `mapstructure:"outbox_size"`
		Compression    bool          `mapstructure:"compression"`
	}

	RoomsConfig struct {
		WelcomeDelay time.Duration `mapstructure:"welcome_delay"`
		IDLength     int           `mapstructure:"id_length"`
		IDGrowEvery  int           `mapstructure:"id_grow_every"`
	}

	EngineConfig struct {
		QueueSize int `mapstructure:"queue_size"`
	}
)

// flag name -> config key
var flagKeys = map[string]string{
	"api-listen-addr": "api_listen_addr",
	"ws-listen-addr":  "ws_listen_addr",
	"log-level":       "log.level",
	"log-pretty":      "log.pretty",
	"ws-path":         "websocket.path",
	"welcome-delay":   "rooms.welcome_delay",
}

// Load merges defaults, config file, environment and command line args,
// in order of increasing precedence.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("main", pflag.ContinueOnError)
	var (
		configFile = fs.StringP("config", "c", "", "path to config file")
	)
	fs.StringP("api-listen-addr", "a", ":8080", "api listen address")
	fs.StringP("ws-listen-addr", "w", ":3000", "websocket listen address")
	fs.StringP("log-level", "l", "info", "log level")
	fs.Bool("log-pretty", false, "human friendly log output")
	fs.String("ws-path", "/", "websocket endpoint path")
	fs.Duration("welcome-delay", time.Second, "delay of room welcome message")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse command line arguments: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if *configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_listen_addr", ":8080")
	v.SetDefault("ws_listen_addr", ":3000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("websocket.path", "/")
	v.SetDefault("websocket.ping_interval", 5*time.Second)
	v.SetDefault("websocket.pong_wait", 7*time.Second)
	v.SetDefault("websocket.write_wait", 5*time.Second)
	v.SetDefault("websocket.max_message_size", 9000)
	v.SetDefault("websocket.outbox_size", 64)
	v.SetDefault("websocket.compression", true)
	v.SetDefault("rooms.welcome_delay", time.Second)
	v.SetDefault("rooms.id_length", 4)
	v.SetDefault("rooms.id_grow_every", 10)
	v.SetDefault("engine.queue_size", 256)
}

func (cfg *Config) Validate() error {
	var errs []error
	if cfg.APIListenAddr == "" {
		errs = append(errs, errors.New("api listen address is empty"))
	}
	if cfg.WSListenAddr == "" {
		errs = append(errs, errors.New("websocket listen address is empty"))
	}
	if !strings.HasPrefix(cfg.WebSocket.Path, "/") {
		errs = append(errs, fmt.Errorf("websocket path %q must start with /", cfg.WebSocket.Path))
	}
	for name, d := range map[string]time.Duration{
		"websocket.ping_interval": cfg.WebSocket.PingInterval,
		"websocket.pong_wait":     cfg.WebSocket.PongWait,
		"websocket.write_wait":    cfg.WebSocket.WriteWait,
		"rooms.welcome_delay":     cfg.Rooms.WelcomeDelay,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if cfg.WebSocket.PongWait <= cfg.WebSocket.PingInterval {
		errs = append(errs, errors.New("websocket.pong_wait must be greater than websocket.ping_interval"))
	}
	if cfg.Rooms.IDLength < 1 {
		errs = append(errs, errors.New("rooms.id_length must be at least 1"))
	}
	if cfg.Rooms.IDGrowEvery < 1 {
		errs = append(errs, errors.New("rooms.id_grow_every must be at least 1"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalid}, errs...)...)
	}
	return nil
}
