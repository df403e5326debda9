// Package config loads orbitviz settings from defaults, an optional config
// file, ORBITVIZ_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/orbit-visualizer/internal/logging"
	"github.com/signalsfoundry/orbit-visualizer/internal/observability"
	"github.com/signalsfoundry/orbit-visualizer/model"
	"github.com/signalsfoundry/orbit-visualizer/render"
	"github.com/signalsfoundry/orbit-visualizer/timectrl"
)

// EnvPrefix prefixes every environment variable, e.g. ORBITVIZ_HTTP_ADDR.
const EnvPrefix = "ORBITVIZ"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full orbitviz configuration.
type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	GRPC       GRPCConfig       `mapstructure:"grpc"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Render     RenderConfig     `mapstructure:"render"`
	Stream     StreamConfig     `mapstructure:"stream"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// HTTPConfig configures the HTTP listener and its timeouts.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GRPCConfig configures the gRPC health listener.
type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// SimulationConfig holds the parameters of the run started at boot.
type SimulationConfig struct {
	InitialLatitude  float64       `mapstructure:"initial_latitude"`
	InitialLongitude float64       `mapstructure:"initial_longitude"`
	Direction        float64       `mapstructure:"direction"`
	Speed            float64       `mapstructure:"speed"`
	AnimationSpeed   float64       `mapstructure:"animation_speed"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	Mode             string        `mapstructure:"mode"` // realtime | accelerated
	AutoStart        bool          `mapstructure:"auto_start"`
}

// RenderConfig sizes the globe trails and the Mercator map.
type RenderConfig struct {
	TrailCapacity    int     `mapstructure:"trail_capacity"`
	MapWidth         int     `mapstructure:"map_width"`
	MapHeight        int     `mapstructure:"map_height"`
	MapWestLongitude float64 `mapstructure:"map_west_longitude"`
	MapFrame         string  `mapstructure:"map_frame"`
	MapMaxSegments   int     `mapstructure:"map_max_segments"`
	BaseMap          string  `mapstructure:"base_map"`
}

// StreamConfig bounds the websocket frame stream.
type StreamConfig struct {
	MaxFPS          float64 `mapstructure:"max_fps"`
	Burst           int     `mapstructure:"burst"`
	MaxClientsPerIP int     `mapstructure:"max_clients_per_ip"`
}

// LogConfig selects the log level and handler format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig mirrors observability.TracingConfig.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"config":            "",
	"http-addr":         "http.addr",
	"grpc-addr":         "grpc.addr",
	"grpc":              "grpc.enabled",
	"latitude":          "simulation.initial_latitude",
	"longitude":         "simulation.initial_longitude",
	"direction":         "simulation.direction",
	"speed":             "simulation.speed",
	"animation-speed":   "simulation.animation_speed",
	"tick-interval":     "simulation.tick_interval",
	"mode":              "simulation.mode",
	"auto-start":        "simulation.auto_start",
	"trail-capacity":    "render.trail_capacity",
	"map-width":         "render.map_width",
	"map-height":        "render.map_height",
	"map-west":          "render.map_west_longitude",
	"map-frame":         "render.map_frame",
	"map-max-segments":  "render.map_max_segments",
	"base-map":          "render.base_map",
	"log-level":         "log.level",
	"log-format":        "log.format",
	"tracing":           "tracing.enabled",
	"tracing-exporter":  "tracing.exporter",
	"tracing-endpoint":  "tracing.endpoint",
	"stream-max-fps":    "stream.max_fps",
	"stream-per-ip-cap": "stream.max_clients_per_ip",
}

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	orbit := model.DefaultOrbitParameters()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.addr", ":9090")

	v.SetDefault("simulation.initial_latitude", orbit.InitialLatitude)
	v.SetDefault("simulation.initial_longitude", orbit.InitialLongitude)
	v.SetDefault("simulation.direction", orbit.PlaneDirection)
	v.SetDefault("simulation.speed", orbit.ScaleFactor)
	v.SetDefault("simulation.animation_speed", 1.0)
	v.SetDefault("simulation.tick_interval", timectrl.DefaultInterval)
	v.SetDefault("simulation.mode", "realtime")
	v.SetDefault("simulation.auto_start", false)

	v.SetDefault("render.trail_capacity", render.DefaultTrailCapacity)
	v.SetDefault("render.map_width", render.DefaultMapWidth)
	v.SetDefault("render.map_height", render.DefaultMapHeight)
	v.SetDefault("render.map_west_longitude", -180.0)
	v.SetDefault("render.map_frame", string(model.FrameAbsolute))
	v.SetDefault("render.map_max_segments", 0)
	v.SetDefault("render.base_map", "")

	v.SetDefault("stream.max_fps", 30.0)
	v.SetDefault("stream.burst", 1)
	v.SetDefault("stream.max_clients_per_ip", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", observability.DefaultServiceName)
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// RegisterFlags adds the command-line flags understood by BindFlags. Flag
// defaults are placeholders; only flags the user sets override lower layers.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (yaml, json or toml)")
	fs.String("http-addr", "", "HTTP listen address")
	fs.String("grpc-addr", "", "gRPC health listen address")
	fs.Bool("grpc", true, "serve the gRPC health service")
	fs.Float64("latitude", 0, "initial latitude in degrees")
	fs.Float64("longitude", 0, "initial longitude in degrees")
	fs.Float64("direction", 0, "orbit plane direction in degrees, measured from east towards north")
	fs.Float64("speed", 0, "scale factor of the run")
	fs.Float64("animation-speed", 0, "phase advance per tick, in hundredths of a radian")
	fs.Duration("tick-interval", 0, "real-time tick interval")
	fs.String("mode", "", "tick pacing: realtime or accelerated")
	fs.Bool("auto-start", false, "start a run at boot")
	fs.Int("trail-capacity", 0, "points kept by each globe trail")
	fs.Int("map-width", 0, "map raster width in pixels")
	fs.Int("map-height", 0, "map raster height in pixels")
	fs.Float64("map-west", 0, "longitude at the left edge of the map")
	fs.String("map-frame", "", "map reference frame: absolute or earth")
	fs.Int("map-max-segments", 0, "cap on map trail segments (0 keeps all)")
	fs.String("base-map", "", "PNG or JPEG drawn under the map grid")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("log-format", "", "text or json")
	fs.Bool("tracing", false, "enable OpenTelemetry tracing")
	fs.String("tracing-exporter", "", "stdout or otlp")
	fs.String("tracing-endpoint", "", "OTLP gRPC endpoint")
	fs.Float64("stream-max-fps", 0, "maximum frames per second sent to each stream client")
	fs.Int("stream-per-ip-cap", 0, "maximum concurrent stream clients per IP")
}

// BindFlags binds every registered flag present in fs to its config key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if key == "" {
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads configuration into a new Config. configFile may be empty, in
// which case orbitviz.{yaml,json,toml} is looked up in the working
// directory and $HOME/.orbitviz; a missing file is not an error. fs may be
// nil.
func Load(configFile string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if configFile == "" {
			if f := fs.Lookup("config"); f != nil {
				configFile = f.Value.String()
			}
		}
		if err := BindFlags(v, fs); err != nil {
			return Config{}, err
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("orbitviz")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.orbitviz")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if err := c.OrbitParameters().Validate(); err != nil {
		add("simulation: %v", err)
	}
	if !finite(c.Simulation.AnimationSpeed) || c.Simulation.AnimationSpeed < 0 {
		add("simulation.animation_speed %v must be finite and not negative", c.Simulation.AnimationSpeed)
	}
	if c.Simulation.TickInterval <= 0 {
		add("simulation.tick_interval must be positive")
	}
	if _, err := parseMode(c.Simulation.Mode); err != nil {
		add("simulation.mode: %v", err)
	}
	if c.Render.TrailCapacity <= 0 {
		add("render.trail_capacity must be positive")
	}
	if c.Render.MapWidth <= 0 || c.Render.MapHeight <= 0 {
		add("render map size %dx%d must be positive", c.Render.MapWidth, c.Render.MapHeight)
	}
	if !finite(c.Render.MapWestLongitude) {
		add("render.map_west_longitude must be finite")
	}
	if !model.ReferenceFrame(c.Render.MapFrame).Valid() {
		add("render.map_frame %q must be absolute or earth", c.Render.MapFrame)
	}
	if c.Render.MapMaxSegments < 0 {
		add("render.map_max_segments must not be negative")
	}
	if !(c.Stream.MaxFPS > 0) {
		add("stream.max_fps must be positive")
	}
	if c.Stream.Burst <= 0 {
		add("stream.burst must be positive")
	}
	if c.Stream.MaxClientsPerIP <= 0 {
		add("stream.max_clients_per_ip must be positive")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		add("tracing.sample_ratio %v must be within [0, 1]", c.Tracing.SampleRatio)
	}
	switch strings.ToLower(c.Tracing.Exporter) {
	case "stdout", "otlp", "otlpgrpc":
	default:
		add("tracing.exporter %q must be stdout or otlp", c.Tracing.Exporter)
	}
	return errors.Join(errs...)
}

// OrbitParameters returns the boot run parameters.
func (c Config) OrbitParameters() model.OrbitParameters {
	return model.OrbitParameters{
		InitialLatitude:  c.Simulation.InitialLatitude,
		InitialLongitude: c.Simulation.InitialLongitude,
		PlaneDirection:   c.Simulation.Direction,
		ScaleFactor:      c.Simulation.Speed,
	}
}

// TimeMode returns the tick pacing mode. It assumes Validate passed.
func (c Config) TimeMode() timectrl.Mode {
	m, _ := parseMode(c.Simulation.Mode)
	return m
}

// MapConfig returns the map renderer settings, without the base map image.
func (c Config) MapConfig() render.MapConfig {
	return render.MapConfig{
		Width:         c.Render.MapWidth,
		Height:        c.Render.MapHeight,
		WestLongitude: c.Render.MapWestLongitude,
		Frame:         model.ReferenceFrame(c.Render.MapFrame),
		MaxSegments:   c.Render.MapMaxSegments,
	}
}

// LoggingConfig returns the logger settings.
func (c Config) LoggingConfig() logging.Config {
	return logging.Config{Level: c.Log.Level, Format: c.Log.Format, AddSource: true}
}

// TracingConfig returns the tracer provider settings.
func (c Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    strings.ToLower(c.Tracing.Exporter),
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}

func parseMode(s string) (timectrl.Mode, error) {
	switch strings.ToLower(s) {
	case "realtime", "real-time", "":
		return timectrl.RealTime, nil
	case "accelerated":
		return timectrl.Accelerated, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
