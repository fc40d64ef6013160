package fpgamm

// this file contains all the code that directly uses the viper package
import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jbrzusto/fpgamm/fpga"
	"github.com/jbrzusto/fpgamm/matrix"
	"github.com/jbrzusto/fpgamm/sim"
	"github.com/jbrzusto/fpgamm/wire"
)

// Config is everything a run needs to know about the board and the link.
type Config struct {
	Mode     string // one of the Variants keys
	Simulate bool   // use sim devices instead of /dev/mem
	Once     bool   // run a single pipeline and return
	Progress int    // accepted fields between progress lines; 0 for none
	MatMul   string `mapstructure:"matmul"` // "per-term" or "sum"

	Serial struct {
		Device string
	}
	Mem struct {
		Device string
	}
	FIFO struct {
		Base      uint64
		PollLimit int           `mapstructure:"poll_limit"`
		PollDelay time.Duration `mapstructure:"poll_delay"`
	} `mapstructure:"fifo"`
	DMA struct {
		Base      uint64
		TxBuffer  uint64        `mapstructure:"tx_buffer"`
		RxBuffer  uint64        `mapstructure:"rx_buffer"`
		PollLimit int           `mapstructure:"poll_limit"`
		PollDelay time.Duration `mapstructure:"poll_delay"`
	} `mapstructure:"dma"`
	Timer struct {
		Base uint64
	}
	Sim struct {
		FIFODepth int `mapstructure:"fifo_depth"`
		Latency   int
	}
}

// ErrBadConfig means a configuration value is out of range.
var ErrBadConfig = errors.New("fpgamm: bad configuration")

// setDefaultConfig gives every key a value matching the reference block
// design, so the program runs with no config file at all.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("mode", ModeFIFO)
	v.SetDefault("simulate", false)
	v.SetDefault("once", false)
	v.SetDefault("progress", wire.ProgressEvery)
	v.SetDefault("matmul", matrix.ShiftPerTerm.String())
	v.SetDefault("serial.device", "/dev/ttyPS0")
	v.SetDefault("mem.device", "/dev/mem")
	v.SetDefault("fifo.base", fpga.FIFO_BASE_ADDR)
	v.SetDefault("fifo.poll_limit", 0)
	v.SetDefault("fifo.poll_delay", "0s")
	v.SetDefault("dma.base", fpga.DMA_BASE_ADDR)
	v.SetDefault("dma.tx_buffer", fpga.TX_BUFFER_BASE)
	v.SetDefault("dma.rx_buffer", fpga.RX_BUFFER_BASE)
	v.SetDefault("dma.poll_limit", 1000000)
	v.SetDefault("dma.poll_delay", "1us")
	v.SetDefault("timer.base", fpga.TIMER_BASE_ADDR)
	v.SetDefault("sim.fifo_depth", sim.DefaultDepth)
	v.SetDefault("sim.latency", sim.DefaultLatency)
}

// NewViper returns a viper instance with defaults set and environment
// overrides enabled: FPGAMM_DMA_POLL_LIMIT overrides dma.poll_limit.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaultConfig(v)
	v.SetEnvPrefix("fpgamm")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from a TOML-formatted file.  If file
// is empty, it looks for fpgamm.toml in the /opt folder (the top-level
// of the SD card on the board image) and then in the current directory.
// Returns true if a config file was read; a missing file is not an
// error.
func LoadConfig(v *viper.Viper, file string) (bool, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("fpgamm") // name of config file (without extension)
		v.AddConfigPath("/opt")   // path to look for the config file in
		v.AddConfigPath(".")      // optionally look for config in the working directory
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		return false, fmt.Errorf("fpgamm: reading config: %w", err)
	}
	return true, nil
}

// ConfigFrom decodes and validates the settings held by v.
func ConfigFrom(v *viper.Viper) (*Config, error) {
	c := new(Config)
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("fpgamm: decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks values that the devices cannot check themselves.
func (c *Config) Validate() error {
	if _, ok := Variants[c.Mode]; !ok {
		return fmt.Errorf("%w: mode %q; want %s, %s or %s", ErrBadConfig, c.Mode, ModeFIFO, ModeFIFOAccel, ModeDMA)
	}
	if _, err := matrix.ParseVariant(c.MatMul); err != nil {
		return fmt.Errorf("%w: %v", ErrBadConfig, err)
	}
	if c.Progress < 0 {
		return fmt.Errorf("%w: progress %d is negative", ErrBadConfig, c.Progress)
	}
	if c.FIFO.PollLimit < 0 || c.DMA.PollLimit < 0 {
		return fmt.Errorf("%w: negative poll limit", ErrBadConfig)
	}
	if c.Simulate {
		if c.Sim.FIFODepth <= 0 {
			return fmt.Errorf("%w: sim.fifo_depth %d", ErrBadConfig, c.Sim.FIFODepth)
		}
		if c.Sim.Latency <= 0 {
			return fmt.Errorf("%w: sim.latency %d", ErrBadConfig, c.Sim.Latency)
		}
	}
	return nil
}
