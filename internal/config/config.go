// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	TargetWallet string   `mapstructure:"target_wallet"`
	PrivateKey   string   `mapstructure:"private_key"`
	RPCList      []string `mapstructure:"rpc_list"`
	WebSocketURL string   `mapstructure:"websocket_url"`
	EnhancedAPI  string   `mapstructure:"enhanced_api_url"`

	CopyAmountSOL   float64 `mapstructure:"copy_amount_sol"`
	SlippageBuyBPS  int     `mapstructure:"slippage_buy_bps"`
	SlippageSellBPS int     `mapstructure:"slippage_sell_bps"`
	MaxBuysPerToken int     `mapstructure:"max_buys_per_token"`
	TakeProfitROI   float64 `mapstructure:"take_profit_roi"`
	MinLiquidityUSD float64 `mapstructure:"min_liquidity_usd"`
	MinFDVUSD       float64 `mapstructure:"min_fdv_usd"`
	MaxFDVUSD       float64 `mapstructure:"max_fdv_usd"`

	DustFloorRaw   uint64  `mapstructure:"dust_floor_raw"`
	DustValueSOL   float64 `mapstructure:"dust_value_sol"`
	DataDir        string  `mapstructure:"data_dir"`
	ReportHour     int     `mapstructure:"report_hour"`
	SyncInterval   int     `mapstructure:"sync_interval"`
	ProfitInterval int     `mapstructure:"profit_interval"`
	PollInterval   int     `mapstructure:"poll_interval"`
	Retries        int     `mapstructure:"retries"`
	DebugLogging   bool    `mapstructure:"debug_logging"`

	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
	MailFrom     string `mapstructure:"mail_from"`
	MailTo       string `mapstructure:"mail_to"`
}

const (
	DefaultCopyAmountSOL   = 0.1
	DefaultSlippageBuyBPS  = 100
	DefaultSlippageSellBPS = 200
	DefaultMaxBuysPerToken = 3
	DefaultTakeProfitROI   = 10.0
	DefaultDustFloorRaw    = 100
	DefaultDustValueSOL    = 0.05
	DefaultReportHour      = 9
	DefaultSyncInterval    = 20
	DefaultProfitInterval  = 10
	DefaultPollInterval    = 60
	DefaultRetries         = 3
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"copy_amount_sol":    DefaultCopyAmountSOL,
		"slippage_buy_bps":   DefaultSlippageBuyBPS,
		"slippage_sell_bps":  DefaultSlippageSellBPS,
		"max_buys_per_token": DefaultMaxBuysPerToken,
		"take_profit_roi":    DefaultTakeProfitROI,
		"dust_floor_raw":     DefaultDustFloorRaw,
		"dust_value_sol":     DefaultDustValueSOL,
		"data_dir":           "data",
		"report_hour":        DefaultReportHour,
		"sync_interval":      DefaultSyncInterval,
		"profit_interval":    DefaultProfitInterval,
		"poll_interval":      DefaultPollInterval,
		"retries":            DefaultRetries,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.TargetWallet == "" {
		return errors.New("missing target_wallet in configuration")
	}
	if cfg.PrivateKey == "" {
		return errors.New("missing private_key in configuration")
	}
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	if cfg.WebSocketURL == "" {
		return errors.New("missing websocket_url in configuration")
	}
	if err := validateURLWithCache(cfg.WebSocketURL, "ws"); err != nil {
		return errors.New("invalid WebSocket URL protocol")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.EnhancedAPI == "" {
		return errors.New("missing enhanced_api_url in configuration")
	}
	if err := validateURLWithCache(cfg.EnhancedAPI, "http"); err != nil {
		return errors.New("invalid enhanced API URL protocol")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.CopyAmountSOL <= 0 {
		return errors.New("invalid copy_amount_sol")
	}
	if cfg.SlippageBuyBPS <= 0 || cfg.SlippageSellBPS <= 0 {
		return errors.New("invalid slippage")
	}
	if cfg.MaxBuysPerToken <= 0 {
		return errors.New("invalid max_buys_per_token")
	}
	if cfg.TakeProfitROI <= 0 {
		return errors.New("invalid take_profit_roi")
	}
	if cfg.ReportHour < 0 || cfg.ReportHour > 23 {
		return errors.New("invalid report_hour")
	}
	if cfg.SyncInterval <= 0 || cfg.ProfitInterval <= 0 || cfg.PollInterval <= 0 {
		return errors.New("invalid monitor interval")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("COPYBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envKey := v.GetString("PRIVATE_KEY")
	if envKey != "" {
		cfg.PrivateKey = envKey
	}

	envTarget := v.GetString("TARGET_WALLET")
	if envTarget != "" {
		cfg.TargetWallet = envTarget
	}

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
	return nil
}
