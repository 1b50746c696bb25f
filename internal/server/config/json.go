package config

import (
	"encoding/json"
	"os"

	"github.com/jagcoaching/speechcoach/internal/flagx"
	"github.com/jagcoaching/speechcoach/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations use timex.Duration so
// that both "30m"/"7d" strings and integer nanoseconds are accepted.
type JsonConfig struct {
	Env       string `json:"env"`
	LogFormat string `json:"log_format"`
	LogLevel  string `json:"log_level"`

	EndpointAddrHTTP string `json:"endpoint_addr_http"`
	EndpointAddrGRPC string `json:"endpoint_addr_grpc"`

	StorageDriver string `json:"storage_driver"`
	DatabaseDSN   string `json:"database_dsn"`
	MongoDatabase string `json:"mongo_database"`

	SecretKey                    string         `json:"secret_key"`
	SigningAlgorithm             string         `json:"signing_algorithm"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	TokenSweepInterval           timex.Duration `json:"token_sweep_interval"`

	RedisAddr       string         `json:"redis_addr"`
	LoginRateLimit  int            `json:"login_rate_limit"`
	LoginRateWindow timex.Duration `json:"login_rate_window"`

	TrustProxyHeaders bool `json:"trust_proxy_headers"`

	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	AnalyzerURL     string         `json:"analyzer_url"`
	AnalyzerTimeout timex.Duration `json:"analyzer_timeout"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		Env:                          c.Env,
		LogFormat:                    c.LogFormat,
		LogLevel:                     c.LogLevel,
		EndpointAddrHTTP:             c.EndpointAddrHTTP,
		EndpointAddrGRPC:             c.EndpointAddrGRPC,
		StorageDriver:                c.StorageDriver,
		DatabaseDSN:                  c.DatabaseDSN,
		MongoDatabase:                c.MongoDatabase,
		SecretKey:                    c.SecretKey,
		SigningAlgorithm:             c.SigningAlgorithm,
		AccessTokenValidityDuration:  timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: c.RefreshTokenValidityDuration},
		TokenSweepInterval:           timex.Duration{Duration: c.TokenSweepInterval},
		RedisAddr:                    c.RedisAddr,
		LoginRateLimit:               c.LoginRateLimit,
		LoginRateWindow:              timex.Duration{Duration: c.LoginRateWindow},
		TrustProxyHeaders:            c.TrustProxyHeaders,
		S3RootUser:                   c.S3RootUser,
		S3RootPassword:               c.S3RootPassword,
		S3Bucket:                     c.S3Bucket,
		S3Region:                     c.S3Region,
		S3BaseEndpoint:               c.S3BaseEndpoint,
		AnalyzerURL:                  c.AnalyzerURL,
		AnalyzerTimeout:              timex.Duration{Duration: c.AnalyzerTimeout},
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.Env = j.Env
	c.LogFormat = j.LogFormat
	c.LogLevel = j.LogLevel
	c.EndpointAddrHTTP = j.EndpointAddrHTTP
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.StorageDriver = j.StorageDriver
	c.DatabaseDSN = j.DatabaseDSN
	c.MongoDatabase = j.MongoDatabase
	c.SecretKey = j.SecretKey
	c.SigningAlgorithm = j.SigningAlgorithm
	c.AccessTokenValidityDuration = j.AccessTokenValidityDuration.Duration
	c.RefreshTokenValidityDuration = j.RefreshTokenValidityDuration.Duration
	c.TokenSweepInterval = j.TokenSweepInterval.Duration
	c.RedisAddr = j.RedisAddr
	c.LoginRateLimit = j.LoginRateLimit
	c.LoginRateWindow = j.LoginRateWindow.Duration
	c.TrustProxyHeaders = j.TrustProxyHeaders
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.AnalyzerURL = j.AnalyzerURL
	c.AnalyzerTimeout = j.AnalyzerTimeout.Duration
}

// parseJson overlays values from the JSON file named by -c/-config (or
// SPEECHCOACH_CONFIG) onto config. Keys missing from the file keep their
// current value. An unreadable or invalid file panics.
func parseJson(config *Config) {
	path := flagx.ConfigFilePath(EnvPrefix + "_CONFIG")
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}
	c.apply(config)
}
