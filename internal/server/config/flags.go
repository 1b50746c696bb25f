package config

import (
	"flag"
	"os"
	"time"

	"github.com/jagcoaching/speechcoach/internal/flagx"
	"github.com/jagcoaching/speechcoach/internal/timex"
)

var serverFlags = []string{"-a", "-G", "-D", "-d", "-s", "-t", "-r", "-R", "-u", "-p", "-b", "-g", "-e", "-z"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":8000")
//	-G string   gRPC health bind address, empty disables it
//	-D string   storage driver: postgres, mongo or memory
//	-d string   database DSN / mongodb URI
//	-s string   JWT HMAC secret key
//	-t int      access token lifetime, minutes
//	-r int      refresh token lifetime, days
//	-R string   Redis address
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g. "http://127.0.0.1:9000/")
//	-z string   speech analyzer URL
//
// os.Args is first filtered with flagx.FilterArgs so flags meant for other
// components do not break parsing. Parse errors panic.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run http server")
	fs.StringVar(&config.EndpointAddrGRPC, "G", config.EndpointAddrGRPC, "address and port to run grpc health server")
	fs.StringVar(&config.StorageDriver, "D", config.StorageDriver, "storage driver (postgres|mongo|memory)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration/time.Minute), "access token lifetime (in minutes)")
	refreshDays := fs.Int("r", int(config.RefreshTokenValidityDuration/timex.Day), "refresh token lifetime (in days)")

	fs.StringVar(&config.RedisAddr, "R", config.RedisAddr, "redis address")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.AnalyzerURL, "z", config.AnalyzerURL, "speech analyzer url")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Only override durations that were given explicitly, so sub-minute or
	// sub-day values from earlier sources survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshDays) * timex.Day
		}
	})
}
