package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/openclave/wallet-custody-backend/common"
	"github.com/openclave/wallet-custody-backend/httpserver"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *httpserver.HTTPServerConfig {
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for the wallet API",
}

var ShardStoreFlag = &cli.StringFlag{
	Name:    "shard-store-uri",
	Value:   "memory://",
	Usage:   "shard store location (postgres://... or memory://)",
	EnvVars: []string{"CUSTODY_SHARD_STORE_URI"},
}

var RecoveryStoreFlag = &cli.StringFlag{
	Name:    "recovery-store-uri",
	Value:   "memory://",
	Usage:   "recovery registry location (file://..., s3://... or memory://)",
	EnvVars: []string{"CUSTODY_RECOVERY_STORE_URI"},
}

var MasterSecretFlag = &cli.StringFlag{
	Name:    "master-secret",
	Usage:   "operator master secret for server-shard encryption, at least 32 bytes",
	EnvVars: []string{"CUSTODY_MASTER_SECRET"},
}

var ChecksumSaltFlag = &cli.StringFlag{
	Name:    "checksum-salt",
	Usage:   "server-side salt mixed into shard checksums",
	EnvVars: []string{"CUSTODY_CHECKSUM_SALT"},
}

var BlobProtectorFlag = &cli.StringFlag{
	Name:  "blob-protector",
	Value: "static",
	Usage: "blob protection layer: static or vault",
}

var VaultAddrFlag = &cli.StringFlag{
	Name:    "vault-addr",
	Value:   "http://127.0.0.1:8200",
	Usage:   "Vault address for the transit blob protector",
	EnvVars: []string{"VAULT_ADDR"},
}

var VaultTokenFlag = &cli.StringFlag{
	Name:    "vault-token",
	Usage:   "Vault auth token for the transit blob protector",
	EnvVars: []string{"VAULT_TOKEN"},
}

var VaultMountFlag = &cli.StringFlag{
	Name:  "vault-transit-mount",
	Value: "transit",
	Usage: "Vault transit engine mount path",
}

var VaultKeyFlag = &cli.StringFlag{
	Name:  "vault-transit-key",
	Value: "wallet-custody",
	Usage: "Vault transit key name",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "wallet-custody",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
}
