// The custody-server command serves the wallet key custody API.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	// Registers the postgres driver for the shard store.
	_ "github.com/lib/pq"

	"github.com/openclave/wallet-custody-backend/blobguard"
	"github.com/openclave/wallet-custody-backend/cmd/flags"
	"github.com/openclave/wallet-custody-backend/custody"
	"github.com/openclave/wallet-custody-backend/httpserver"
	"github.com/openclave/wallet-custody-backend/interfaces"
	"github.com/openclave/wallet-custody-backend/storage"
)

func main() {
	app := &cli.App{
		Name:  "custody-server",
		Usage: "Serve the wallet key custody API",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.ShardStoreFlag,
			flags.RecoveryStoreFlag,
			flags.MasterSecretFlag,
			flags.ChecksumSaltFlag,
			flags.BlobProtectorFlag,
			flags.VaultAddrFlag,
			flags.VaultTokenFlag,
			flags.VaultMountFlag,
			flags.VaultKeyFlag,
		}, flags.CommonFlags...),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	masterSecret := cCtx.String(flags.MasterSecretFlag.Name)
	checksumSalt := cCtx.String(flags.ChecksumSaltFlag.Name)

	master, err := custody.NewStaticMasterKey([]byte(masterSecret))
	if err != nil {
		logger.Error("Invalid master secret", "err", err)
		return err
	}

	factory := storage.NewFactory(logger)

	shardStore, err := factory.ShardStoreFor(cCtx.String(flags.ShardStoreFlag.Name))
	if err != nil {
		logger.Error("Failed to create shard store", "err", err)
		return err
	}

	recoveryRegistry, err := factory.RecoveryRegistryFor(cCtx.String(flags.RecoveryStoreFlag.Name))
	if err != nil {
		logger.Error("Failed to create recovery registry", "err", err)
		return err
	}

	blobs, err := setupBlobProtector(cCtx, logger, []byte(masterSecret))
	if err != nil {
		logger.Error("Failed to create blob protector", "err", err)
		return err
	}

	manager, err := custody.NewManager(
		custody.Config{ChecksumSalt: []byte(checksumSalt)},
		master,
		shardStore,
		recoveryRegistry,
		blobs,
		logger,
	)
	if err != nil {
		logger.Error("Failed to create lifecycle manager", "err", err)
		return err
	}

	srv, err := httpserver.New(flags.ConfigureServer(cCtx, logger), httpserver.NewHandler(manager, logger))
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	srv.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	srv.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}

func setupBlobProtector(cCtx *cli.Context, logger *slog.Logger, masterSecret []byte) (interfaces.BlobProtector, error) {
	switch cCtx.String(flags.BlobProtectorFlag.Name) {
	case "vault":
		return blobguard.NewVaultProtector(
			cCtx.String(flags.VaultAddrFlag.Name),
			cCtx.String(flags.VaultTokenFlag.Name),
			cCtx.String(flags.VaultMountFlag.Name),
			cCtx.String(flags.VaultKeyFlag.Name),
			logger,
		)
	case "static":
		return blobguard.NewStaticProtector(masterSecret)
	default:
		return nil, fmt.Errorf("%w: unknown blob protector: %s", interfaces.ErrConfiguration, cCtx.String(flags.BlobProtectorFlag.Name))
	}
}
