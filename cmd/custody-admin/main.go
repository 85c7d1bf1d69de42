// The custody-admin command holds operator tooling for the custody
// service, currently master-secret escrow management.
package main

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/openclave/wallet-custody-backend/cmd/flags"
	"github.com/openclave/wallet-custody-backend/custody"
)

var sharesFlag = &cli.IntFlag{
	Name:  "shares",
	Value: 5,
	Usage: "number of administrator shares to produce",
}

var thresholdFlag = &cli.IntFlag{
	Name:  "threshold",
	Value: 3,
	Usage: "shares required to reconstruct the master secret",
}

func main() {
	app := &cli.App{
		Name:  "custody-admin",
		Usage: "Operator tooling for the wallet custody service",
		Commands: []*cli.Command{
			{
				Name:   "split-master-secret",
				Usage:  "Split the operator master secret into administrator shares",
				Flags:  append([]cli.Flag{flags.MasterSecretFlag, sharesFlag, thresholdFlag}, flags.CommonFlags...),
				Action: runSplit,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// runSplit prints one base64 share per line. The operator distributes them
// and erases the master secret from the environment afterwards.
func runSplit(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	masterSecret := []byte(cCtx.String(flags.MasterSecretFlag.Name))
	totalShares := cCtx.Int(sharesFlag.Name)
	threshold := cCtx.Int(thresholdFlag.Name)

	shares, err := custody.SplitMasterSecret(masterSecret, totalShares, threshold)
	if err != nil {
		logger.Error("Failed to split master secret", "err", err)
		return err
	}

	for i, share := range shares {
		fmt.Printf("share %d: %s\n", i+1, base64.StdEncoding.EncodeToString(share))
	}

	logger.Info("Master secret split",
		"shares", totalShares,
		"threshold", threshold)
	return nil
}
