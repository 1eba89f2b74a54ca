package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/drone/signal"
	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tolelom/indiechain/config"
	"github.com/tolelom/indiechain/consensus"
	"github.com/tolelom/indiechain/core"
	"github.com/tolelom/indiechain/events"
	"github.com/tolelom/indiechain/indexer"
	"github.com/tolelom/indiechain/rpc"
	"github.com/tolelom/indiechain/storage"
	"github.com/tolelom/indiechain/vm"
	"github.com/tolelom/indiechain/wallet"

	// transaction handlers register themselves in init
	_ "github.com/tolelom/indiechain/vm/modules/asset"
	_ "github.com/tolelom/indiechain/vm/modules/authority"
	_ "github.com/tolelom/indiechain/vm/modules/credit"
	_ "github.com/tolelom/indiechain/vm/modules/game"
	_ "github.com/tolelom/indiechain/vm/modules/market"
	_ "github.com/tolelom/indiechain/vm/modules/mint"
	_ "github.com/tolelom/indiechain/vm/modules/transfer"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run a validator node: block production and the rpc server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := signal.WithContext(cmd.Context())
		log := logger.FromContext(ctx).WithField("node", cfg.NodeID)
		ctx = logger.WithContext(ctx, log)

		keyPath, _ := cmd.Flags().GetString("key")
		privKey, err := wallet.LoadKey(keyPath, keystorePassword())
		if err != nil {
			return fmt.Errorf("load validator key: %w", err)
		}

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return err
		}
		db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "chain"))
		if err != nil {
			return err
		}
		defer db.Close()

		state := storage.NewStateDB(db)
		bc := core.NewBlockchain(storage.NewBlockStore(db))
		if err := bc.Init(); err != nil {
			return fmt.Errorf("blockchain init: %w", err)
		}
		if bc.Tip() == nil {
			genesis, err := config.CreateGenesisBlock(cfg, state, privKey)
			if err != nil {
				return fmt.Errorf("genesis: %w", err)
			}
			if err := bc.AddBlock(genesis); err != nil {
				return fmt.Errorf("add genesis: %w", err)
			}
			log.WithField("hash", genesis.Hash).Info("genesis block committed")
		}

		emitter := events.NewEmitter()
		idx := indexer.New(db, emitter)
		mempool := core.NewMempool(cfg.Genesis.ChainID)
		exec := vm.NewExecutor(state, emitter)
		poa := consensus.New(cfg, privKey, consensus.Node{
			Chain: bc, State: state, Mempool: mempool, Exec: exec, Emitter: emitter,
		})

		handler := rpc.NewHandler(bc, mempool, state, idx, cfg.Genesis.ChainID)
		server := rpc.NewServer(fmt.Sprintf(":%d", cfg.RPCPort), handler, cfg.CORSOrigins, rootCmd.Version)

		log.WithField("validator", privKey.Public().Hex()).
			WithField("height", bc.Height()).
			Info("node started")

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return poa.Run(gctx, cfg.BlockInterval()) })
		g.Go(func() error { return server.Run(gctx) })
		if err := g.Wait(); err != nil && ctx.Err() == nil {
			return err
		}
		log.Info("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("key", "validator.key", "validator keystore file")
}
