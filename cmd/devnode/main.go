// Command devnode runs the FHE2048 reference ledger behind JSON-RPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/config"
	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/crypto/certgen"
	"github.com/tolelom/fhe2048/devnet"
	"github.com/tolelom/fhe2048/events"
	"github.com/tolelom/fhe2048/ledger"
	"github.com/tolelom/fhe2048/rpc"
	"github.com/tolelom/fhe2048/storage"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	writeCfg := flag.Bool("init", false, "write the effective config to -config and exit")
	genCerts := flag.String("gencerts", "", "write a CA plus server and client certs into the given directory and exit")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *writeCfg {
		if err := config.Save(cfg, *cfgPath); err != nil {
			log.Fatalf("save config: %v", err)
		}
		fmt.Printf("Wrote %s\n", *cfgPath)
		return
	}

	if *genCerts != "" {
		files, err := certgen.Generate(*genCerts)
		if err != nil {
			log.Fatalf("gencerts: %v", err)
		}
		fmt.Printf("Certificates written to %s\n", *genCerts)
		fmt.Printf("node.tls:   {\"ca\": %q, \"cert\": %q, \"key\": %q}\n", files.CACert, files.ServerCert, files.ServerKey)
		fmt.Printf("client.tls: {\"ca\": %q, \"cert\": %q, \"key\": %q}\n", files.CACert, files.ClientCert, files.ClientKey)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	logger := config.NewLogger(os.Stderr, cfg.LogLevel)
	if cfg.JWTSecret == "" {
		logger.Warn(config.EnvJWTSecret + " not set; RPC is unauthenticated")
	}

	// ---- open DB ----
	if err := os.MkdirAll(cfg.Node.DataDir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir data dir")
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.Node.DataDir, "chain"))
	if err != nil {
		return errors.Wrap(err, "open db")
	}
	defer db.Close()

	// ---- ledger ----
	var contract crypto.Address
	if cfg.Node.Contract != "" {
		if contract, err = crypto.ParseAddress(cfg.Node.Contract); err != nil {
			return errors.Wrap(err, "node.contract")
		}
	}
	emitter := events.NewEmitter()
	node, err := devnet.NewNode(db, devnet.Config{
		ChainID:  cfg.Node.ChainID,
		Contract: contract,
		WinScore: cfg.Node.WinScore,
		Logger:   logger,
		Emitter:  emitter,
	})
	if err != nil {
		return errors.Wrap(err, "start ledger")
	}
	logger.Info("ledger ready",
		"chain_id", node.ChainID(),
		"contract", node.ContractAddress(),
		"height", node.Height(),
		"state_root", node.StateRoot())

	if err := recordDeployment(cfg.Node.Deployments, node); err != nil {
		return err
	}

	// ---- RPC ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := rpc.NewServer(cfg.Node.RPCAddr, rpc.NewHandler(node), emitter, []byte(cfg.JWTSecret), logger)
	tlsCfg, err := config.ServerTLS(cfg.Node.TLS)
	if err != nil {
		return err
	}
	if tlsCfg != nil {
		srv.UseTLS(tlsCfg)
	}
	err = srv.Run(ctx, func(addr net.Addr) {
		logger.Info("RPC listening", "addr", addr.String())
	})
	logger.Info("shutdown complete", "height", node.Height())
	return err
}

// recordDeployment adds the node's contract to the address book at path so
// clients on the same machine find it.
func recordDeployment(path string, node *devnet.Node) error {
	if path == "" {
		return nil
	}
	book, err := ledger.LoadAddressBook(path)
	if errors.Is(err, os.ErrNotExist) {
		book, err = ledger.AddressBook{}, nil
	}
	if err != nil {
		return err
	}
	book.Set(ledger.Deployment{
		Address:   node.ContractAddress(),
		ChainID:   node.ChainID(),
		ChainName: "devnet",
	})
	return book.Save(path)
}
