// Command fhe2048 plays 2048 against the FHE2048 contract: scores are
// submitted encrypted and only the player can decrypt them.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"

	"github.com/tolelom/fhe2048/client"
	"github.com/tolelom/fhe2048/config"
	"github.com/tolelom/fhe2048/crypto"
	"github.com/tolelom/fhe2048/decryptsig"
	"github.com/tolelom/fhe2048/events"
	"github.com/tolelom/fhe2048/fhe"
	"github.com/tolelom/fhe2048/ledger"
	"github.com/tolelom/fhe2048/rpc"
	"github.com/tolelom/fhe2048/storage"
	"github.com/tolelom/fhe2048/wallet"
)

const usage = `usage: fhe2048 <command> [flags]

commands:
  genkey       create a player key
  play         play a game and submit it encrypted
  start        open a game session
  submit       submit a score for a session
  session      show a session, -decrypt to reveal it
  stats        show player stats, -decrypt to reveal the best score
  averages     compute and decrypt the global averages
  leaderboard  list players with their game counts
  players      show the public counters
  watch        stream ledger events
`

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"genkey":      cmdGenKey,
	"play":        cmdPlay,
	"start":       cmdStart,
	"submit":      cmdSubmit,
	"session":     cmdSession,
	"stats":       cmdStats,
	"averages":    cmdAverages,
	"leaderboard": cmdLeaderboard,
	"players":     cmdPlayers,
	"watch":       cmdWatch,
}

func main() {
	global := flag.NewFlagSet("fhe2048", flag.ExitOnError)
	cfgPath := global.String("config", "config.json", "path to config file")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = global.Parse(os.Args[1:])
	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}
	name, args := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadOrDefault(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e := &env{cfg: cfg, log: config.NewLogger(os.Stderr, cfg.LogLevel), in: bufio.NewReader(os.Stdin)}
	defer e.close()
	if err := cmd(ctx, e, args); err != nil {
		kind := client.KindOf(err)
		if kind != client.KindUnknown {
			fmt.Fprintf(os.Stderr, "error (%s): %v\n", kind, err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// env carries what the commands share. Connections are opened lazily.
type env struct {
	cfg *config.Config
	log *slog.Logger
	in  *bufio.Reader

	rpc     *rpc.Client
	wallet  *wallet.Wallet
	game    *client.GameClient
	closers []func() error
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.log.Warn("close", "error", err)
		}
	}
}

func (e *env) node() (*rpc.Client, error) {
	if e.rpc != nil {
		return e.rpc, nil
	}
	var opts []rpc.ClientOption
	if e.cfg.JWTSecret != "" {
		opts = append(opts, rpc.WithSecret([]byte(e.cfg.JWTSecret)))
	}
	tlsCfg, err := config.ClientTLS(e.cfg.Client.TLS)
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		opts = append(opts, rpc.WithTLS(tlsCfg))
	}
	e.rpc = rpc.Dial(e.cfg.Client.RPCURL, opts...)
	return e.rpc, nil
}

// client opens the game client for the configured key.
func (e *env) client(ctx context.Context, keyPath string, autoApprove bool) (*client.GameClient, error) {
	if e.game != nil {
		return e.game, nil
	}
	node, err := e.node()
	if err != nil {
		return nil, err
	}

	chainID := e.cfg.Client.ChainID
	if chainID == 0 {
		id, err := node.ChainID(ctx)
		if err != nil {
			return nil, err
		}
		chainID = id
	}

	priv, err := wallet.LoadKey(keyPath, passwordFromEnv(e))
	if err != nil {
		return nil, errors.Wrap(err, "load key")
	}
	opts := []wallet.Option{wallet.WithEmitter(events.NewEmitter())}
	if !autoApprove {
		opts = append(opts, wallet.WithConfirm(e.confirm))
	}
	e.wallet = wallet.New(priv, chainID, opts...)

	book, err := e.deployments(ctx, chainID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(e.cfg.Client.SignatureDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "mkdir signature dir")
	}
	db, err := storage.NewLevelDB(filepath.Clean(e.cfg.Client.SignatureDir))
	if err != nil {
		return nil, errors.Wrap(err, "open signature store")
	}
	e.closers = append(e.closers, db.Close)
	sigs := decryptsig.NewManager(decryptsig.NewDBStore(db),
		decryptsig.WithDurationDays(e.cfg.Client.PermitDays),
		decryptsig.WithLogger(e.log))

	w := e.wallet
	gc, err := client.New(client.Config{
		Identity:    w,
		Instances:   fhe.NewLoader(node, chainID, e.log),
		Signatures:  sigs,
		Deployments: book,
		Bind: func(addr crypto.Address, chainID uint64) ledger.Ledger {
			return node.Bind(addr, chainID, w)
		},
		Logger: e.log,
	})
	if err != nil {
		return nil, err
	}
	unwatch := gc.Watch(w.Events())
	e.closers = append(e.closers, func() error { unwatch(); return nil })
	e.game = gc
	return gc, nil
}

// deployments loads the address book, falling back to asking the node
// which contract it runs.
func (e *env) deployments(ctx context.Context, chainID uint64) (ledger.AddressBook, error) {
	book, err := ledger.LoadAddressBook(e.cfg.Client.Deployments)
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	node, err := e.node()
	if err != nil {
		return nil, err
	}
	addr, err := node.ContractAddress(ctx)
	if err != nil {
		return nil, err
	}
	book = ledger.AddressBook{}
	book.Set(ledger.Deployment{Address: addr, ChainID: chainID})
	return book, nil
}

func (e *env) confirm(_ context.Context, summary string) (bool, error) {
	fmt.Printf("%s\nSign? [y/N] ", summary)
	line, err := e.in.ReadString('\n')
	if err != nil && line == "" {
		return false, errors.Wrap(err, "read confirmation")
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// identityFlags adds the flags shared by commands that need a key.
func identityFlags(fs *flag.FlagSet, cfg *config.Config) (keyPath *string, yes *bool) {
	keyPath = fs.String("key", cfg.Client.KeyPath, "path to keystore file")
	yes = fs.Bool("yes", false, "approve decryption permits without asking")
	return keyPath, yes
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
