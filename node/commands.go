package node

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/shardnet/go-shard/api"
	"github.com/shardnet/go-shard/apps"
	"github.com/shardnet/go-shard/cmd"
	"github.com/shardnet/go-shard/common/types"
	"github.com/shardnet/go-shard/config"
	"github.com/shardnet/go-shard/da/celestia"
	"github.com/shardnet/go-shard/signing"
	"github.com/shardnet/go-shard/snapshot"
	"github.com/shardnet/go-shard/sql/checkpoint"
	"github.com/shardnet/go-shard/submit"
)

// Output formats of the cli commands.
const (
	OutputText = "text"
	OutputYAML = "yaml"
	OutputJSON = "json"
)

// GetCommand returns the go-shard command with all subcommands.
func GetCommand() *cobra.Command {
	conf := config.DefaultConfig()
	c := &cobra.Command{
		Use:           "go-shard",
		Short:         "based rollup node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath := cmd.AddFlags(c.PersistentFlags(), &conf)
	c.AddCommand(
		serveCommand(&conf, configPath),
		submitCommand(&conf, configPath),
		signerCommand(&conf, configPath),
		snapshotCommand(&conf, configPath),
		statusCommand(&conf, configPath),
		rootsCommand(&conf, configPath),
		versionCommand(),
	)
	return c
}

// configure loads the preset and the config file into conf. Flags given on the
// command line take precedence over both.
func configure(c *cobra.Command, configPath string, conf *config.Config) error {
	changed := map[string]string{}
	c.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})
	preset := conf.Preset // might be set via CLI flag
	if err := loadConfig(conf, preset, configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	// apply CLI args to config
	for name, value := range changed {
		if err := c.Flags().Set(name, value); err != nil {
			return fmt.Errorf("parsing flag %s: %w", name, err)
		}
	}
	types.SetAccountHRP(conf.AccountHRP)
	return nil
}

func serveCommand(conf *config.Config, configPath *string) *cobra.Command {
	var recoverFrom string
	c := &cobra.Command{
		Use:   "serve",
		Short: "start the node",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if err := configure(c, *configPath, conf); err != nil {
				return err
			}
			app := New(WithConfig(conf), WithLog(c.ErrOrStderr()))
			// os.Interrupt for all systems, syscall.SIGTERM is mainly for docker.
			ctx, cancel := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, app, recoverFrom)
		},
	}
	c.Flags().StringVar(&recoverFrom, "recover", "",
		"load the snapshot file into an empty data directory before starting")
	return c
}

func serve(ctx context.Context, app *App, recoverFrom string) error {
	if err := app.Lock(); err != nil {
		return fmt.Errorf("getting exclusive file lock: %w", err)
	}
	defer app.Unlock()

	if err := app.Initialize(); err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}
	if recoverFrom != "" {
		if err := app.Recover(ctx, recoverFrom); err != nil {
			app.Cleanup(ctx)
			return fmt.Errorf("recovering: %w", err)
		}
	}

	// This blocks until the context is finished or until an error is produced
	err := app.Start(ctx)
	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cleanupCancel()
	app.Cleanup(cleanupCtx)
	return err
}

func submitCommand(conf *config.Config, configPath *string) *cobra.Command {
	var (
		signer string
		nonce  uint64
	)
	c := &cobra.Command{
		Use:   "submit <tx-name> [field values...]",
		Short: "sign and post an application transaction",
		Long: "Values are parsed in the order of the fields declared by the application.\n" +
			"On success prints the inclusion reference <height>/<txid>.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if err := configure(c, *configPath, conf); err != nil {
				return err
			}
			req := submit.Request{TxName: args[0], Values: args[1:], Signer: signer}
			if c.Flags().Changed("nonce") {
				req.Nonce = &nonce
			}
			ref, err := submitTx(c.Context(), c.ErrOrStderr(), conf, req)
			if err != nil {
				return fmt.Errorf("%s: %w", submit.Kind(err), err)
			}
			fmt.Fprintln(c.OutOrStdout(), ref)
			return nil
		},
	}
	c.Flags().StringVar(&signer, "signer", "", "name of the key in the keystore")
	c.Flags().Uint64Var(&nonce, "nonce", 0, "nonce of the transaction, read from the node api by default")
	return c
}

func submitTx(ctx context.Context, output io.Writer, conf *config.Config, req submit.Request) (types.BlobRef, error) {
	app := New(WithConfig(conf), WithLog(output))
	application, err := apps.New(conf.App)
	if err != nil {
		return types.BlobRef{}, err
	}
	client, err := celestia.New(conf.DA.Celestia, celestia.WithLogger(app.addLogger(DALogger)))
	if err != nil {
		return types.BlobRef{}, err
	}
	opts := []submit.Opt{
		submit.WithLogger(app.addLogger(SubmitLogger)),
		submit.WithConfig(conf.Submit),
	}
	if req.Nonce == nil && conf.Submit.Nonce {
		nonces, err := api.NewClient(apiURL(conf.API.Listen), conf.API.Client,
			api.WithClientLogger(app.addLogger(APILogger)))
		if err != nil {
			return types.BlobRef{}, err
		}
		opts = append(opts, submit.WithNonceSource(nonces))
	}
	keystore := signing.NewKeystore(app.fs, conf.KeysDir())
	return submit.New(application, keystore, conf.Namespace, client, opts...).Submit(ctx, req)
}

// apiURL returns the url a local client uses to reach the api listening on address.
func apiURL(address string) string {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "http://" + address
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func signerCommand(conf *config.Config, configPath *string) *cobra.Command {
	c := &cobra.Command{
		Use:   "signer",
		Short: "manage transaction signing keys",
	}
	newCmd := &cobra.Command{
		Use:   "new <name>",
		Short: "generate a key and store it in the keystore",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if err := configure(c, *configPath, conf); err != nil {
				return err
			}
			app := New(WithConfig(conf), WithLog(c.ErrOrStderr()))
			signer, err := signing.NewKeystore(app.fs, conf.KeysDir()).Create(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "%s %s\n", args[0], signer.AccountID())
			return nil
		},
	}
	var output string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list keys in the keystore",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if err := configure(c, *configPath, conf); err != nil {
				return err
			}
			app := New(WithConfig(conf), WithLog(c.ErrOrStderr()))
			keys, err := signing.NewKeystore(app.fs, conf.KeysDir()).List()
			if err != nil {
				return err
			}
			if keys == nil {
				keys = []signing.KeyInfo{}
			}
			return write(c.OutOrStdout(), output, keys, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tACCOUNT\tPUBLIC KEY")
				for _, key := range keys {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", key.Name, key.AccountID, key.PublicKey)
				}
				tw.Flush()
			})
		},
	}
	listCmd.Flags().StringVarP(&output, "output", "o", OutputText, "output format: text, yaml or json")
	c.AddCommand(newCmd, listCmd)
	return c
}

func snapshotCommand(conf *config.Config, configPath *string) *cobra.Command {
	c := &cobra.Command{
		Use:   "snapshot",
		Short: "export the applied state",
	}
	var height uint64
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "write a snapshot of the state at a processed height into the data directory",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if err := configure(c, *configPath, conf); err != nil {
				return err
			}
			app := New(WithConfig(conf), WithLog(c.ErrOrStderr()))
			if err := app.openDatabase(); err != nil {
				return err
			}
			defer app.db.Close()
			at := types.Height(height)
			if !c.Flags().Changed("height") {
				last, err := checkpoint.Get(app.db)
				if err != nil {
					return fmt.Errorf("read last processed height: %w", err)
				}
				at = last
			}
			path, err := snapshot.Generate(c.Context(), app.fs, app.db, conf.DataDir(), app.meta(), at)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), path)
			return nil
		},
	}
	exportCmd.Flags().Uint64Var(&height, "height", 0, "processed height, the last one by default")
	c.AddCommand(exportCmd)
	return c
}

type statusOutput struct {
	LastProcessedHeight uint64 `yaml:"last_processed_height" json:"last_processed_height"`
	LoopState           string `yaml:"loop_state" json:"loop_state"`
	Namespace           string `yaml:"namespace" json:"namespace"`
	App                 string `yaml:"app" json:"app"`
	StateRoot           string `yaml:"state_root" json:"state_root"`
}

func statusCommand(conf *config.Config, configPath *string) *cobra.Command {
	var output string
	c := &cobra.Command{
		Use:   "status",
		Short: "query the status of a running node",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if err := configure(c, *configPath, conf); err != nil {
				return err
			}
			app := New(WithConfig(conf), WithLog(c.ErrOrStderr()))
			client, err := api.NewClient(apiURL(conf.API.Listen), conf.API.Client,
				api.WithClientLogger(app.addLogger(APILogger)))
			if err != nil {
				return err
			}
			status, err := client.Status(c.Context())
			if err != nil {
				return err
			}
			out := statusOutput{
				LastProcessedHeight: status.LastProcessedHeight.Uint64(),
				LoopState:           status.LoopState.String(),
				Namespace:           status.Namespace.String(),
				App:                 status.App,
				StateRoot:           status.StateRoot.String(),
			}
			return write(c.OutOrStdout(), output, out, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "height:\t%d\n", out.LastProcessedHeight)
				fmt.Fprintf(tw, "state:\t%s\n", out.LoopState)
				fmt.Fprintf(tw, "app:\t%s\n", out.App)
				fmt.Fprintf(tw, "namespace:\t%s\n", out.Namespace)
				fmt.Fprintf(tw, "root:\t%s\n", out.StateRoot)
				tw.Flush()
			})
		},
	}
	c.Flags().StringVarP(&output, "output", "o", OutputText, "output format: text, yaml or json")
	return c
}

func rootsCommand(conf *config.Config, configPath *string) *cobra.Command {
	var (
		output   string
		from, to uint64
	)
	c := &cobra.Command{
		Use:   "roots",
		Short: "list state roots of processed heights of a running node",
		Long: "Nodes that ingested the same DA history report identical roots.\n" +
			"At most " + strconv.Itoa(api.MaxRoots) + " heights are returned, starting at --from.",
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if err := configure(c, *configPath, conf); err != nil {
				return err
			}
			app := New(WithConfig(conf), WithLog(c.ErrOrStderr()))
			client, err := api.NewClient(apiURL(conf.API.Listen), conf.API.Client,
				api.WithClientLogger(app.addLogger(APILogger)))
			if err != nil {
				return err
			}
			var until *types.Height
			if c.Flags().Changed("to") {
				height := types.Height(to)
				until = &height
			}
			roots, err := client.Roots(c.Context(), types.Height(from), until)
			if err != nil {
				return err
			}
			return write(c.OutOrStdout(), output, roots, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "HEIGHT\tROOT\tAPPLIED\tDROPPED")
				for _, root := range roots {
					fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", root.Height, root.Root, root.Applied, root.Dropped)
				}
				tw.Flush()
			})
		},
	}
	c.Flags().Uint64Var(&from, "from", 0, "first height")
	c.Flags().Uint64Var(&to, "to", 0, "last height, the last processed one by default")
	c.Flags().StringVarP(&output, "output", "o", OutputText, "output format: text, yaml or json")
	return c
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(c *cobra.Command, args []string) {
			fmt.Fprint(c.OutOrStdout(), cmd.Version)
			if cmd.Commit != "" {
				fmt.Fprintf(c.OutOrStdout(), "+%s", cmd.Commit)
			}
			fmt.Fprintln(c.OutOrStdout())
		},
	}
}

func write(w io.Writer, format string, value any, text func(io.Writer)) error {
	switch format {
	case OutputText:
		text(w)
		return nil
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(value); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
