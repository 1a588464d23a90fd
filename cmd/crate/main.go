package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cratetag/internal/assemble"
	"cratetag/internal/config"
	"cratetag/internal/export"
	"cratetag/internal/logging"
	"cratetag/internal/server"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "crate",
		Short: "Orange crate identifiers, QR payloads and labels",
		Long: `crate turns a description of one crate of oranges into three artifacts:
- a unique identifier ORC-YYYYMMDD-XXXXXXXX,
- a canonical JSON payload, rendered as a QR code,
- a printable text label.
Nothing is stored; every run is independent.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	addPersistentFlags(root)
	root.AddCommand(generateCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(decodeCmd())
	root.AddCommand(configCmd())
	root.AddCommand(serveCmd())
	return root
}

func main() {
	cobra.OnInitialize(initConfig)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CRATETAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags(root *cobra.Command) {
	root.PersistentFlags().StringP("workspace", "w", ".", "directory holding crate.yml")
	root.PersistentFlags().Bool("json", false, "output JSON")
	root.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	root.PersistentFlags().String("log-format", "text", "log format (text|json)")
	_ = viper.BindPFlag("workspace", root.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log-format", root.PersistentFlags().Lookup("log-format"))
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt runtime) error {
				if cmd.Flags().Changed("addr") {
					rt.cfg.Server.Addr = addr
				}
				if cmd.Flags().Changed("base-path") {
					rt.cfg.Server.BasePath = basePath
				}
				authCfg := server.AuthConfig{JWTSecret: viper.GetString("jwt-secret")}
				if authCfg.JWTSecret == "" {
					rt.log.Warn(ctx, "CRATETAG_JWT_SECRET not set; API is unauthenticated")
				}
				handler, err := server.New(server.Config{
					Assembler:    rt.assembler(),
					Exporter:     rt.exporter(),
					PreviewWidth: rt.cfg.Preview.NotesWidth,
					BasePath:     rt.cfg.Server.BasePath,
					Auth:         authCfg,
					Logger:       rt.log,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: rt.cfg.Server.Addr, Handler: handler}
				go func() {
					<-ctx.Done()
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(sctx)
				}()
				fmt.Fprintf(cmd.OutOrStdout(), "Serving crate API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
					rt.cfg.Server.Addr, rt.cfg.Server.BasePath, rt.cfg.Server.BasePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (overrides config)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path (overrides config)")
	return cmd
}

// --- helpers ---

type runtime struct {
	cfg *config.Config
	log logging.Logger
}

func (rt runtime) assembler() assemble.Assembler {
	return assemble.New(rt.cfg.Location(), rt.log)
}

func (rt runtime) exporter() export.Builder {
	return export.Builder{Encoder: rt.cfg.Encoder(), Policy: rt.cfg.Policy(), Logger: rt.log}
}

func withRuntime(cmd *cobra.Command, fn func(context.Context, runtime) error) error {
	cfg, err := config.LoadOptional(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	log, err := logging.New(cmd.ErrOrStderr(), viper.GetString("log-format"), viper.GetString("log-level"))
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, runtime{cfg: cfg, log: log})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
