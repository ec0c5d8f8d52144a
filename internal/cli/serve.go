package cli

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mithrel/hashmark/internal/config"
	"github.com/mithrel/hashmark/internal/mcptools"
	"github.com/mithrel/hashmark/internal/netserve"
	"github.com/mithrel/hashmark/internal/server"
)

func newServeCmd() *cobra.Command {
	var listen string
	var h3 bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser editor and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			v := app.Cfg
			if listen != "" {
				v.Set("http_addr", listen)
			}
			if cmd.Flags().Changed("h3") {
				v.Set("http.h3", h3)
			}
			if err := config.CheckConfigValidity(v); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var tlsConf *tls.Config
			var challenge http.Handler
			var err error
			switch {
			case v.GetString("http.tls_domain") != "":
				tlsConf, challenge, err = netserve.BuildCertMagicTLS(ctx, netserve.CertMagicConfig{
					Domain:       v.GetString("http.tls_domain"),
					Email:        v.GetString("http.tls_email"),
					EnableHTTP01: true,
				})
			case v.GetString("http.cert_file") != "":
				tlsConf, err = netserve.BuildFileTLS(v.GetString("http.cert_file"), v.GetString("http.key_file"))
			}
			if err != nil {
				return fmt.Errorf("tls: %w", err)
			}

			srv := server.New(server.Options{
				BaseURL:   v.GetString("base_url"),
				Decoder:   app.Decoder,
				Render:    app.Render,
				Log:       app.Log,
				MaxBody:   v.GetInt64("http.max_body"),
				CacheSize: v.GetInt("render.cache_size"),
			})
			ln, err := netserve.Listen(netserve.Config{
				Addr:      v.GetString("http_addr"),
				TLS:       tlsConf,
				H3:        v.GetBool("http.h3"),
				Challenge: challenge,
			}, srv.Router(), app.Log)
			if err != nil {
				return err
			}
			scheme := "http"
			if tlsConf != nil {
				scheme = "https"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hashmark listening on %s://%s\n", scheme, ln.Addr())
			if pa := ln.PacketAddr(); pa != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "HTTP/3 on udp %s\n", pa)
			}
			return ln.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (override config http_addr)")
	cmd.Flags().BoolVar(&h3, "h3", false, "also serve HTTP/3 (override config http.h3)")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server on stdio exposing encode, decode and render",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			srv := mcptools.NewServer(Version, &mcptools.Tools{
				BaseURL:       app.Cfg.GetString("base_url"),
				Decoder:       app.Decoder,
				Render:        app.Render,
				TerminalStyle: app.Cfg.GetString("render.style"),
				WordWrap:      app.Cfg.GetInt("render.word_wrap"),
			})
			return mcptools.ServeStdio(ctx, srv)
		},
	}
}
