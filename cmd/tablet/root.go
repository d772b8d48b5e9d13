package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-bar-pos/internal/syncclient"
)

// RootOptions holds the flags every subcommand shares.
type RootOptions struct {
	APIURL     string
	EmployeeID string
	Format     string // "text" | "json"
	Verbose    bool
}

var validFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tablet",
		Short: "Sector queue tablet",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			if strings.TrimSpace(opts.APIURL) == "" {
				return fmt.Errorf("--api is required")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.APIURL, "api", envOr("TABLET_API_URL", "http://localhost:8081"), "API base url")
	cmd.PersistentFlags().StringVar(&opts.EmployeeID, "employee", os.Getenv("TABLET_EMPLOYEE_ID"), "operator id sent as X-Employee-Id")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log fetch and push errors")

	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewQueueCommand(opts))
	cmd.AddCommand(NewAdvanceCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	return cmd
}

func (o *RootOptions) fetcher() *syncclient.HTTPFetcher {
	return &syncclient.HTTPFetcher{
		BaseURL:    o.APIURL,
		EmployeeID: o.EmployeeID,
		HTTP:       &http.Client{Timeout: 10 * time.Second},
	}
}

// pushURL turns http(s)://host into ws(s)://host/ws.
func (o *RootOptions) pushURL() string {
	u := strings.TrimRight(o.APIURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

func (o *RootOptions) logger(w io.Writer) *log.Logger {
	if !o.Verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(w, "tablet: ", log.LstdFlags)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
