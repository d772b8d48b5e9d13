package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ariefcatur/go-bar-pos/internal/cart"
	"github.com/ariefcatur/go-bar-pos/internal/money"
	"github.com/ariefcatur/go-bar-pos/internal/syncclient"
)

type tapKind string

const (
	tapAdd  tapKind = "add"
	tapSet  tapKind = "set"
	tapShow tapKind = "show"
	tapQuit tapKind = "quit"
)

type tap struct {
	Kind       tapKind
	ProductID  string
	Quantity   string
	PriceCents int64
	Name       string
}

// parseTap reads one input line:
//
//	add <product-id> <qty> [price] [name...]
//	set <product-id> <qty>
//	show | quit
func parseTap(line string) (tap, error) {
	f := strings.Fields(line)
	if len(f) == 0 {
		return tap{}, fmt.Errorf("empty command")
	}
	t := tap{Kind: tapKind(strings.ToLower(f[0]))}
	switch t.Kind {
	case tapShow, tapQuit:
		return t, nil
	case tapSet:
		if len(f) != 3 {
			return tap{}, fmt.Errorf("usage: set <product-id> <qty>")
		}
		t.ProductID, t.Quantity = f[1], f[2]
		return t, nil
	case tapAdd:
		if len(f) < 3 {
			return tap{}, fmt.Errorf("usage: add <product-id> <qty> [price] [name...]")
		}
		t.ProductID, t.Quantity = f[1], f[2]
		if len(f) > 3 {
			cents, err := money.ParseCents(f[3])
			if err != nil {
				return tap{}, fmt.Errorf("price %q: %w", f[3], err)
			}
			t.PriceCents = cents
			t.Name = strings.Join(f[4:], " ")
		}
		return t, nil
	}
	return tap{}, fmt.Errorf("unknown command %q", f[0])
}

func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	var sector string
	cmd := &cobra.Command{
		Use:   "cart <ref>",
		Short: "Edit an open cart (table or comanda) tap by tap",
		Long: `Reads taps from stdin and applies each one locally right away while the
request goes to the API in the background. A response that arrives after a
newer tap on the same product is discarded.

Commands:
  add <product-id> <qty> [price] [name...]   add units (price/name for a new line)
  set <product-id> <qty>                     replace the quantity, 0 removes
  show                                       print the local cart
  quit                                       wait for pending requests and exit

Example:
  printf 'add chopp 2 12,50 Chopp 300ml\nset chopp 3\n' | tablet cart mesa-7 --sector bar`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			api := rootOpts.fetcher()
			loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			current, err := api.Cart(loadCtx, args[0])
			cancel()
			if err != nil {
				return fmt.Errorf("load cart %s: %w", args[0], err)
			}
			current.Ref = args[0]

			out := &syncWriter{w: cmd.OutOrStdout()}
			s := &syncclient.CartSession{
				API: api,
				Ref: args[0],
				// seq dari jam supaya sesi baru menang atas sesi lama
				Ctl:      cart.NewControllerFrom(current, time.Now().UnixMicro()),
				OnResult: func(r syncclient.TapResult) { out.printf("%s\n", describeResult(r)) },
			}
			err = runTaps(ctx, cmd.InOrStdin(), out, s, sector)
			s.Wait()
			if err != nil {
				return err
			}
			return renderCart(out, rootOpts.Format, s.Ctl.Cart())
		},
	}
	cmd.Flags().StringVar(&sector, "sector", "", "sector of products added in this session")
	return cmd
}

func runTaps(ctx context.Context, in io.Reader, out *syncWriter, s *syncclient.CartSession, sector string) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		t, err := parseTap(sc.Text())
		if err != nil {
			out.printf("!! %v\n", err)
			continue
		}
		switch t.Kind {
		case tapQuit:
			return nil
		case tapShow:
			if err := renderCart(out, "text", s.Ctl.Cart()); err != nil {
				return err
			}
		case tapSet:
			s.Set(ctx, t.ProductID, t.Quantity)
		case tapAdd:
			s.Add(ctx, cart.Line{
				ID:             t.ProductID,
				ProductName:    t.Name,
				SectorID:       sector,
				Quantity:       cart.ClampQuantity(t.Quantity),
				UnitPriceCents: t.PriceCents,
			})
		}
	}
	return sc.Err()
}

func describeResult(r syncclient.TapResult) string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s #%d qty=%d failed: %v", r.ProductID, r.Seq, r.Quantity, r.Err)
	case !r.Current:
		return fmt.Sprintf("%s #%d qty=%d superseded by a newer tap", r.ProductID, r.Seq, r.Quantity)
	case !r.Applied:
		return fmt.Sprintf("%s #%d qty=%d rejected, another tablet was newer", r.ProductID, r.Seq, r.Quantity)
	}
	return fmt.Sprintf("%s #%d qty=%d saved", r.ProductID, r.Seq, r.Quantity)
}

func renderCart(w io.Writer, format string, c cart.Cart) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(struct {
			cart.Cart
			TotalCents int64 `json:"total_cents"`
		}{c, c.TotalCents()})
	}
	// satu Write supaya tidak campur dengan hasil request yang masuk
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "== cart %s\n", c.Ref)
	for _, l := range c.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%dx\t%s\n", l.ID, l.ProductName, l.Quantity, money.Format(l.SubtotalCents))
	}
	fmt.Fprintf(tw, "total\t\t\t%s\n", money.Format(c.TotalCents()))
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// syncWriter serializes output from the tap loop and the response goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *syncWriter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s, format, args...)
}
