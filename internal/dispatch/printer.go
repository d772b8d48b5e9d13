package dispatch

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ESC/POS control sequences understood by the thermal printers on the floor.
const (
	escInit = "\x1b@"
	escCut  = "\x1dVA\x03"
	// ESC t 3: code page PC860 (Portuguese)
	escCodePage860 = "\x1bt\x03"
)

// encodeTicket converts UTF-8 ticket text to PC860 bytes. Runes the code
// page lacks print as '?'.
func encodeTicket(body string) (string, error) {
	cp := charmap.CodePage860
	t := transform.Chain(
		norm.NFC,
		runes.Map(func(r rune) rune {
			if _, ok := cp.EncodeRune(r); ok {
				return r
			}
			return '?'
		}),
		cp.NewEncoder(),
	)
	out, _, err := transform.String(t, body)
	return out, err
}

// NetPrinter sends tickets as raw text to a network printer (port 9100).
// The job target is the printer address.
type NetPrinter struct {
	Timeout time.Duration
	Dialer  *net.Dialer
}

func (p *NetPrinter) Send(ctx context.Context, j Job) error {
	if j.Target == "" {
		return fmt.Errorf("%w: sector has no printer address", ErrNotConfigured)
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d := p.Dialer
	if d == nil {
		d = &net.Dialer{}
	}
	conn, err := d.DialContext(ctx, "tcp", j.Target)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrTransport, j.Target, err)
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
	}
	body, err := encodeTicket(j.Body)
	if err != nil {
		return fmt.Errorf("encode ticket %s: %w", j.ID, err)
	}
	if _, err := conn.Write([]byte(escInit + escCodePage860 + body + "\n\n\n" + escCut)); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrTransport, j.Target, err)
	}
	return nil
}
