package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ariefcatur/go-bar-pos/internal/syncclient"
)

func render(w io.Writer, format, sector string, s syncclient.Snapshot) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(s)
	}

	push := "offline"
	if s.PushConnected {
		push = "live"
	}
	fmt.Fprintf(w, "== %s / %s  (%d units, push %s, %s)\n", sector, s.Filters.Status, len(s.Items), push, s.FetchedAt.Format("15:04:05"))
	if s.Advisory != "" {
		fmt.Fprintf(w, "!! %s\n", s.Advisory)
	}
	if s.Error != "" {
		fmt.Fprintf(w, "!! %s\n", s.Error)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, it := range s.Items {
		note := ""
		if it.Note != "" {
			note = "obs: " + it.Note
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.Key, it.ProductName, it.CreatedAt.Local().Format(time.Kitchen), it.RealID, note)
	}
	return tw.Flush()
}
