package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackmichael/blogdemo/internal/blogclient"
	"github.com/blackmichael/blogdemo/internal/livefeed"
	"github.com/blackmichael/blogdemo/internal/realtime"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <post-id>",
		Short: "Follow a post's viewers and new comments live",
		Long: `Join a post's live room and print presence changes and new comments
until interrupted. With --token the watcher is listed as a viewer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := blogclient.NewClient(rootOpts.Server)
			out := &watchPrinter{w: cmd.OutOrStdout(), json: rootOpts.Format == "json"}

			sub := livefeed.NewSubscriber(client.LiveURL(args[0]), rootOpts.Token, out, rootOpts.logger(cmd))
			err := sub.Start(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// watchPrinter renders live room events as they arrive.
type watchPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

func (p *watchPrinter) Presence(viewers []realtime.PresenceEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		(&printer{format: "json", w: p.w}).result(map[string]any{"type": realtime.FramePresence, "viewers": viewers}, nil)
		return
	}
	names := make([]string, len(viewers))
	for i, v := range viewers {
		names[i] = v.Name
	}
	if len(names) == 0 {
		fmt.Fprintln(p.w, "viewing now: nobody signed in")
		return
	}
	fmt.Fprintf(p.w, "viewing now: %s\n", strings.Join(names, ", "))
}

func (p *watchPrinter) Comment(c realtime.CommentPayload) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		(&printer{format: "json", w: p.w}).result(map[string]any{"type": realtime.FrameComment, "comment": c}, nil)
		return
	}
	fmt.Fprintf(p.w, "[%s] %s: %s\n", c.CreatedAt.Local().Format(time.Kitchen), c.AuthorName, c.Body)
}
