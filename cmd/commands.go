package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tejashwikalptaru/tunehub/internal/adapter/provider/local"
	"github.com/tejashwikalptaru/tunehub/internal/app"
	"github.com/tejashwikalptaru/tunehub/internal/config"
	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/queue"
	"github.com/tejashwikalptaru/tunehub/internal/service"
)

func (c *cli) runCommand() *cobra.Command {
	var play bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the player and keep it running until interrupted",
		Long: `Restore the previous session, activate the enabled providers and keep running
until interrupted. With --play the whole library starts playing once the first scan
finished.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := app.New(cfg, app.Options{})
			if err != nil {
				return err
			}
			defer a.Shutdown()

			out := cmd.OutOrStdout()
			scanned := make(chan struct{}, 1)
			a.Bus().Subscribe(domain.EventScanCompleted, func(e domain.Event) {
				if ev, ok := e.(domain.ScanCompletedEvent); ok && ev.ProviderID == local.ID && ev.Err == nil {
					select {
					case scanned <- struct{}{}:
					default:
					}
				}
			})
			a.Bus().Subscribe(domain.EventTrackStarted, func(e domain.Event) {
				if ev, ok := e.(domain.TrackStartedEvent); ok {
					fmt.Fprintf(out, "Now playing: %s\n", trackLabel(&ev.Track, ev.Item.TrackID))
				}
			})

			if err := a.Start(cmd.Context()); err != nil {
				return err
			}
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-scanned:
					if play && a.Playback().State().Status != domain.StatusPlaying {
						playLibrary(cmd.Context(), a)
					}
				}
			}
		},
	}
	cmd.Flags().BoolVar(&play, "play", false, "play the library after the first scan")
	return cmd
}

func playLibrary(ctx context.Context, a *app.Application) {
	ids := lo.Map(a.State().LibraryView(), func(t domain.Track, _ int) domain.TrackID { return t.ID })
	if len(ids) == 0 {
		return
	}
	if err := a.Playback().PlayTracks(ctx, ids, 0); err != nil {
		a.Logger().Warn("failed to play library", slog.Any("error", err))
	}
}

func (c *cli) scanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the library folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.start(cmd)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			res, err := a.Scan(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d files in %s: %d added, %d removed, %d updated, %d failed\n",
				res.Found, res.Duration.Round(time.Millisecond), res.Added, res.Removed, res.Updated, res.Failed)
			return nil
		},
	}
}

func (c *cli) libraryCommand() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "library",
		Short: "List the tracks of the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.start(cmd)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			if _, err := a.Scan(cmd.Context()); err != nil {
				a.Logger().Warn("library scan failed", slog.Any("error", err))
			}
			tracks := a.State().LibraryView()
			if provider != "" {
				tracks = lo.Filter(tracks, func(t domain.Track, _ int) bool { return t.ProviderID == provider })
			}
			printTracks(cmd.OutOrStdout(), tracks)
			return nil
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "only list tracks of this provider")
	return cmd
}

func printTracks(out io.Writer, tracks []domain.Track) {
	if len(tracks) == 0 {
		fmt.Fprintln(out, "The library is empty.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ARTIST\tTITLE\tALBUM\tLENGTH\tID")
	for _, t := range tracks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncate(t.Artist(), 28), truncate(t.Title, 36), truncate(t.Album, 24),
			formatDuration(t.Duration), t.ID)
	}
	_ = w.Flush()
	fmt.Fprintf(out, "\n%d tracks\n", len(tracks))
}

func (c *cli) queueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show the saved playback queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.start(cmd)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			printQueue(cmd.OutOrStdout(), a.State().VisibleQueue())
			return nil
		},
	}
}

func printQueue(out io.Writer, rows []service.QueueRow) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "The queue is empty.")
		return
	}
	n := 0
	for _, r := range rows {
		switch r.Kind {
		case queue.RowCurrentSeparator:
			fmt.Fprintln(out, "Now playing")
		case queue.RowUpNextSeparator:
			fmt.Fprintln(out, "Up next")
		case queue.RowSourceSeparator:
			fmt.Fprintln(out, "Continuing from source")
		default:
			n++
			fmt.Fprintf(out, "%3d. %s\n", n, trackLabel(r.Track, r.Item.TrackID))
		}
	}
}

func (c *cli) playlistsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playlists",
		Short: "Show the playlist tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.start(cmd)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			printTree(cmd.OutOrStdout(), a.State())
			return nil
		},
	}
	cmd.AddCommand(c.createPlaylistCommand())
	return cmd
}

func (c *cli) createPlaylistCommand() *cobra.Command {
	var folder bool
	var parent string
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create a playlist or a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.start(cmd)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			node := domain.PlaylistNode{Kind: domain.NodePlaylist, Name: args[0]}
			if folder {
				node.Kind = domain.NodeFolder
			}
			id, err := a.State().CreateNode(node, domain.NodeID(parent), -1)
			if err != nil {
				return err
			}
			if err := a.Session().Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q (%s)\n", node.Kind, node.Name, id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&folder, "folder", false, "create a folder instead of a playlist")
	cmd.Flags().StringVar(&parent, "parent", "", "id of the folder to create the node in")
	return cmd
}

func printTree(out io.Writer, st *service.StateService) {
	tree := st.Tree()
	if tree.Len() == 0 {
		fmt.Fprintln(out, "No playlists.")
		return
	}
	tree.Walk(func(node domain.PlaylistNode, depth int) bool {
		indent := strings.Repeat("  ", depth)
		if node.IsFolder() {
			fmt.Fprintf(out, "%s%s/  [%s]\n", indent, node.Name, node.ID)
			return true
		}
		fmt.Fprintf(out, "%s%s (%d tracks)  [%s]\n", indent, node.Name, len(node.Items), node.ID)
		return true
	})
}

func (c *cli) providersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List the registered providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.start(cmd)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			printProviders(cmd.OutOrStdout(), a.Providers())
			return nil
		},
	}
	cmd.AddCommand(
		c.toggleProviderCommand("enable", "Enable a provider and activate it", func(ctx context.Context, r *service.ProviderRegistry, id string) error {
			return r.Enable(ctx, id)
		}),
		c.toggleProviderCommand("disable", "Disable a provider", func(_ context.Context, r *service.ProviderRegistry, id string) error {
			return r.Disable(id)
		}),
	)
	return cmd
}

func (c *cli) toggleProviderCommand(use, short string, fn func(context.Context, *service.ProviderRegistry, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [provider id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.start(cmd)
			if err != nil {
				return err
			}
			defer a.Shutdown()

			if err := fn(cmd.Context(), a.Providers(), args[0]); err != nil {
				return err
			}
			if err := a.Session().Save(); err != nil {
				return err
			}
			printProviders(cmd.OutOrStdout(), a.Providers())
			return nil
		},
	}
}

func printProviders(out io.Writer, r *service.ProviderRegistry) {
	enabled := r.Enabled()
	active := r.Active()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tENABLED\tACTIVE")
	for _, d := range r.Descriptors() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.DisplayName, d.Kind,
			yesNo(lo.Contains(enabled, d.ID)), yesNo(lo.Contains(active, d.ID)))
	}
	_ = w.Flush()
}

func (c *cli) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "library folders:  %s\n", strings.Join(cfg.Library.Folders, ", "))
			fmt.Fprintf(out, "audio engine:     %s (%d Hz)\n", cfg.Audio.Engine, cfg.Audio.SampleRate)
			fmt.Fprintf(out, "session store:    %s %s\n", cfg.Session.Store, cfg.Session.Path)
			fmt.Fprintf(out, "providers:        %s\n", strings.Join(cfg.Providers.Enabled, ", "))
			fmt.Fprintf(out, "logging:          %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write an example configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.WriteExample(c.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", c.configPath)
			return nil
		},
	})
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.GetVersionInfo().FullString())
		},
	}
}

func trackLabel(t *domain.Track, id domain.TrackID) string {
	if t == nil {
		return string(id)
	}
	if artist := t.Artist(); artist != "" {
		return artist + " - " + t.DisplayTitle()
	}
	return t.DisplayTitle()
}

func formatDuration(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func yesNo(b bool) string {
	return lo.Ternary(b, "yes", "no")
}
