// ABOUTME: Subcommands for playing, rendering, serving and discovering queues
// ABOUTME: Each command builds its queue and sinks from the loaded config
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sendspin/sendspin-queue/internal/discovery"
	"github.com/Sendspin/sendspin-queue/internal/metrics"
	"github.com/Sendspin/sendspin-queue/internal/stream"
	"github.com/Sendspin/sendspin-queue/internal/ui"
	"github.com/Sendspin/sendspin-queue/internal/watch"
	"github.com/Sendspin/sendspin-queue/pkg/audio"
	"github.com/Sendspin/sendspin-queue/pkg/audio/decode"
	"github.com/Sendspin/sendspin-queue/pkg/audio/encode"
	"github.com/Sendspin/sendspin-queue/pkg/audio/output"
	"github.com/Sendspin/sendspin-queue/pkg/audio/resample"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// addFormatFlags registers the output format flags shared by play, render and serve
func addFormatFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Int("rate", 48000, "Output sample rate in Hz")
	flags.Int("channels", 2, "Output channel count")
	flags.Int("bit-depth", 16, "Output bit depth: 16, 24 or 32")
	flags.Int("block-size", 1024, "Samples pulled from the queue per write")
}

func (a *App) newPlayCommand() *cobra.Command {
	var showTUI bool
	cmd := &cobra.Command{
		Use:   "play FILE...",
		Short: "Play audio files back to back on a local device",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, err := output.New(a.cfg.Output.Backend, a.cfg.Output.WAVPath, a.logger.WithPrefix("output"))
			if err != nil {
				return err
			}
			player := NewPlayer(a.cfg, a.logger)
			if err := player.Enqueue(args); err != nil {
				return err
			}
			if !showTUI {
				return player.Run(cmd.Context(), sink)
			}

			var controls ui.Controls
			if vc, ok := sink.(output.VolumeControl); ok {
				controls = vc
			}
			model := ui.NewModel(player.Status, controls, a.cfg.Output.Volume)
			return ui.Run(cmd.Context(), model, func(ctx context.Context) error {
				return player.Run(ctx, sink)
			})
		},
	}
	addFormatFlags(cmd)
	cmd.Flags().String("backend", "oto", "Output backend: oto, malgo or wav")
	cmd.Flags().Int("volume", 100, "Playback volume 0-100")
	cmd.Flags().BoolVar(&showTUI, "tui", false, "Show a now-playing view; logs go only to --log-file")
	return cmd
}

func (a *App) newRenderCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "render FILE... --out PATH",
		Short: "Render audio files back to back into a WAV or raw PCM file",
		Long: "Render writes the queue to a WAV file. A path ending in .pcm or .raw, " +
			"or - for stdout, gets headerless little-endian PCM instead.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.cfg
			// Rendering stops at the end of the list
			cfg.Queue.KeepAlive = false
			cfg.Output.Backend = output.BackendWAV
			cfg.Output.WAVPath = out

			player := NewPlayer(&cfg, a.logger)
			if err := player.Enqueue(args); err != nil {
				return err
			}
			if isRawPath(out) {
				return a.renderRaw(player, out)
			}
			sink, err := output.New(cfg.Output.Backend, out, a.logger.WithPrefix("output"))
			if err != nil {
				return err
			}
			return player.Run(cmd.Context(), sink)
		},
	}
	addFormatFlags(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Destination file (.wav, .pcm, .raw or - for stdout)")
	if err := cmd.MarkFlagRequired("out"); err != nil {
		panic(err)
	}
	return cmd
}

func isRawPath(path string) bool {
	if path == "-" {
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcm", ".raw":
		return true
	}
	return false
}

// renderRaw copies the conformed queue into path as PCM bytes
func (a *App) renderRaw(p *Player, path string) (err error) {
	format := outputFormat(p.cfg.Output)
	enc, err := encode.NewPCM(format)
	if err != nil {
		return err
	}

	var w io.Writer = a.stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}

	src := resample.Conform(p.out, format.SampleRate, format.Channels)
	n, err := io.Copy(w, encode.NewReader(src, enc, p.cfg.Output.BlockSize))
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	a.logger.Info("rendered", "path", path, "bytes", n,
		"duration", audio.FramesToDuration(int(n)/enc.BytesPerSample(), format.Channels, format.SampleRate))
	return nil
}

func (a *App) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [FILE...]",
		Short: "Stream a keep-alive queue to websocket clients",
		Long: "Serve streams the queue as timestamped chunks on /stream. Files given on the " +
			"command line are queued at start; more can be added with POST /queue or by " +
			"dropping them into the watch directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), args)
		},
	}
	addFormatFlags(cmd)
	cmd.Flags().String("addr", ":8927", "Listen address")
	cmd.Flags().String("codec", "pcm", "Wire codec: pcm or opus")
	cmd.Flags().String("name", "Sendspin Queue", "Server name for hello messages and mDNS")
	cmd.Flags().Bool("mdns", false, "Advertise the server with mDNS")
	cmd.Flags().String("watch", "", "Queue audio files that appear in this directory")
	return cmd
}

func (a *App) serve(ctx context.Context, files []string) error {
	cfg := a.cfg
	registry := prometheus.NewRegistry()
	m, err := metrics.NewQueueMetrics(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// A stream never ends, so the queue always keeps itself alive
	in, out := newQueue(cfg.Queue, true, a.logger, m)

	format := outputFormat(cfg.Output)
	format.Codec = cfg.Stream.Codec
	srv, err := stream.New(stream.Config{
		Addr:        cfg.Stream.Addr,
		Name:        cfg.Stream.Name,
		Format:      format,
		ChunkPeriod: cfg.Stream.ChunkPeriod,
		BufferAhead: cfg.Stream.BufferAhead,
	}, in, out,
		stream.WithLogger(a.logger.WithPrefix("stream")),
		stream.WithMetrics(m, m.Handler()),
	)
	if err != nil {
		return err
	}

	for _, path := range files {
		s, err := decode.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		in.Append(s)
		a.logger.Info("queued", "title", s.Title())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup

	if cfg.Watch.Dir != "" {
		w := watch.New(watch.Config{
			Dir:             cfg.Watch.Dir,
			IncludeExisting: true,
			Logger:          a.logger.WithPrefix("watch"),
		}, in)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("watcher stopped", "dir", cfg.Watch.Dir, "err", err)
			}
		}()
	}

	if cfg.Stream.MDNS {
		port, err := listenPort(cfg.Stream.Addr)
		if err != nil {
			return err
		}
		mgr := discovery.NewManager(discovery.Config{
			ServiceName: cfg.Stream.Name,
			Port:        port,
			Logger:      a.logger,
		})
		if err := mgr.Advertise(); err != nil {
			a.logger.Warn("mdns advertise failed", "err", err)
		}
		defer mgr.Stop()
	}

	err = srv.Run(ctx)
	cancel()
	wg.Wait()
	return err
}

// listenPort extracts the numeric port from a listen address like ":8927"
func listenPort(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("listen address %q needs a numeric port for mDNS", addr)
	}
	return port, nil
}

func (a *App) newDiscoverCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List stream servers advertised on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := discovery.NewManager(discovery.Config{Logger: a.logger})
			defer mgr.Stop()
			mgr.Browse(timeout)

			found := 0
			for s := range mgr.Servers() {
				found++
				fmt.Fprintf(a.stdout, "%s\tws://%s%s\n", s.Name, s.Addr(), s.Path)
			}
			if found == 0 {
				fmt.Fprintln(a.stdout, "no servers found")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "How long to listen for answers")
	return cmd
}
