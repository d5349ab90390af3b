package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/datallboy/jarview/internal/scheme"
	"github.com/spf13/cobra"
)

type openFlags struct {
	out   string
	print bool
}

func (f *openFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write listing HTML to this file instead of stdout")
	cmd.Flags().BoolVar(&f.print, "print", false, "print extracted file URLs instead of opening a browser")
}

func newOpenCmd() *cobra.Command {
	var flags openFlags

	cmd := &cobra.Command{
		Use:   "open <jar-url>",
		Short: "Resolve a jar:// URL: list the archive or extract a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd, args[0], flags)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newListCmd() *cobra.Command {
	var flags openFlags

	cmd := &cobra.Command{
		Use:   "list <archive>",
		Short: "Render the HTML listing of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return runOpen(cmd, scheme.Name+"://"+filepath.ToSlash(archive), flags)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newExtractCmd() *cobra.Command {
	var flags openFlags

	cmd := &cobra.Command{
		Use:   "extract <archive> <member>",
		Short: "Extract one member into the output directory and open it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return runOpen(cmd, scheme.Link(filepath.ToSlash(archive), args[1]), flags)
		},
	}
	flags.bind(cmd)
	return cmd
}

func runOpen(cmd *cobra.Command, raw string, flags openFlags) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", scheme.ErrInvalidURL, err)
	}
	if _, err := scheme.FromURL(u); err != nil {
		return err
	}

	// stdout may carry the listing, keep logs off it
	rt, err := bootstrap(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	var out io.Writer = cmd.OutOrStdout()
	if flags.out != "" {
		f, err := os.Create(flags.out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", flags.out, err)
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	surface := newBrowserSurface(flags.print, cmd.OutOrStdout())
	d := rt.dispatcher(nil)
	d.SetSurface(surface)

	dctx, cancel := context.WithCancel(ctx)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		d.Start(dctx)
	}()
	defer func() {
		cancel()
		<-dispatcherDone
	}()

	req := newCLIRequest(u, out)
	d.Handle(ctx, req)

	select {
	case <-req.done:
		return req.err
	case <-surface.navigated:
		return nil
	case <-ctx.Done():
		<-req.done
		return req.err
	}
}
