package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cinestream/internal/download"
	"cinestream/internal/httputil"
	"cinestream/internal/resolver"
	"cinestream/internal/ui"
)

var downloadCmd = &cobra.Command{
	Use:   "download <catalog-id> [title]",
	Short: "Download a resolved stream to disk",
	Args:  cobra.MinimumNArgs(1),
	RunE:  downloadRun,
}

func downloadRun(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(args)
	if err != nil {
		return err
	}

	store, streamCache, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()
	res := newResolver(streamCache)

	resolution, err := res.Resolve(cmd.Context(), req)
	if err != nil {
		return err
	}

	link := &resolution.Links[0]
	if flagQuality != "" {
		if l := resolution.LinkFor(flagQuality); l != nil {
			link = l
		}
	} else if flagInteractive && len(resolution.Links) > 1 {
		link, err = ui.SelectQuality(resolution)
		if err != nil {
			return err
		}
	}

	dir, err := cfg.ExpandDownloadDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating download dir: %w", err)
	}
	name := httputil.SanitizeFilename(downloadName(req, link.Quality))
	dest, err := httputil.SafeOutputPath(dir, name)
	if err != nil {
		return err
	}

	// Stream links expire mid-transfer; renewal re-resolves past the cache
	// for a fresh link of the same quality.
	renew := func(ctx context.Context) (string, error) {
		streamCache.Evict(resolver.CacheKey(req))
		fresh, err := res.Resolve(ctx, req)
		if err != nil {
			return "", err
		}
		if l := fresh.LinkFor(link.Quality); l != nil {
			return l.URL, nil
		}
		return fresh.Links[0].URL, nil
	}

	fmt.Printf("downloading to %s\n", dest)
	err = download.New().Fetch(cmd.Context(), link.URL, dest, download.Options{
		RenewURL: renew,
		OnProgress: func(received, total int64) {
			if total > 0 {
				fmt.Printf("\r%3d%% (%d / %d bytes)", received*100/total, received, total)
			} else {
				fmt.Printf("\r%d bytes", received)
			}
		},
	})
	fmt.Println()
	if err != nil {
		return err
	}
	fmt.Println("done")
	return nil
}

func downloadName(req resolver.Request, quality string) string {
	base := req.Item.DisplayTitle()
	if base == "" {
		base = fmt.Sprintf("item-%d", req.Item.ID)
	}
	if req.Sel.Season > 0 {
		return fmt.Sprintf("%s S%02dE%02d %s.mp4", base, req.Sel.Season, req.Sel.Episode, quality)
	}
	return fmt.Sprintf("%s %s.mp4", base, quality)
}
