package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"cinestream/internal/dub"
	"cinestream/internal/history"
	"cinestream/internal/log"
	"cinestream/internal/media"
	"cinestream/internal/resolver"
	"cinestream/internal/session"
	"cinestream/internal/skipdetect"
	"cinestream/internal/subtitle"
	"cinestream/internal/surface"
	"cinestream/internal/ui"
)

var playCmd = &cobra.Command{
	Use:   "play <catalog-id> [title]",
	Short: "Resolve a stream and play it with mpv",
	Args:  cobra.MinimumNArgs(1),
	RunE:  playRun,
}

func playRun(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, streamCache, err := openCache()
	if err != nil {
		return err
	}
	defer store.Close()
	res := newResolver(streamCache)

	var hist *history.Store
	if cfg.History {
		hist, err = history.Open(store.DB())
		if err != nil {
			return err
		}
	}

	startAt := 0.0
	if flagContinue && hist != nil {
		pos, err := hist.Resume(req.Item.ID, req.Sel.Season, req.Sel.Episode)
		if err == nil && pos > 0 {
			startAt = pos
		}
	}

	surf := surface.NewMPV(req.Item.DisplayTitle())
	if !surf.Available() {
		return fmt.Errorf("mpv not found in PATH")
	}

	logger := log.WithComponent("play")
	tracker := subtitle.NewSkipTracker()
	var dubEngine atomic.Pointer[dub.Engine]

	done := make(chan struct{})
	finish := sync.OnceFunc(func() { close(done) })
	var sess *session.Session
	sess = session.New(surf, res, session.Callbacks{
		OnTime: func(t, duration float64) {
			tracker.Update(t, duration)
			if flagAutoSkip && tracker.State() != subtitle.SkipNone {
				if target, ok := tracker.Skip(); ok {
					logger.Info().Float64("to", target).Msg("skipping segment")
					_ = sess.Seek(target)
				}
			}
		},
		OnSeek: func(pos float64) {
			if e := dubEngine.Load(); e != nil {
				e.InvalidateSeek()
			}
		},
		OnEnded: finish,
		OnError: func(err error) {
			logger.Error().Err(err).Msg("playback failed")
			finish()
		},
	})
	defer sess.Close()

	if err := sess.Load(ctx, req, startAt); err != nil {
		return err
	}

	resolution := sess.Resolution()
	quality := flagQuality
	if quality == "" && flagInteractive && len(resolution.Links) > 1 {
		quality, err = pickQuality(resolution)
		if err != nil {
			return err
		}
	}
	if quality != "" && quality != sess.Snapshot().Quality {
		if err := sess.SwitchQuality(quality); err != nil {
			logger.Warn().Err(err).Str("quality", quality).Msg("quality switch failed")
		}
	}

	var subs *subtitle.Set
	if !flagNoSubs && len(resolution.Subtitles) > 0 {
		subs, err = subtitle.NewSet(cfg.SubsLanguage)
		if err != nil {
			logger.Warn().Err(err).Msg("subtitle setup failed")
		} else {
			defer subs.Close()
			subs.Load(ctx, resolution.Subtitles)
			if flagInteractive {
				lang, err := ui.SelectSubtitle(resolution.Subtitles)
				if err == nil {
					subs.Select(lang)
				}
			}
			if track := subs.Active(); track != nil {
				if err := surf.AddSubtitle(track.Path); err != nil {
					logger.Warn().Err(err).Msg("attaching subtitle failed")
				}
			}
			startSkipAnalysis(ctx, subs, tracker)
		}
	}

	if flagDub {
		engine, err := startDub(ctx, resolution, surf, sess)
		if err != nil {
			logger.Warn().Err(err).Msg("dub overlay unavailable")
		} else {
			dubEngine.Store(engine)
			defer engine.Close()
		}
	}

	select {
	case <-done:
	case <-ctx.Done():
	}

	if hist != nil {
		snap := sess.Snapshot()
		entry := media.HistoryEntry{
			ID:       req.Item.ID,
			Title:    req.Item.DisplayTitle(),
			Type:     req.Type,
			Season:   req.Sel.Season,
			Episode:  req.Sel.Episode,
			Position: snap.Time,
			Duration: snap.Duration,
		}
		if err := hist.Save(entry); err != nil {
			logger.Warn().Err(err).Msg("saving watch history failed")
		}
	}
	return nil
}

// buildRequest turns CLI args and flags into a resolution request.
func buildRequest(args []string) (resolver.Request, error) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return resolver.Request{}, fmt.Errorf("catalog id must be numeric, got %q", args[0])
	}
	title := ""
	if len(args) > 1 {
		title = args[1]
	}

	t := media.ParseType(flagType)
	sel := media.Selector{Season: flagSeason, Episode: flagEpisode}
	if t == media.Series && (sel.Season == 0 || sel.Episode == 0) {
		return resolver.Request{}, fmt.Errorf("series playback needs --season and --episode")
	}

	return resolver.Request{
		Item:        media.Item{ID: id, Title: title},
		Type:        t,
		Sel:         sel,
		Provider:    flagProvider,
		Preferences: cfg.Providers,
		DubLang:     cfg.DubLanguage,
	}, nil
}

// startSkipAnalysis fetches the active subtitle in raw form and asks the
// analysis service for intro/outro windows. Failures leave the tracker
// empty; playback continues without skips.
func startSkipAnalysis(ctx context.Context, subs *subtitle.Set, tracker *subtitle.SkipTracker) {
	if cfg.AnalysisURL == "" {
		return
	}
	track := subs.Active()
	if track == nil {
		return
	}
	logger := log.WithComponent("skipdetect")
	go func() {
		raw, err := subs.FetchRaw(ctx, track.Source)
		if err != nil {
			logger.Warn().Err(err).Msg("fetching subtitle for analysis failed")
			return
		}
		segments, err := skipdetect.New(cfg.AnalysisURL).Analyze(ctx, raw)
		if err != nil {
			logger.Warn().Err(err).Msg("skip analysis failed")
			return
		}
		tracker.SetSegments(segments)
	}()
}

// startDub spins up the dub overlay against the Arabic subtitle track of the
// current resolution.
func startDub(ctx context.Context, res *media.Resolution, surf *surface.MPV, sess *session.Session) (*dub.Engine, error) {
	if cfg.DubbingURL == "" {
		return nil, fmt.Errorf("no dubbing service configured")
	}
	var srtURL string
	for _, ref := range res.Subtitles {
		if ref.Language == "ar" {
			srtURL = ref.URL
			break
		}
	}
	if srtURL == "" {
		return nil, fmt.Errorf("no Arabic subtitles available for dubbing")
	}

	sink, err := dub.NewExecSink()
	if err != nil {
		return nil, err
	}

	engine := dub.NewEngine(dub.NewClient(cfg.DubbingURL, cfg.BypassHeader, cfg.BypassValue), sink, surf)
	dubLogger := log.WithComponent("dub")
	engine.OnProgress = func(p string) {
		dubLogger.Info().Str("progress", p).Msg("dub generation")
	}
	go func() {
		paused := func() bool { return sess.Snapshot().State != session.StatePlaying }
		if err := engine.Run(ctx, srtURL, surf.Position, paused); err != nil {
			dubLogger.Warn().Err(err).Msg("dub stream ended with error")
		}
	}()
	return engine, nil
}

// pickQuality is used by interactive flows that want an explicit choice
// instead of the first link.
func pickQuality(res *media.Resolution) (string, error) {
	link, err := ui.SelectQuality(res)
	if err != nil {
		return "", err
	}
	return link.Quality, nil
}
