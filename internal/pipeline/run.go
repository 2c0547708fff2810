package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kikiluvv/autoclip/internal/asset"
	"github.com/kikiluvv/autoclip/internal/clips"
	"github.com/kikiluvv/autoclip/internal/errs"
	"github.com/kikiluvv/autoclip/internal/perspective"
	"github.com/kikiluvv/autoclip/internal/script"
	"github.com/kikiluvv/autoclip/pkg/util"
)

// WorkDir is the scratch directory of one perspective branch
func WorkDir(an *Analysis, k perspective.Kind) string {
	return filepath.Join(an.Dir, "perspectives", k.String())
}

// Resolve maps requested perspective names onto the registry. Unknown
// names fall back to the default perspective; duplicates are dropped.
func (p *Pipeline) Resolve(names []string, all bool) []perspective.Kind {
	if all {
		return perspective.All()
	}
	if len(names) == 0 {
		return []perspective.Kind{perspective.Default}
	}

	seen := make(map[perspective.Kind]bool)
	var kinds []perspective.Kind
	for _, name := range names {
		k, ok := perspective.Resolve(name)
		if !ok {
			p.logger.Warn().Str("requested", name).Msg("unknown perspective, using default")
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		kinds = append(kinds, k)
	}
	return kinds
}

// Run prepares the video once and then produces one highlight video per
// requested perspective. Perspectives are independent: a failed branch is
// logged and left out of the result. An error is returned only for an
// unusable invocation or a failed preparation, in which case every
// requested perspective is recorded as failed.
func (p *Pipeline) Run(ctx context.Context, video string, opts RunOptions) ([]PerspectiveResult, error) {
	va, err := asset.Identify(ctx, p.media, video)
	if err != nil {
		return nil, err
	}

	runID, err := p.recorder.StartRun(ctx, video, va.ID)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to journal run start")
	}

	kinds := p.Resolve(opts.Perspectives, opts.All)

	an, err := p.prepare(ctx, va, PrepareOptions{Force: opts.Force, Mode: opts.Mode})
	if err != nil {
		for _, k := range kinds {
			newMachine(ctx, p.logger, p.recorder, runID, k.String()).fail(ctx, "prepare", err)
		}
		p.finish(ctx, runID, err)
		return nil, err
	}

	// scripts cached against older descriptors are stale
	regenerate := opts.RegenerateScripts || !an.Cached
	p.logger.Info().
		Str("asset", va.ID).
		Int("perspectives", len(kinds)).
		Str("run", runID).
		Msg("running perspectives")

	results := make([]PerspectiveResult, 0, len(kinds))
	for _, k := range kinds {
		res, err := p.RunPerspective(ctx, runID, an, k, regenerate)
		if err != nil {
			continue
		}
		results = append(results, *res)
	}

	if err := util.WriteJSON(filepath.Join(an.Dir, ResultsFile), results); err != nil {
		p.logger.Warn().Err(err).Msg("failed to save results")
	}

	var runErr error
	if len(results) == 0 {
		runErr = errors.New("no perspective completed")
	}
	p.finish(ctx, runID, runErr)

	if ctx.Err() != nil {
		return results, ctx.Err()
	}

	p.logger.Info().
		Int("requested", len(kinds)).
		Int("completed", len(results)).
		Msg("run complete")

	return results, nil
}

func (p *Pipeline) finish(ctx context.Context, runID string, runErr error) {
	if err := p.recorder.FinishRun(context.WithoutCancel(ctx), runID, runErr); err != nil {
		p.logger.Warn().Err(err).Msg("failed to journal run end")
	}
}

// RunPerspective drives one perspective from script to final video. The
// branch's working directory is removed once the video is written and kept
// when concatenation fails.
func (p *Pipeline) RunPerspective(ctx context.Context, runID string, an *Analysis, k perspective.Kind, regenerate bool) (*PerspectiveResult, error) {
	const op = "pipeline.perspective"

	name := k.String()
	m := newMachine(ctx, p.logger, p.recorder, runID, name)
	start := time.Now()

	// SCRIPT_PENDING -> SCRIPT_READY
	sc, err := p.composer.Compose(ctx, script.ComposeInput{
		Descriptors: an.Descriptors,
		Perspective: k,
		Language:    p.cfg.Language,
		Duration:    an.Asset.Duration.Seconds(),
		CacheDir:    an.Dir,
		Regenerate:  regenerate,
	})
	if err != nil {
		return nil, m.fail(ctx, "script", err)
	}
	m.advance(ctx, fmt.Sprintf("%d clips", len(sc.Clips)))

	// SCRIPT_READY -> RENDER_PENDING -> RENDER_READY
	m.advance(ctx, "")
	workDir := WorkDir(an, k)
	rendered, err := p.renderer.Render(ctx, an.Asset.Path, sc, workDir)
	if err != nil {
		return nil, m.fail(ctx, "render", err)
	}
	ok := len(rendered) - clips.Failed(rendered)
	minClips := max(p.cfg.Render.MinClips, 1)
	if ok < minClips {
		return nil, m.fail(ctx, "render", errs.Errorf(errs.MediaTool, op, "%d of %d clips rendered, need %d", ok, len(rendered), minClips))
	}
	m.advance(ctx, fmt.Sprintf("%d of %d clips rendered", ok, len(rendered)))

	// RENDER_READY -> CONCAT_PENDING -> DONE
	m.advance(ctx, "")
	output := filepath.Join(p.cfg.OutputDir, fmt.Sprintf("%s_%s.mp4", p.now().Format("20060102150405"), name))
	joined, err := p.concat.Concat(ctx, rendered, output)
	if err != nil {
		return nil, m.fail(ctx, "concat", err)
	}
	m.advance(ctx, output)

	if err := p.recorder.Complete(context.WithoutCancel(ctx), runID, name, output, joined); err != nil {
		m.logger.Warn().Err(err).Msg("failed to journal output")
	}
	if err := os.RemoveAll(workDir); err != nil {
		m.logger.Warn().Err(err).Str("dir", workDir).Msg("failed to remove working dir")
	}

	m.logger.Info().
		Str("output", output).
		Int("segments", joined).
		Dur("took", time.Since(start)).
		Msg("perspective complete")

	return &PerspectiveResult{Perspective: name, VideoPath: output, SegmentsCount: joined}, nil
}
