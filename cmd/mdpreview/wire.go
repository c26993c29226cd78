package main

import (
	"context"
	"os"

	"github.com/keithlinneman/mdpreview/internal/cfg"
	"github.com/keithlinneman/mdpreview/internal/content"
	"github.com/keithlinneman/mdpreview/internal/health"
	"github.com/keithlinneman/mdpreview/internal/log"
	"github.com/keithlinneman/mdpreview/internal/render"
	"github.com/keithlinneman/mdpreview/internal/xerrors"
)

func sourceKind(conf cfg.App) string {
	if conf.UseS3() {
		return "s3"
	}
	return "file"
}

func newSource(ctx context.Context, L log.Logger, conf cfg.App) (content.Source, error) {
	if conf.UseS3() {
		src, err := content.NewS3Source(ctx, content.S3Options{
			Logger: L,
			Bucket: conf.S3Bucket,
			Prefix: conf.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := content.NewFileSource(content.FileOptions{
		Logger: L,
		Root:   conf.Folder,
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

func newRenderer(L log.Logger, conf cfg.App, m render.Metrics) (render.Renderer, error) {
	opts := render.Options{
		Kind:    render.Kind(conf.RendererKind()),
		Logger:  L,
		Metrics: m,
	}
	if conf.Offline {
		opts.Offline = render.OfflineOptions{
			SafeMode:        conf.SafeMode,
			SkipFrontMatter: conf.SkipFrontMatter,
		}
	} else {
		opts.GitHub = render.GitHubOptions{
			Logger:            L,
			APIBase:           conf.GitHubAPI,
			Context:           conf.Context,
			Token:             conf.GitHubToken,
			RequestsPerSecond: conf.GitHubRPS,
			Timeout:           conf.RenderTimeout,
		}
	}
	return render.New(opts)
}

// sourceProbe fails readiness when the served folder disappears. S3 has no
// cheap equivalent so it always passes.
func sourceProbe(conf cfg.App) health.Probe {
	if conf.UseS3() {
		return health.Fixed(true, "")
	}
	root := conf.Folder
	return health.CheckFunc(func(ctx context.Context) error {
		fi, err := os.Stat(root)
		if err != nil {
			return xerrors.Wrap(err, "content folder")
		}
		if !fi.IsDir() {
			return xerrors.Newf("content folder %s is not a directory", root)
		}
		return nil
	})
}
