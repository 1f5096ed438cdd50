package source

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/smallbiznis/sparkload/internal/config"
	"github.com/smallbiznis/sparkload/internal/source/domain"
	"github.com/smallbiznis/sparkload/internal/source/fs"
	s3source "github.com/smallbiznis/sparkload/internal/source/s3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Config   config.Config
	Pipeline config.PipelineConfig
	Log      *zap.Logger
}

// Resolver maps a data root to a Source and filters its keys.
type Resolver struct {
	log     *zap.Logger
	s3cfg   s3source.Config
	matcher *Matcher

	clientOnce sync.Once
	client     s3source.API
	clientErr  error
}

func NewResolver(p Params) (*Resolver, error) {
	matcher, err := NewMatcher(p.Pipeline.FilePattern)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		log:     p.Log.Named("source.resolver"),
		matcher: matcher,
		s3cfg: s3source.Config{
			Region:    p.Config.S3Region,
			Endpoint:  p.Config.S3Endpoint,
			PathStyle: p.Config.S3PathStyle,
		},
	}, nil
}

// WithS3Client injects the client used for s3:// roots.
func (r *Resolver) WithS3Client(client s3source.API) *Resolver {
	r.clientOnce.Do(func() {})
	r.client = client
	return r
}

// Resolve returns the source for root: an s3:// URI or a local directory.
func (r *Resolver) Resolve(ctx context.Context, root string) (domain.Source, error) {
	root = strings.TrimSpace(root)
	if strings.HasPrefix(root, s3source.Scheme) {
		client, err := r.s3Client(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return s3source.New(client, root)
	}
	return fs.New(root)
}

// Discover lists root and keeps the keys whose base name matches the file pattern.
func (r *Resolver) Discover(ctx context.Context, root string) (domain.Source, []string, error) {
	src, err := r.Resolve(ctx, root)
	if err != nil {
		return nil, nil, err
	}
	keys, err := src.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	matched := r.matcher.Filter(keys)
	r.log.Debug("listed source",
		zap.String("root", src.Root()),
		zap.Int("objects", len(keys)),
		zap.Int("matched", len(matched)),
	)
	return src, matched, nil
}

func (r *Resolver) s3Client(ctx context.Context) (s3source.API, error) {
	r.clientOnce.Do(func() {
		r.client, r.clientErr = s3source.NewClient(ctx, r.s3cfg)
	})
	return r.client, r.clientErr
}

// Matcher matches key base names against a glob such as *.json.
type Matcher struct {
	pattern string
	g       glob.Glob
}

func NewMatcher(pattern string) (*Matcher, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		pattern = "*.json"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile file pattern %q: %w", pattern, err)
	}
	return &Matcher{pattern: pattern, g: g}, nil
}

func (m *Matcher) Match(key string) bool {
	return m.g.Match(path.Base(key))
}

// Filter keeps matching keys, preserving order.
func (m *Matcher) Filter(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if m.Match(key) {
			out = append(out, key)
		}
	}
	return out
}
