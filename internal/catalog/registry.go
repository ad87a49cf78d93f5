package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sniffer/internal/logging"
	"sniffer/internal/media"
	"sniffer/internal/services"
)

// Resolver fetches metadata for one family of asset extensions.
type Resolver interface {
	Name() string
	// Extensions lists the lower-case extensions served, without dots.
	Extensions() []string
	Resolve(ctx context.Context, id string) (media.Metadata, error)
}

// Registry dispatches asset names to the resolver owning their extension.
type Registry struct {
	resolvers []Resolver
	byExt     map[string]Resolver
	logger    *slog.Logger
}

// NewRegistry builds a registry from resolvers in priority order. Extension
// sets must not overlap.
func NewRegistry(logger *slog.Logger, resolvers ...Resolver) (*Registry, error) {
	reg := &Registry{
		byExt:  make(map[string]Resolver),
		logger: logging.NewComponentLogger(logger, "catalog"),
	}
	for _, r := range resolvers {
		for _, ext := range r.Extensions() {
			ext = strings.ToLower(strings.TrimPrefix(ext, "."))
			if owner, ok := reg.byExt[ext]; ok {
				return nil, services.Wrap(services.ErrConfiguration, "catalog", "register",
					fmt.Sprintf("extension %q claimed by both %s and %s", ext, owner.Name(), r.Name()), nil)
			}
			reg.byExt[ext] = r
		}
		reg.resolvers = append(reg.resolvers, r)
	}
	return reg, nil
}

// NewDefaultRegistry wires the track and movie resolvers against client.
func NewDefaultRegistry(client *Client, logger *slog.Logger) (*Registry, error) {
	return NewRegistry(logger, NewTrackResolver(client), NewMovieResolver(client))
}

// Supports reports whether some resolver owns ext.
func (r *Registry) Supports(ext string) bool {
	_, ok := r.byExt[strings.ToLower(ext)]
	return ok
}

// Resolve returns metadata for an "id.ext" file name, or nil when the name is
// malformed, no resolver owns the extension, or the lookup fails. Failures are
// logged, never returned.
func (r *Registry) Resolve(ctx context.Context, fileName string) media.Metadata {
	logger := logging.WithContext(ctx, r.logger)

	asset, ok := media.SplitAssetName(fileName)
	if !ok {
		logging.WarnWithContext(logger, "asset name is not of the form id.ext",
			"resolve_skipped",
			logging.String("file_name", fileName),
			logging.String(logging.FieldImpact, "asset saved without metadata"),
		)
		return nil
	}

	resolver, ok := r.byExt[asset.Extension]
	if !ok {
		logger.Info("no metadata resolver for extension",
			logging.String("extension", asset.Extension),
			logging.String(logging.FieldEventType, "resolve_unsupported"),
		)
		return nil
	}

	logger.Info("resolving metadata",
		logging.String("resolver", resolver.Name()),
		logging.String("id", asset.ID),
	)
	meta, err := resolver.Resolve(ctx, asset.ID)
	if err != nil {
		err = services.Wrap(services.ErrResolution, "catalog", resolver.Name(), asset.ID, err)
		logging.WarnWithContext(logger, "metadata lookup failed",
			services.EventType(err),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog.base_url and network access"),
			logging.String(logging.FieldImpact, "asset saved without metadata"),
		)
		return nil
	}
	logger.Info("metadata resolved",
		logging.String("kind", string(media.KindOf(meta))),
		logging.String("name", meta.CanonicalName()),
	)
	return meta
}
