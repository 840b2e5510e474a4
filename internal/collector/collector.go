package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/platform"
	"spyglass/internal/services"
	"spyglass/internal/taskstore"
)

// Collector orchestrates profile collection across adapters.
type Collector struct {
	registry *platform.Registry
	cfg      *config.Config
	logger   *slog.Logger
}

// New builds a collector over the adapter registry.
func New(registry *platform.Registry, cfg *config.Config, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Collector{registry: registry, cfg: cfg, logger: logger}
}

// Collect gathers profile data for an identifier. Quick depth is the primary
// fetch only; deep depth fans out over sections and bounded linked-profile
// fetches. A primary failure fails the collection; secondary failures are
// recorded on the returned data.
func (c *Collector) Collect(ctx context.Context, platformName, identifier string, depth taskstore.Depth) (*CollectedData, error) {
	adapter, ok := c.registry.Adapter(platformName)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "collector", "collect",
			fmt.Sprintf("no adapter for platform %q", platformName), nil)
	}

	started := time.Now()
	data := &CollectedData{
		Platform:   platformName,
		Identifier: identifier,
		Depth:      depth,
		Linked:     make(map[string]*platform.ProfileBundle),
		Sections:   make(map[platform.SectionKind]*platform.Section),
		StartedAt:  started,
	}

	primaryCtx, cancel := context.WithTimeout(ctx, c.quickTimeout())
	bundle, err := adapter.Fetch(primaryCtx, identifier, depth)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("primary fetch: %w", err)
	}
	data.Primary = bundle
	c.capPosts(bundle)

	if depth == taskstore.DepthDeep {
		c.collectSections(ctx, adapter, identifier, data)
		c.collectLinked(ctx, data)
	}

	data.Duration = time.Since(started)
	c.logger.Debug("collection finished",
		logging.String(logging.FieldPlatform, platformName),
		logging.String(logging.FieldIdentifier, identifier),
		logging.String("depth", string(depth)),
		logging.Int("sections", len(data.Sections)),
		logging.Int("linked", len(data.Linked)),
		logging.Int("failures", len(data.Failures)),
		logging.Duration("duration", data.Duration))
	return data, nil
}

// collectSections fans out over the deep sections with bounded concurrency.
// Failures are recorded, never fatal.
func (c *Collector) collectSections(ctx context.Context, adapter platform.Adapter, identifier string, data *CollectedData) {
	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.sectionLimit())
	for _, kind := range platform.DeepSections() {
		eg.Go(func() error {
			sectionCtx, cancel := context.WithTimeout(egCtx, c.sectionTimeout())
			section, err := adapter.Section(sectionCtx, identifier, kind)
			cancel()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				data.Failures = append(data.Failures, SourceFailure{
					Source: "section:" + string(kind),
					Kind:   string(platform.KindOf(err)),
					Detail: err.Error(),
				})
				c.logger.Debug("section fetch failed",
					logging.String(logging.FieldPlatform, data.Platform),
					logging.String("section", string(kind)),
					logging.Error(err))
				return nil
			}
			data.Sections[kind] = section
			return nil
		})
	}
	_ = eg.Wait()
}

// collectLinked chases cross-platform handles discovered on the profile. Only
// handles for other configured platforms are fetched, in sorted order and
// capped by configuration. Same-platform duplicates resolve deterministically
// because handles are processed in sorted order.
func (c *Collector) collectLinked(ctx context.Context, data *CollectedData) {
	handles := c.linkedHandles(data)
	if len(handles) == 0 {
		return
	}

	type linkedResult struct {
		handle platform.Handle
		bundle *platform.ProfileBundle
		err    error
	}
	results := make([]linkedResult, len(handles))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.sectionLimit())
	for i, handle := range handles {
		adapter, ok := c.registry.Adapter(handle.Platform)
		if !ok {
			continue
		}
		eg.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(egCtx, c.sectionTimeout())
			bundle, err := adapter.Fetch(fetchCtx, handle.Identifier, taskstore.DepthQuick)
			cancel()
			results[i] = linkedResult{handle: handle, bundle: bundle, err: err}
			return nil
		})
	}
	_ = eg.Wait()

	for _, result := range results {
		if result.handle.Platform == "" {
			continue
		}
		if result.err != nil {
			data.Failures = append(data.Failures, SourceFailure{
				Source: fmt.Sprintf("linked:%s/%s", result.handle.Platform, result.handle.Identifier),
				Kind:   string(platform.KindOf(result.err)),
				Detail: result.err.Error(),
			})
			c.logger.Debug("linked profile fetch failed",
				logging.String(logging.FieldPlatform, result.handle.Platform),
				logging.String(logging.FieldIdentifier, result.handle.Identifier),
				logging.Error(result.err))
			continue
		}
		c.capPosts(result.bundle)
		data.Linked[result.handle.Platform] = result.bundle
	}
}

// linkedHandles merges bundle links with the links section, drops handles on
// the primary platform and unconfigured ones, dedupes, sorts, and caps.
func (c *Collector) linkedHandles(data *CollectedData) []platform.Handle {
	var candidates []platform.Handle
	if data.Primary != nil {
		candidates = append(candidates, data.Primary.Links...)
	}
	if section, ok := data.Sections[platform.SectionLinks]; ok {
		candidates = append(candidates, section.Handles...)
	}

	seen := make(map[platform.Handle]struct{}, len(candidates))
	handles := make([]platform.Handle, 0, len(candidates))
	for _, handle := range candidates {
		if handle.Platform == "" || handle.Identifier == "" {
			continue
		}
		if handle.Platform == data.Platform {
			continue
		}
		if !c.registry.Supported(handle.Platform) {
			continue
		}
		if _, dup := seen[handle]; dup {
			continue
		}
		seen[handle] = struct{}{}
		handles = append(handles, handle)
	}
	sort.Slice(handles, func(i, j int) bool {
		if handles[i].Platform != handles[j].Platform {
			return handles[i].Platform < handles[j].Platform
		}
		return handles[i].Identifier < handles[j].Identifier
	})
	if limit := c.cfg.Collection.MaxLinkedProfiles; limit > 0 && len(handles) > limit {
		handles = handles[:limit]
	}
	return handles
}

func (c *Collector) capPosts(bundle *platform.ProfileBundle) {
	limit := c.cfg.Collection.MaxPosts
	if bundle == nil || limit <= 0 || len(bundle.Posts) <= limit {
		return
	}
	bundle.Posts = bundle.Posts[:limit]
}

func (c *Collector) quickTimeout() time.Duration {
	if c.cfg.Collection.QuickTimeout > 0 {
		return time.Duration(c.cfg.Collection.QuickTimeout) * time.Second
	}
	return 30 * time.Second
}

func (c *Collector) sectionTimeout() time.Duration {
	if c.cfg.Collection.SectionTimeout > 0 {
		return time.Duration(c.cfg.Collection.SectionTimeout) * time.Second
	}
	return 15 * time.Second
}

func (c *Collector) sectionLimit() int {
	if c.cfg.Collection.MaxConcurrentSections > 0 {
		return c.cfg.Collection.MaxConcurrentSections
	}
	return 4
}
