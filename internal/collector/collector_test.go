package collector_test

import (
	"context"
	"strings"
	"testing"

	"spyglass/internal/collector"
	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/platform"
	"spyglass/internal/taskstore"
	"spyglass/internal/testsupport"
)

func newCollector(t *testing.T, cfg *config.Config, fakes ...*testsupport.FakeAdapter) (*collector.Collector, *platform.Registry) {
	t.Helper()
	registry, err := platform.NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	for _, fake := range fakes {
		registry.Register(fake)
	}
	return collector.New(registry, cfg, logging.NewNop()), registry
}

func TestQuickCollectsPrimaryOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeAdapter("twitter")
	c, _ := newCollector(t, cfg, fake)

	data, err := c.Collect(context.Background(), "twitter", "morning_roast", taskstore.DepthQuick)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if data.Primary == nil || data.Primary.Identifier != "morning_roast" {
		t.Fatalf("unexpected primary bundle: %#v", data.Primary)
	}
	if len(data.Sections) != 0 {
		t.Fatalf("quick depth should not fetch sections, got %d", len(data.Sections))
	}
	if calls := fake.SectionCalls(); len(calls) != 0 {
		t.Fatalf("quick depth should not call Section, got %v", calls)
	}
	if len(data.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", data.Failures)
	}
	if data.Duration <= 0 {
		t.Fatal("expected duration to be recorded")
	}
}

func TestDeepFansOutSections(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeAdapter("twitter")
	fake.Sections[platform.SectionMedia] = &platform.Section{
		Kind:     platform.SectionMedia,
		Captions: []string{"morning espresso session"},
	}
	c, _ := newCollector(t, cfg, fake)

	data, err := c.Collect(context.Background(), "twitter", "morning_roast", taskstore.DepthDeep)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(data.Sections) != len(platform.DeepSections()) {
		t.Fatalf("expected all deep sections, got %d", len(data.Sections))
	}
	media := data.Sections[platform.SectionMedia]
	if media == nil || len(media.Captions) != 1 {
		t.Fatalf("unexpected media section: %#v", media)
	}
	if calls := fake.SectionCalls(); len(calls) != len(platform.DeepSections()) {
		t.Fatalf("expected one call per section, got %v", calls)
	}
}

func TestPrimaryFailureFailsCollection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeAdapter("twitter")
	fake.FetchErr = platform.NewAdapterError("twitter", platform.KindNotFound, "no such profile", nil)
	c, _ := newCollector(t, cfg, fake)

	_, err := c.Collect(context.Background(), "twitter", "ghost", taskstore.DepthQuick)
	if err == nil {
		t.Fatal("expected collection to fail when the primary fetch fails")
	}
	if !platform.IsNotFound(err) {
		t.Fatalf("expected not_found to survive wrapping, got %v", err)
	}
}

func TestSecondaryFailuresAreRecorded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fake := testsupport.NewFakeAdapter("twitter")
	fake.SectionErrs = map[platform.SectionKind]error{
		platform.SectionComments: platform.NewAdapterError("twitter", platform.KindRateLimited, "slow down", nil),
	}
	c, _ := newCollector(t, cfg, fake)

	data, err := c.Collect(context.Background(), "twitter", "morning_roast", taskstore.DepthDeep)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(data.Sections) != len(platform.DeepSections())-1 {
		t.Fatalf("expected remaining sections to land, got %d", len(data.Sections))
	}
	if len(data.Failures) != 1 {
		t.Fatalf("expected one recorded failure, got %v", data.Failures)
	}
	failure := data.Failures[0]
	if failure.Source != "section:comments" || failure.Kind != "rate_limited" {
		t.Fatalf("unexpected failure record: %#v", failure)
	}
}

func TestDeepFetchesLinkedProfiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	primary := testsupport.NewFakeAdapter("twitter")
	primary.Bundle.Links = []platform.Handle{{Platform: "instagram", Identifier: "morning_roast"}}
	linked := testsupport.NewFakeAdapter("instagram")
	c, _ := newCollector(t, cfg, primary, linked)

	data, err := c.Collect(context.Background(), "twitter", "morning_roast", taskstore.DepthDeep)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	bundle, ok := data.Linked["instagram"]
	if !ok || bundle.Identifier != "morning_roast" {
		t.Fatalf("expected linked instagram bundle, got %#v", data.Linked)
	}
	if linked.FetchCalls() != 1 {
		t.Fatalf("expected one linked fetch, got %d", linked.FetchCalls())
	}
}

func TestLinkedHandleFiltersAndCap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Collection.MaxLinkedProfiles = 1
	primary := testsupport.NewFakeAdapter("twitter")
	primary.Bundle.Links = []platform.Handle{
		{Platform: "tiktok", Identifier: "morning_roast"},
		{Platform: "instagram", Identifier: "morning_roast"},
		{Platform: "instagram", Identifier: "morning_roast"},
		{Platform: "twitter", Identifier: "other_account"},
		{Platform: "myspace", Identifier: "morning_roast"},
	}
	instagram := testsupport.NewFakeAdapter("instagram")
	tiktok := testsupport.NewFakeAdapter("tiktok")
	c, _ := newCollector(t, cfg, primary, instagram, tiktok)

	data, err := c.Collect(context.Background(), "twitter", "morning_roast", taskstore.DepthDeep)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(data.Linked) != 1 {
		t.Fatalf("expected linked fetches capped at 1, got %d", len(data.Linked))
	}
	if _, ok := data.Linked["instagram"]; !ok {
		t.Fatalf("expected sorted order to pick instagram first, got %#v", data.Linked)
	}
	if tiktok.FetchCalls() != 0 {
		t.Fatalf("expected tiktok skipped by the cap, got %d fetches", tiktok.FetchCalls())
	}
}

func TestLinkedFailureIsRecordedNotFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	primary := testsupport.NewFakeAdapter("twitter")
	primary.Bundle.Links = []platform.Handle{{Platform: "instagram", Identifier: "gone"}}
	linked := testsupport.NewFakeAdapter("instagram")
	linked.FetchErr = platform.NewAdapterError("instagram", platform.KindTimeout, "gateway hung", nil)
	c, _ := newCollector(t, cfg, primary, linked)

	data, err := c.Collect(context.Background(), "twitter", "morning_roast", taskstore.DepthDeep)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(data.Linked) != 0 {
		t.Fatalf("expected no linked bundles, got %#v", data.Linked)
	}
	found := false
	for _, failure := range data.Failures {
		if failure.Source == "linked:instagram/gone" && failure.Kind == "timeout" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected linked failure record, got %v", data.Failures)
	}
}

func TestLinksSectionFeedsLinkedFetches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	primary := testsupport.NewFakeAdapter("twitter")
	primary.Sections[platform.SectionLinks] = &platform.Section{
		Kind:    platform.SectionLinks,
		Handles: []platform.Handle{{Platform: "youtube", Identifier: "morning_roast"}},
	}
	linked := testsupport.NewFakeAdapter("youtube")
	c, _ := newCollector(t, cfg, primary, linked)

	data, err := c.Collect(context.Background(), "twitter", "morning_roast", taskstore.DepthDeep)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if _, ok := data.Linked["youtube"]; !ok {
		t.Fatalf("expected links section handle to be chased, got %#v", data.Linked)
	}
}

func TestMaxPostsCapsPrimaryBundle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Collection.MaxPosts = 2
	fake := testsupport.NewFakeAdapter("twitter")
	c, _ := newCollector(t, cfg, fake)

	data, err := c.Collect(context.Background(), "twitter", "morning_roast", taskstore.DepthQuick)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(data.Primary.Posts) != 2 {
		t.Fatalf("expected posts capped at 2, got %d", len(data.Primary.Posts))
	}
}

func TestCollectUnknownPlatform(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	c, _ := newCollector(t, cfg)

	if _, err := c.Collect(context.Background(), "myspace", "someone", taskstore.DepthQuick); err == nil {
		t.Fatal("expected error for unconfigured platform")
	}
}

func TestCollectedDataHelpers(t *testing.T) {
	var nilData *collector.CollectedData
	if !nilData.Empty() {
		t.Fatal("nil data should be empty")
	}

	cfg := testsupport.NewConfig(t)
	primary := testsupport.NewFakeAdapter("twitter")
	primary.Bundle.Links = []platform.Handle{{Platform: "instagram", Identifier: "morning_roast"}}
	linked := testsupport.NewFakeAdapter("instagram")
	c, _ := newCollector(t, cfg, primary, linked)

	data, err := c.Collect(context.Background(), "twitter", "morning_roast", taskstore.DepthDeep)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if data.Empty() {
		t.Fatal("collected data should not be empty")
	}

	sources := data.SucceededSources()
	if len(sources) == 0 || sources[0] != "profile" {
		t.Fatalf("expected profile first in sources, got %v", sources)
	}
	wantLinked := "linked:instagram/morning_roast"
	if sources[len(sources)-1] != wantLinked {
		t.Fatalf("expected %q last in sources, got %v", wantLinked, sources)
	}
	for _, source := range sources[1 : len(sources)-1] {
		if !strings.HasPrefix(source, "section:") {
			t.Fatalf("expected section sources in the middle, got %v", sources)
		}
	}

	platforms := data.PlatformsSeen()
	if len(platforms) != 2 || platforms[0] != "instagram" || platforms[1] != "twitter" {
		t.Fatalf("unexpected platforms seen: %v", platforms)
	}

	posts := data.AllPosts()
	if len(posts) != len(data.Primary.Posts)+len(data.Linked["instagram"].Posts) {
		t.Fatalf("expected primary plus linked posts, got %d", len(posts))
	}
}
