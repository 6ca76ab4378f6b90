package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"linksignal/internal/config"
	"linksignal/internal/domain"
	"linksignal/internal/service/mocks"
)

type IngestorTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	links     *mocks.MockLinkStore
	mentions  *mocks.MockMentionStore
	blacklist *mocks.MockBlacklistStore
	canon     *mocks.MockCanonicalizer
	txManager *mocks.MockTransactionManager
	publisher *mocks.MockPublisher
	metadata  *mocks.MockMetadataFetcher

	ingestor *Ingestor
	cfg      config.IngestConfig
	logger   *slog.Logger
}

func (s *IngestorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.links = mocks.NewMockLinkStore(s.ctrl)
	s.mentions = mocks.NewMockMentionStore(s.ctrl)
	s.blacklist = mocks.NewMockBlacklistStore(s.ctrl)
	s.canon = mocks.NewMockCanonicalizer(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.metadata = mocks.NewMockMetadataFetcher(s.ctrl)

	s.cfg = config.IngestConfig{Concurrency: 2}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.ingestor = NewIngestor(
		s.links,
		s.mentions,
		s.blacklist,
		s.canon,
		s.txManager,
		s.publisher,
		s.metadata,
		s.logger,
		s.cfg,
	)
}

func (s *IngestorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestIngestorTestSuite(t *testing.T) {
	suite.Run(t, new(IngestorTestSuite))
}

func (s *IngestorTestSuite) expectTransaction(ctx context.Context) {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func successResult(canonicalURL string) domain.CanonicalResult {
	return domain.CanonicalResult{
		CanonicalURL: canonicalURL,
		Domain:       "example.com",
		BaseDomain:   "example.com",
		Status:       domain.CanonicalSuccess,
	}
}

func (s *IngestorTestSuite) TestIngest_NewLink() {
	ctx := context.Background()
	raw := domain.RawMention{URL: "https://example.com/post?utm_source=x", SourceID: "src-1"}
	stored := &domain.Link{ID: "link-1", CanonicalURL: "https://example.com/post"}

	s.blacklist.EXPECT().List(ctx).Return(nil, nil)
	s.canon.EXPECT().Canonicalize(ctx, raw.URL, gomock.Any()).Return(successResult("https://example.com/post"), nil)

	s.expectTransaction(ctx)
	s.links.EXPECT().Upsert(ctx, gomock.Any()).Return(stored, true, nil)
	s.mentions.EXPECT().Record(ctx, "link-1", "src-1", gomock.Any()).Return(true, nil)

	s.publisher.EXPECT().PublishLink(ctx, stored, true).Return(nil)
	s.publisher.EXPECT().PublishMention(ctx, stored, "src-1", gomock.Any()).Return(nil)

	result := s.ingestor.Ingest(ctx, raw)

	s.True(result.Success)
	s.Equal("link-1", result.LinkID)
	s.Equal(domain.CanonicalSuccess, result.Status)
	s.False(result.Duplicate)
	s.Empty(result.Error)
}

func (s *IngestorTestSuite) TestIngest_DuplicateMention() {
	ctx := context.Background()
	raw := domain.RawMention{URL: "https://example.com/post", SourceID: "src-1"}
	stored := &domain.Link{ID: "link-1", CanonicalURL: "https://example.com/post"}

	s.blacklist.EXPECT().List(ctx).Return(nil, nil)
	s.canon.EXPECT().Canonicalize(ctx, raw.URL, gomock.Any()).Return(successResult("https://example.com/post"), nil)

	s.expectTransaction(ctx)
	s.links.EXPECT().Upsert(ctx, gomock.Any()).Return(stored, false, nil)
	s.mentions.EXPECT().Record(ctx, "link-1", "src-1", gomock.Any()).Return(false, nil)

	// No publish events: the link existed and the mention is a re-sighting.

	result := s.ingestor.Ingest(ctx, raw)

	s.True(result.Success)
	s.True(result.Duplicate)
	s.Equal(domain.ErrorDuplicateMention, result.Error)
}

func (s *IngestorTestSuite) TestIngest_ExistingLinkNewSource() {
	ctx := context.Background()
	raw := domain.RawMention{URL: "https://example.com/post", SourceID: "src-2"}
	stored := &domain.Link{ID: "link-1", CanonicalURL: "https://example.com/post"}

	s.blacklist.EXPECT().List(ctx).Return(nil, nil)
	s.canon.EXPECT().Canonicalize(ctx, raw.URL, gomock.Any()).Return(successResult("https://example.com/post"), nil)

	s.expectTransaction(ctx)
	s.links.EXPECT().Upsert(ctx, gomock.Any()).Return(stored, false, nil)
	s.mentions.EXPECT().Record(ctx, "link-1", "src-2", gomock.Any()).Return(true, nil)

	// Only the mention event fires; the link is not new.
	s.publisher.EXPECT().PublishMention(ctx, stored, "src-2", gomock.Any()).Return(nil)

	result := s.ingestor.Ingest(ctx, raw)

	s.True(result.Success)
	s.False(result.Duplicate)
}

func (s *IngestorTestSuite) TestIngest_Blacklisted() {
	ctx := context.Background()
	raw := domain.RawMention{URL: "https://spam.example/x", SourceID: "src-1"}

	s.blacklist.EXPECT().List(ctx).Return([]domain.BlacklistEntry{
		{Type: domain.BlacklistDomain, Pattern: "spam.example"},
	}, nil)
	s.canon.EXPECT().Canonicalize(ctx, raw.URL, gomock.Any()).
		Return(domain.CanonicalResult{}, domain.ErrBlacklisted)

	result := s.ingestor.Ingest(ctx, raw)

	s.False(result.Success)
	s.Equal(domain.ErrorBlacklisted, result.Error)
	s.Empty(result.LinkID)
}

func (s *IngestorTestSuite) TestIngest_ResolutionFailureStillPersists() {
	ctx := context.Background()
	raw := domain.RawMention{URL: "https://bit.ly/dead", SourceID: "src-1"}
	stored := &domain.Link{ID: "link-9", CanonicalURL: "https://bit.ly/dead", NeedsManualReview: true}

	s.blacklist.EXPECT().List(ctx).Return(nil, nil)
	s.canon.EXPECT().Canonicalize(ctx, raw.URL, gomock.Any()).Return(domain.CanonicalResult{
		CanonicalURL: "https://bit.ly/dead",
		Domain:       "bit.ly",
		BaseDomain:   "bit.ly",
		Status:       domain.CanonicalFailed,
		Error:        "head request: connection refused",
	}, nil)

	s.expectTransaction(ctx)
	s.links.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, link *domain.Link) (*domain.Link, bool, error) {
			s.True(link.NeedsManualReview)
			s.NotNil(link.CanonicalError)
			return stored, true, nil
		},
	)
	s.mentions.EXPECT().Record(ctx, "link-9", "src-1", gomock.Any()).Return(true, nil)

	s.publisher.EXPECT().PublishLink(ctx, stored, true).Return(nil)
	s.publisher.EXPECT().PublishMention(ctx, stored, "src-1", gomock.Any()).Return(nil)

	result := s.ingestor.Ingest(ctx, raw)

	s.True(result.Success)
	s.Equal(domain.CanonicalFailed, result.Status)
}

func (s *IngestorTestSuite) TestIngest_PersistError() {
	ctx := context.Background()
	raw := domain.RawMention{URL: "https://example.com/post", SourceID: "src-1"}

	s.blacklist.EXPECT().List(ctx).Return(nil, nil)
	s.canon.EXPECT().Canonicalize(ctx, raw.URL, gomock.Any()).Return(successResult("https://example.com/post"), nil)

	s.expectTransaction(ctx)
	s.links.EXPECT().Upsert(ctx, gomock.Any()).Return(nil, false, errors.New("connection reset"))

	result := s.ingestor.Ingest(ctx, raw)

	s.False(result.Success)
	s.Contains(result.Error, "persist")
}

func (s *IngestorTestSuite) TestIngest_MissingFields() {
	ctx := context.Background()

	s.blacklist.EXPECT().List(ctx).Return(nil, nil)
	result := s.ingestor.Ingest(ctx, domain.RawMention{URL: "", SourceID: "src-1"})
	s.False(result.Success)
	s.Contains(result.Error, "missing")

	s.blacklist.EXPECT().List(ctx).Return(nil, nil)
	result = s.ingestor.Ingest(ctx, domain.RawMention{URL: "https://example.com", SourceID: ""})
	s.False(result.Success)
	s.Contains(result.Error, "missing")
}

func (s *IngestorTestSuite) TestIngest_PublisherNil() {
	ctx := context.Background()
	raw := domain.RawMention{URL: "https://example.com/post", SourceID: "src-1"}
	stored := &domain.Link{ID: "link-1", CanonicalURL: "https://example.com/post"}

	ingestor := NewIngestor(
		s.links,
		s.mentions,
		s.blacklist,
		s.canon,
		s.txManager,
		nil,
		s.metadata,
		s.logger,
		s.cfg,
	)

	s.blacklist.EXPECT().List(ctx).Return(nil, nil)
	s.canon.EXPECT().Canonicalize(ctx, raw.URL, gomock.Any()).Return(successResult("https://example.com/post"), nil)

	s.expectTransaction(ctx)
	s.links.EXPECT().Upsert(ctx, gomock.Any()).Return(stored, true, nil)
	s.mentions.EXPECT().Record(ctx, "link-1", "src-1", gomock.Any()).Return(true, nil)

	result := ingestor.Ingest(ctx, raw)

	s.True(result.Success)
}

func (s *IngestorTestSuite) TestIngest_FetchesMetadataForNewLinks() {
	ctx := context.Background()
	raw := domain.RawMention{URL: "https://example.com/post", SourceID: "src-1"}
	stored := &domain.Link{ID: "link-1", CanonicalURL: "https://example.com/post"}
	title := "A Post"

	cfg := s.cfg
	cfg.FetchMetadata = true
	ingestor := NewIngestor(
		s.links,
		s.mentions,
		s.blacklist,
		s.canon,
		s.txManager,
		s.publisher,
		s.metadata,
		s.logger,
		cfg,
	)

	s.blacklist.EXPECT().List(ctx).Return(nil, nil)
	s.canon.EXPECT().Canonicalize(ctx, raw.URL, gomock.Any()).Return(successResult("https://example.com/post"), nil)

	s.expectTransaction(ctx)
	s.links.EXPECT().Upsert(ctx, gomock.Any()).Return(stored, true, nil)
	s.mentions.EXPECT().Record(ctx, "link-1", "src-1", gomock.Any()).Return(true, nil)

	s.publisher.EXPECT().PublishLink(ctx, stored, true).Return(nil)
	s.publisher.EXPECT().PublishMention(ctx, stored, "src-1", gomock.Any()).Return(nil)

	s.metadata.EXPECT().Fetch(ctx, "https://example.com/post").
		Return(domain.LinkMetadata{Title: &title}, nil)
	s.links.EXPECT().UpdateMetadata(ctx, "link-1", gomock.Any()).Return(nil)

	result := ingestor.Ingest(ctx, raw)

	s.True(result.Success)
}

func (s *IngestorTestSuite) TestIngestBatch_IsolatesFailures() {
	ctx := context.Background()
	items := []domain.RawMention{
		{URL: "https://example.com/good", SourceID: "src-1"},
		{URL: "https://spam.example/bad", SourceID: "src-1"},
		{URL: "not a url", SourceID: "src-1"},
	}
	stored := &domain.Link{ID: "link-1", CanonicalURL: "https://example.com/good"}

	// Blacklist is loaded once for the whole batch.
	s.blacklist.EXPECT().List(ctx).Return(nil, nil)

	s.canon.EXPECT().Canonicalize(gomock.Any(), "https://example.com/good", gomock.Any()).
		Return(successResult("https://example.com/good"), nil)
	s.canon.EXPECT().Canonicalize(gomock.Any(), "https://spam.example/bad", gomock.Any()).
		Return(domain.CanonicalResult{}, domain.ErrBlacklisted)
	s.canon.EXPECT().Canonicalize(gomock.Any(), "not a url", gomock.Any()).
		Return(domain.CanonicalResult{}, domain.ErrInvalidURL)

	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	s.links.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(stored, true, nil)
	s.mentions.EXPECT().Record(gomock.Any(), "link-1", "src-1", gomock.Any()).Return(true, nil)

	s.publisher.EXPECT().PublishLink(gomock.Any(), stored, true).Return(nil)
	s.publisher.EXPECT().PublishMention(gomock.Any(), stored, "src-1", gomock.Any()).Return(nil)

	stats := s.ingestor.IngestBatch(ctx, items)

	s.Equal(3, stats.Processed)
	s.Equal(1, stats.Succeeded)
	s.Equal(1, stats.Rejected)
	s.Equal(1, stats.Failed)
	s.Len(stats.Results, 3)
}

func (s *IngestorTestSuite) TestIngestBatch_BlacklistLoadError() {
	ctx := context.Background()
	items := []domain.RawMention{
		{URL: "https://example.com/a", SourceID: "src-1"},
		{URL: "https://example.com/b", SourceID: "src-1"},
	}

	s.blacklist.EXPECT().List(ctx).Return(nil, errors.New("db down"))

	stats := s.ingestor.IngestBatch(ctx, items)

	s.Equal(2, stats.Processed)
	s.Equal(2, stats.Failed)
	s.Equal(0, stats.Succeeded)
}

func TestShouldIngest(t *testing.T) {
	source := &domain.Source{
		ID:              "kottke",
		BaseDomain:      "kottke.org",
		InternalDomains: []string{"kottke.club"},
	}

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"external link", "https://example.com/post", true},
		{"own base domain", "https://kottke.org/24/01/post", false},
		{"own subdomain", "https://feeds.kottke.org/main", false},
		{"internal alias", "https://kottke.club/thing", false},
		{"unparseable", "://", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldIngest(source, tt.url); got != tt.want {
				t.Errorf("ShouldIngest(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}

	optIn := &domain.Source{ID: "own", BaseDomain: "kottke.org", IncludeOwnLinks: true}
	if !ShouldIngest(optIn, "https://kottke.org/post") {
		t.Error("sources that opt in should keep their own links")
	}
}
