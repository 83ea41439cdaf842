package ports

import (
	"context"
	"time"

	"github.com/stugorf/hdc-digest/internal/domain"
)

// Agent is the upstream language-model agent: one prompt in, response text out.
// Calls are synchronous and the caller never has more than one outstanding.
type Agent interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// SectionSource retrieves the raw items of every configured section, in order.
type SectionSource interface {
	FetchSections(ctx context.Context, day time.Time) ([]domain.Section, error)
}

// SeenStore persists run batches keyed by canonical URL.
type SeenStore interface {
	LoadSeen(ctx context.Context, kind domain.ItemKind) (map[string]struct{}, error)
	Save(ctx context.Context, digest domain.Digest) error
}

// ItemReader is the read-only query surface over the stored history.
type ItemReader interface {
	List(ctx context.Context, filter domain.ListFilter) ([]domain.StoredItem, error)
	GetByURL(ctx context.Context, kind domain.ItemKind, url string) (domain.StoredItem, error)
	FirstSeenBetween(ctx context.Context, kind domain.ItemKind, from, to time.Time) ([]domain.StoredItem, error)
	Stats(ctx context.Context, kind domain.ItemKind) (domain.Stats, error)
}

// Notifier delivers a rendered digest to a channel such as Telegram.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
