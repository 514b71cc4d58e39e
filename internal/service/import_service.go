package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"letterdesk/internal/audit"
	"letterdesk/internal/auth"
	"letterdesk/internal/authz"
	"letterdesk/internal/cache"
	apperrors "letterdesk/internal/errors"
	"letterdesk/internal/events"
	"letterdesk/internal/importer"
	"letterdesk/internal/metrics"
	"letterdesk/internal/repository"
)

// ImportService runs bulk user imports on behalf of an actor.
type ImportService interface {
	// ImportUsers reconciles the CSV in r. source names the origin for the audit trail.
	ImportUsers(ctx context.Context, actor auth.Actor, source string, r io.Reader) (*importer.Summary, error)
	Template() []byte
}

type importService struct {
	importer  *importer.Importer
	cache     *cache.Client
	publisher events.Publisher
	audit     *audit.Logger
	now       func() time.Time
}

// NewImportService creates the bulk import service.
func NewImportService(repo repository.UserRepository, cache *cache.Client, publisher events.Publisher, auditLog *audit.Logger, bcryptCost int) ImportService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if auditLog == nil {
		auditLog = audit.Nop()
	}
	return &importService{
		importer:  importer.New(repo, bcryptCost),
		cache:     cache,
		publisher: publisher,
		audit:     auditLog,
		now:       time.Now,
	}
}

func (s *importService) ImportUsers(ctx context.Context, actor auth.Actor, source string, r io.Reader) (*importer.Summary, error) {
	if !actor.Can(authz.ImportUsers) {
		return nil, apperrors.ErrForbidden
	}

	summary, err := s.importer.Import(ctx, r)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidFormat) {
			metrics.RecordImportFailure()
		}
		return nil, err
	}

	if len(summary.UpdatedIDs) > 0 {
		keys := make([]string, 0, len(summary.UpdatedIDs))
		for _, id := range summary.UpdatedIDs {
			keys = append(keys, userCacheKey(id))
		}
		_ = s.cache.Delete(ctx, keys...)
	}

	metrics.RecordImport(summary.Created, summary.Updated, summary.Rejected)
	s.audit.ImportCompleted(actor.UserID, source, summary.Created, summary.Updated, summary.Rejected)

	evt := events.UsersImported{
		ActorID:  actor.UserID,
		Source:   source,
		Created:  summary.Created,
		Updated:  summary.Updated,
		Rejected: summary.Rejected,
		Total:    summary.Total,
		At:       s.now().UTC(),
	}
	if err := s.publisher.PublishUsersImported(ctx, evt); err != nil {
		log.Warn().Err(err).Str("source", source).Msg("publish users.imported failed")
	}

	return summary, nil
}

func (s *importService) Template() []byte {
	return importer.TemplateCSV()
}
