package prospect

import (
	"context"
	"fmt"
	"time"

	"prospect-tracker-api/internal/chart"
	"prospect-tracker-api/internal/config"
	"prospect-tracker-api/internal/db"
	"prospect-tracker-api/internal/excel"
	"prospect-tracker-api/internal/form"
	"prospect-tracker-api/internal/logger"
	"prospect-tracker-api/internal/model"
	"prospect-tracker-api/pkg/errors"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// Attachments is the part of the attachment manager the service needs.
type Attachments interface {
	Upload(ctx context.Context, up model.Upload) (model.Attachment, error)
	// Release deletes a stored file, swallowing failures.
	Release(ctx context.Context, storageID string)
}

// Submission is one create or update request.
type Submission struct {
	Values form.Values
	Upload *model.Upload
}

type Service struct {
	repo         db.Repository
	attachments  Attachments
	exporter     *excel.Exporter
	defaultLimit int
	now          func() time.Time
	log          zerolog.Logger
}

func NewService(cfg *config.Config, repo db.Repository, attachments Attachments) *Service {
	return &Service{
		repo:         repo,
		attachments:  attachments,
		exporter:     excel.NewExporter(),
		defaultLimit: cfg.Listing.DefaultLimit,
		now:          func() time.Time { return time.Now().UTC() },
		log:          logger.Component("prospect"),
	}
}

func (s *Service) Create(ctx context.Context, sub Submission) (*model.Prospect, error) {
	var att model.Attachment
	if sub.Upload != nil {
		uploaded, err := s.attachments.Upload(ctx, *sub.Upload)
		if err != nil {
			return nil, fmt.Errorf("upload deck: %w", err)
		}
		att = uploaded
	}

	p := BuildProspect(sub.Values, att, s.now())

	if err := s.repo.Insert(ctx, p); err != nil {
		// the record never existed, so its fresh upload is an orphan
		if att.StorageID != "" {
			s.attachments.Release(ctx, att.StorageID)
		}
		return nil, err
	}

	s.log.Info().Str("id", p.ID.Hex()).Str("opp_id", p.OppID).Bool("deck", !att.IsZero()).Msg("Prospect created")
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Prospect, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, sub Submission) (*model.Prospect, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var replacement *model.Attachment
	if sub.Upload != nil {
		if old := existing.Attachment(); old.StorageID != "" {
			s.attachments.Release(ctx, old.StorageID)
		}

		uploaded, err := s.attachments.Upload(ctx, *sub.Upload)
		if err != nil {
			return nil, fmt.Errorf("upload replacement deck: %w", err)
		}
		replacement = &uploaded
	}

	merged := MergeProspect(existing, sub.Values, replacement, s.now())

	updated, err := s.repo.Update(ctx, id, merged)
	if err != nil {
		if replacement != nil {
			s.attachments.Release(ctx, replacement.StorageID)
		}
		return nil, err
	}

	s.log.Info().Str("id", id).Bool("deck_replaced", replacement != nil).Msg("Prospect updated")
	return updated, nil
}

// Delete releases the record's deck, then removes the record. Only the
// record removal decides the outcome.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if deck := existing.Attachment(); deck.StorageID != "" {
		s.attachments.Release(ctx, deck.StorageID)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("id", id).Msg("Prospect deleted")
	return nil
}

// List returns one page of matches plus the total match count. The page and
// the count are separate reads and may disagree under concurrent writes.
func (s *Service) List(ctx context.Context, q model.ListQuery) (*model.ListResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = s.defaultLimit
	}

	var (
		items []model.Prospect
		total int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.repo.Find(gctx, q.Filter, q.Skip(), int64(q.Limit))
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, q.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if items == nil {
		items = []model.Prospect{}
	}

	return &model.ListResult{
		Data: items,
		Meta: model.PageMeta{Page: q.Page, Limit: q.Limit, Total: total},
	}, nil
}

// Export builds the workbook for every record matching filter.
func (s *Service) Export(ctx context.Context, filter model.ProspectFilter) (*excelize.File, error) {
	items, err := s.repo.Find(ctx, filter, 0, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.ErrNoRecords
	}

	f, err := s.exporter.Build(items)
	if err != nil {
		return nil, fmt.Errorf("build export: %w", err)
	}

	s.log.Info().Int("rows", len(items)).Msg("Prospect export built")
	return f, nil
}

func (s *Service) CategoryGeoChart(ctx context.Context) (*model.ChartResponse, error) {
	groups, err := s.repo.Pivot(ctx, "geo", "category")
	if err != nil {
		return nil, err
	}
	return chart.Build(groups, chart.Lexical, chart.CategoryGeoFilterNames), nil
}

func (s *Service) CategoryMonthChart(ctx context.Context) (*model.ChartResponse, error) {
	groups, err := s.repo.Pivot(ctx, "category", "month")
	if err != nil {
		return nil, err
	}
	return chart.Build(groups, chart.Calendar, chart.CategoryMonthFilterNames), nil
}
