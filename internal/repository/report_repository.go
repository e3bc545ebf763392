package repository

import (
	"context"
	"errors"

	"github.com/wanxtv/wanx/backend/internal/models"
	"gorm.io/gorm"
)

// ReportRepository stores user reports and the per-source alert thresholds
type ReportRepository interface {
	Exists(ctx context.Context, target string, source models.ReportSource, reporter string) (bool, error)
	// Create stores a report; a second report by the same reporter returns ErrAlreadyReported.
	Create(ctx context.Context, report *models.ReportVideo) error
	// Count returns how many live reports target has from source.
	Count(ctx context.Context, target string, source models.ReportSource) (int64, error)
	ConfigFor(ctx context.Context, source models.ReportSource) (*models.ReportConfig, error)
	SaveConfig(ctx context.Context, cfg *models.ReportConfig) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Exists(ctx context.Context, target string, source models.ReportSource, reporter string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReportVideo{}).
		Where("target = ? AND source = ? AND reporter = ?", target, source, reporter).
		Count(&count).Error
	return count > 0, err
}

func (r *reportRepository) Create(ctx context.Context, report *models.ReportVideo) error {
	if report == nil || report.Target == "" || report.Reporter == "" || !report.Source.Valid() {
		return ErrInvalidInput
	}
	exists, err := r.Exists(ctx, report.Target, report.Source, report.Reporter)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyReported
	}
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyReported
		}
		return err
	}
	return nil
}

func (r *reportRepository) Count(ctx context.Context, target string, source models.ReportSource) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReportVideo{}).
		Where("target = ? AND source = ? AND deleted = ?", target, source, false).
		Count(&count).Error
	return count, err
}

func (r *reportRepository) ConfigFor(ctx context.Context, source models.ReportSource) (*models.ReportConfig, error) {
	var cfg models.ReportConfig
	err := r.db.WithContext(ctx).Where("source = ?", source).Take(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportConfigNone
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *reportRepository) SaveConfig(ctx context.Context, cfg *models.ReportConfig) error {
	if cfg == nil || !cfg.Source.Valid() {
		return ErrInvalidInput
	}
	existing, err := r.ConfigFor(ctx, cfg.Source)
	switch {
	case err == nil:
		cfg.ID = existing.ID
		return r.db.WithContext(ctx).Save(cfg).Error
	case errors.Is(err, ErrReportConfigNone):
		return r.db.WithContext(ctx).Create(cfg).Error
	default:
		return err
	}
}
