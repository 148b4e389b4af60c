package postgres

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	reportDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/report"
	"github.com/frahmantamala/archival-system/internal/report"
	"gorm.io/gorm"
)

type ReportRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewReportRepository(db *gorm.DB, timeout time.Duration) *ReportRepository {
	return &ReportRepository{db: db, timeout: timeout}
}

var _ report.RepositoryAPI = (*ReportRepository)(nil)

func (r *ReportRepository) Insert(ctx context.Context, rep *reportDatamodel.Report) error {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(rep).Error; err != nil {
		return internal.NewStoreUnavailableError("insert report", err)
	}
	return nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id string) (*reportDatamodel.Report, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rep reportDatamodel.Report
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rep).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrReportNotFound
		}
		return nil, internal.NewStoreUnavailableError("find report", err)
	}
	return &rep, nil
}

func (r *ReportRepository) FindByDepartment(ctx context.Context, department string) ([]*reportDatamodel.Report, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var reports []*reportDatamodel.Report
	err := r.db.WithContext(ctx).
		Where("department = ?", department).
		Order("created_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, internal.NewStoreUnavailableError("find department reports", err)
	}
	return reports, nil
}

func (r *ReportRepository) InsertTemplate(ctx context.Context, t *reportDatamodel.ReportTemplate) error {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrDuplicatedKey) {
			return internal.NewConflictError("Report template already exists", internal.ErrCodeInvalidTemplate)
		}
		return internal.NewStoreUnavailableError("insert report template", err)
	}
	return nil
}

func (r *ReportRepository) FindTemplateByName(ctx context.Context, name string) (*reportDatamodel.ReportTemplate, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var t reportDatamodel.ReportTemplate
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&t).Error; err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrTemplateNotFound
		}
		return nil, internal.NewStoreUnavailableError("find report template", err)
	}
	return &t, nil
}

func (r *ReportRepository) ListTemplates(ctx context.Context) ([]*reportDatamodel.ReportTemplate, error) {
	ctx, cancel := internal.WithTimeout(ctx, r.timeout)
	defer cancel()

	var templates []*reportDatamodel.ReportTemplate
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&templates).Error; err != nil {
		return nil, internal.NewStoreUnavailableError("list report templates", err)
	}
	return templates, nil
}
