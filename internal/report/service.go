package report

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	"github.com/frahmantamala/archival-system/internal/core/common/validation"
	reportDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/report"
	"github.com/frahmantamala/archival-system/internal/core/events"
	"github.com/frahmantamala/archival-system/internal/rbac"
	"github.com/frahmantamala/archival-system/internal/task"
	"github.com/google/uuid"
)

type RepositoryAPI interface {
	Insert(ctx context.Context, r *reportDatamodel.Report) error
	FindByID(ctx context.Context, id string) (*reportDatamodel.Report, error)
	FindByDepartment(ctx context.Context, department string) ([]*reportDatamodel.Report, error)
	InsertTemplate(ctx context.Context, t *reportDatamodel.ReportTemplate) error
	FindTemplateByName(ctx context.Context, name string) (*reportDatamodel.ReportTemplate, error)
	ListTemplates(ctx context.Context) ([]*reportDatamodel.ReportTemplate, error)
}

type Service struct {
	repo          RepositoryAPI
	stats         StatsReader
	guard         *rbac.Guard
	publisher     events.Publisher
	logger        *slog.Logger
	uniformDenial bool
	now           func() time.Time
}

func NewService(repo RepositoryAPI, stats StatsReader, guard *rbac.Guard, publisher events.Publisher, logger *slog.Logger, uniformDenial bool) *Service {
	return &Service{
		repo:          repo,
		stats:         stats,
		guard:         guard,
		publisher:     publisher,
		logger:        logger,
		uniformDenial: uniformDenial,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListTemplates(ctx context.Context, actor *rbac.Principal) ([]Template, error) {
	if !s.guard.HasPermission(actor, rbac.PermGenerateReports) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermGenerateReports))
	}

	custom, err := s.repo.ListTemplates(ctx)
	if err != nil {
		s.logger.Error("failed to list report templates", "error", err)
		return nil, err
	}

	templates := BuiltinTemplates()
	for _, t := range custom {
		templates = append(templates, *TemplateFromDataModel(t))
	}
	return templates, nil
}

func (s *Service) CreateTemplate(ctx context.Context, actor *rbac.Principal, dto CreateTemplateDTO) (*Template, error) {
	if !s.guard.HasPermission(actor, rbac.PermManageRoles) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermManageRoles))
	}

	dto.Name = strings.TrimSpace(dto.Name)
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	kind := Kind(dto.Type)
	v := validation.NewValidator()
	v.Field("type", dto.Type).OneOf(internal.ErrCodeInvalidTemplate, string(KindTaskSummary), string(KindDepartmentPerformance))
	if kind == KindTaskSummary {
		v.Field("fields", dto.Fields).Custom(func(value interface{}) *internal.AppError {
			for _, f := range value.([]string) {
				if !knownColumn(f) {
					return internal.NewValidationFieldError("fields", "unknown task_summary field "+f, internal.ErrCodeInvalidTemplate)
				}
			}
			return nil
		})
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	if _, ok := builtinTemplate(dto.Name); ok {
		return nil, internal.NewConflictError("Report template already exists", internal.ErrCodeInvalidTemplate)
	}

	now := s.now()
	t := &Template{
		ID:          uuid.New().String(),
		Name:        dto.Name,
		Description: dto.Description,
		Type:        kind,
		Fields:      dto.Fields,
		Layout:      dto.Layout,
		CreatedBy:   actor.ID,
		CreatedAt:   &now,
	}
	if err := s.repo.InsertTemplate(ctx, TemplateToDataModel(t)); err != nil {
		s.logger.Error("failed to create report template", "name", t.Name, "error", err)
		return nil, err
	}

	s.logger.Info("report template created", "name", t.Name, "type", t.Type, "user_id", actor.ID)
	return t, nil
}

func knownColumn(name string) bool {
	for _, c := range SummaryColumns {
		if c == name {
			return true
		}
	}
	return false
}

func (s *Service) resolveTemplate(ctx context.Context, name string) (Template, error) {
	if t, ok := builtinTemplate(name); ok {
		return t, nil
	}
	record, err := s.repo.FindTemplateByName(ctx, name)
	if err != nil {
		if stdErrors.Is(err, internal.ErrTemplateNotFound) {
			return Template{}, internal.NewValidationFieldError("template", "unknown report template "+name, internal.ErrCodeInvalidTemplate)
		}
		return Template{}, err
	}
	return *TemplateFromDataModel(record), nil
}

// GenerateReport builds and stores a report. Without view_all_tasks the
// scope is the requester's department and asking for another one is denied.
func (s *Service) GenerateReport(ctx context.Context, actor *rbac.Principal, dto GenerateReportDTO) (*Report, error) {
	if !s.guard.HasPermission(actor, rbac.PermGenerateReports) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermGenerateReports))
	}

	dto.Template = strings.TrimSpace(dto.Template)
	dto.Filters.Department = strings.ToUpper(strings.TrimSpace(dto.Filters.Department))
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	tmpl, err := s.resolveTemplate(ctx, dto.Template)
	if err != nil {
		return nil, err
	}

	viewAll := s.guard.HasPermission(actor, rbac.PermViewAllTasks)

	var data interface{}
	switch tmpl.Type {
	case KindTaskSummary:
		data, err = s.taskSummary(ctx, actor, viewAll, tmpl, dto.Filters)
	case KindDepartmentPerformance:
		data, err = s.departmentPerformance(ctx, actor, dto.Filters)
	default:
		err = internal.NewValidationFieldError("template", "unsupported report type "+string(tmpl.Type), internal.ErrCodeInvalidTemplate)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	r := &Report{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(dto.Title),
		Template:    tmpl.Name,
		Filters:     dto.Filters.toMap(),
		Data:        data,
		GeneratedBy: actor.ID,
		CreatedAt:   now,
	}
	if r.Title == "" {
		r.Title = "Report " + now.Format("2006-01-02 15:04")
	}
	if !viewAll {
		dept := actor.Department
		r.Department = &dept
	}

	if err := s.repo.Insert(ctx, ToDataModel(r)); err != nil {
		s.logger.Error("failed to store report", "template", r.Template, "user_id", actor.ID, "error", err)
		return nil, err
	}

	department := ""
	if r.Department != nil {
		department = string(*r.Department)
	}
	s.logger.Info("report generated", "report_id", r.ID, "template", r.Template, "user_id", actor.ID, "department", department)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewReportGeneratedEvent(r.ID, r.Template, actor.ID, department)); err != nil {
			s.logger.Error("failed to publish event", "event_type", events.EventTypeReportGenerated, "error", err)
		}
	}
	return r, nil
}

func validateTaskFilters(f Filters) *internal.AppError {
	v := validation.NewValidator()
	v.Field("status", f.Status).OneOf(internal.ErrCodeInvalidStatus, task.StatusStrings()...)
	v.Field("priority", f.Priority).OneOf(internal.ErrCodeInvalidPriority, string(task.PriorityLow), string(task.PriorityMedium), string(task.PriorityHigh))
	if f.DateRange != nil {
		v.Field("date_range", nil).DateOrder(f.DateRange.Start, f.DateRange.End)
	}
	return v.Validate()
}

func (s *Service) taskSummary(ctx context.Context, actor *rbac.Principal, viewAll bool, tmpl Template, f Filters) (*TaskSummary, error) {
	if err := validateTaskFilters(f); err != nil {
		return nil, err
	}

	q := SummaryQuery{Department: f.Department, Status: f.Status, Priority: f.Priority}
	if !viewAll {
		if f.Department != "" && rbac.Department(f.Department) != actor.Department {
			return nil, internal.NewPermissionDeniedError(string(rbac.PermViewAllTasks))
		}
		q.Department = string(actor.Department)
	}
	if f.DateRange != nil {
		q.From, q.To = f.DateRange.Start, f.DateRange.End
	}

	rows, err := s.stats.TaskSummary(ctx, q)
	if err != nil {
		s.logger.Error("failed to read task summary", "department", q.Department, "error", err)
		return nil, err
	}

	columns := SummaryColumns
	if len(tmpl.Fields) > 0 && !tmpl.BuiltIn {
		columns = tmpl.Fields
	}

	summary := &TaskSummary{Columns: columns, Rows: make([]map[string]interface{}, 0, len(rows)), Total: len(rows)}
	for _, row := range rows {
		projected := make(map[string]interface{}, len(columns))
		for _, c := range columns {
			projected[c] = row.column(c)
		}
		summary.Rows = append(summary.Rows, projected)
	}
	return summary, nil
}

func (s *Service) departmentPerformance(ctx context.Context, actor *rbac.Principal, f Filters) (*DepartmentPerformance, error) {
	if f.Department == "" {
		return nil, internal.NewValidationFieldError("filters.department", "department is required for a performance report", internal.ErrCodeDepartmentNeeded)
	}
	if !s.guard.CanActOnResource(actor, rbac.PermGenerateReports, rbac.Department(f.Department)) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermViewAllTasks))
	}
	if err := validateTaskFilters(Filters{DateRange: f.DateRange}); err != nil {
		return nil, err
	}

	now := s.now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := now
	if f.DateRange != nil {
		if f.DateRange.Start != nil {
			start = f.DateRange.Start.UTC()
		}
		if f.DateRange.End != nil {
			end = f.DateRange.End.UTC()
		}
	}

	stats, err := s.stats.DepartmentPerformance(ctx, f.Department, start, end)
	if err != nil {
		s.logger.Error("failed to read department performance", "department", f.Department, "error", err)
		return nil, err
	}

	perf := &DepartmentPerformance{
		Department: f.Department,
		DateRange:  DateRange{Start: &start, End: &end},
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
	}
	for _, st := range task.StatusStrings() {
		perf.ByStatus[st] = stats.ByStatus[st]
	}
	for status, n := range stats.ByStatus {
		perf.ByStatus[status] = n
		perf.Total += n
	}
	for priority, n := range stats.ByPriority {
		perf.ByPriority[priority] = n
	}
	perf.Completed = perf.ByStatus[string(task.StatusDone)] + perf.ByStatus[string(task.StatusArchived)]
	if perf.Total > 0 {
		perf.CompletionRate = round(float64(perf.Completed)/float64(perf.Total), 4)
	}
	if n := len(stats.ApprovalDurations); n > 0 {
		var sum time.Duration
		for _, d := range stats.ApprovalDurations {
			sum += d
		}
		perf.AvgApprovalHours = round(sum.Hours()/float64(n), 2)
	}
	return perf, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func (s *Service) GetReport(ctx context.Context, actor *rbac.Principal, id string) (*Report, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r := FromDataModel(record)
	if !r.VisibleTo(actor, s.guard) {
		if s.uniformDenial {
			return nil, internal.ErrReportNotFound
		}
		return nil, internal.NewPermissionDeniedError(string(rbac.PermViewAllTasks))
	}
	return r, nil
}

func (s *Service) ExportReport(ctx context.Context, actor *rbac.Principal, id, format string) (*Export, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatJSON {
		return nil, internal.NewValidationFieldError("format", "format must be csv or json", internal.ErrCodeInvalidFormat)
	}

	r, err := s.GetReport(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		body, err := json.Marshal(r.Data)
		if err != nil {
			return nil, internal.NewInternalError("failed to export report", err)
		}
		return &Export{ContentType: "application/json", Filename: "report_" + r.ID + ".json", Body: body}, nil
	default:
		body, err := renderCSV(r.Data)
		if err != nil {
			return nil, internal.NewInternalError("failed to export report", err)
		}
		return &Export{ContentType: "text/csv", Filename: "report_" + r.ID + ".csv", Body: body}, nil
	}
}

func (s *Service) ListDepartmentReports(ctx context.Context, actor *rbac.Principal, department string) ([]*Report, error) {
	if !s.guard.HasPermission(actor, rbac.PermGenerateReports) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermGenerateReports))
	}
	dept, err := rbac.ParseDepartment(department)
	if err != nil {
		return nil, internal.NewValidationFieldError("department", "department must be a valid department", internal.ErrCodeInvalidDepartment)
	}
	if !s.guard.CanActOnResource(actor, rbac.PermGenerateReports, dept) {
		return nil, internal.NewPermissionDeniedError(string(rbac.PermViewAllTasks))
	}

	records, err := s.repo.FindByDepartment(ctx, string(dept))
	if err != nil {
		s.logger.Error("failed to list department reports", "department", dept, "error", err)
		return nil, err
	}

	reports := make([]*Report, 0, len(records))
	for _, rec := range records {
		reports = append(reports, FromDataModel(rec))
	}
	return reports, nil
}
