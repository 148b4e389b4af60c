package postgres

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/frahmantamala/archival-system/internal"
	taskDatamodel "github.com/frahmantamala/archival-system/internal/core/datamodel/task"
	"github.com/frahmantamala/archival-system/internal/report"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("StatsReader", func() {
	var (
		db    *gorm.DB
		stats *StatsReader
		ctx   context.Context
		base  time.Time
	)

	insert := func(id, dept, status, priority string, offset time.Duration, approvedAfter time.Duration) {
		created := base.Add(offset)
		t := &taskDatamodel.Task{
			ID:         id,
			Title:      "Task " + id,
			Status:     status,
			Priority:   priority,
			Department: dept,
			CreatedBy:  "u1",
			CreatedAt:  created,
			UpdatedAt:  created,
		}
		if approvedAfter > 0 {
			at := created.Add(approvedAfter)
			approver := "head"
			t.ApprovedAt = &at
			t.ApprovedBy = &approver
		}
		Expect(db.Create(t).Error).To(Succeed())
	}

	BeforeEach(func() {
		db = openTestDB()
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		stats = NewStatsReader(sqlx.NewDb(sqlDB, "sqlite3"), time.Second)
		ctx = context.Background()
		base = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

		insert("a", "CSE", "Done", "High", 0, 2*time.Hour)
		insert("b", "CSE", "Archived", "High", time.Hour, 4*time.Hour)
		insert("c", "CSE", "In Progress", "Low", 2*time.Hour, 0)
		insert("d", "ECE", "Not Started", "Medium", 3*time.Hour, 0)
		insert("e", "CSE", "Done", "Low", -30*24*time.Hour, time.Hour)
	})

	AfterEach(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	Describe("TaskSummary", func() {
		It("returns every department newest first when unscoped", func() {
			rows, err := stats.TaskSummary(ctx, report.SummaryQuery{})
			Expect(err).NotTo(HaveOccurred())
			ids := []string{}
			for _, r := range rows {
				ids = append(ids, r.ID)
			}
			Expect(ids).To(Equal([]string{"d", "c", "b", "a", "e"}))
		})

		It("applies department, status, priority and date filters", func() {
			rows, err := stats.TaskSummary(ctx, report.SummaryQuery{Department: "CSE", Priority: "High"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))

			rows, err = stats.TaskSummary(ctx, report.SummaryQuery{Status: "Done"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))

			from := base.Add(-time.Minute)
			to := base.Add(90 * time.Minute)
			rows, err = stats.TaskSummary(ctx, report.SummaryQuery{From: &from, To: &to})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0].CreatedAt.Equal(base.Add(time.Hour))).To(BeTrue())
		})

		It("returns an empty slice when nothing matches", func() {
			rows, err := stats.TaskSummary(ctx, report.SummaryQuery{Department: "ME"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).NotTo(BeNil())
			Expect(rows).To(BeEmpty())
		})
	})

	Describe("DepartmentPerformance", func() {
		It("groups one department within the range", func() {
			got, err := stats.DepartmentPerformance(ctx, "CSE", base.Add(-time.Hour), base.Add(24*time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ByStatus).To(Equal(map[string]int{"Done": 1, "Archived": 1, "In Progress": 1}))
			Expect(got.ByPriority).To(Equal(map[string]int{"High": 2, "Low": 1}))
			Expect(got.ApprovalDurations).To(ConsistOf(2*time.Hour, 4*time.Hour))
		})

		It("returns empty groups for a quiet department", func() {
			got, err := stats.DepartmentPerformance(ctx, "ME", base.Add(-time.Hour), base.Add(time.Hour))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ByStatus).To(BeEmpty())
			Expect(got.ApprovalDurations).To(BeEmpty())
		})
	})

	It("wraps store failures", func() {
		sqlDB, _ := db.DB()
		Expect(sqlDB.Close()).To(Succeed())

		_, err := stats.TaskSummary(ctx, report.SummaryQuery{})
		Expect(stdErrors.Is(err, internal.NewStoreUnavailableError("", nil))).To(BeTrue())

		db = openTestDB()
	})
})
