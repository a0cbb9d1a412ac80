package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/talentsight/analysis-engine/internal/config"
	"github.com/talentsight/analysis-engine/internal/events"
	"github.com/talentsight/analysis-engine/internal/scoring"
	"github.com/talentsight/analysis-engine/internal/store"
	"github.com/talentsight/analysis-engine/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("orchestrator", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		hub    *events.Hub
		orch   *Orchestrator
	)

	createFile := func(rowCount int) uuid.UUID {
		rows := make([]map[string]string, 0, rowCount)
		for i := 1; i <= rowCount; i++ {
			rows = append(rows, map[string]string{
				"사번":   fmt.Sprintf("EMP%03d", i),
				"평가의견": "업무 성과가 탁월하며 성과를 달성했습니다",
				"KPI점수": "4.5",
			})
		}
		rawRows, err := json.Marshal(rows)
		Expect(err).To(BeNil())
		rawColumns, err := json.Marshal(map[string]model.ColumnRole{
			"사번":   model.ColumnRoleUID,
			"평가의견": model.ColumnRoleText,
			"KPI점수": model.ColumnRoleQuantitative,
		})
		Expect(err).To(BeNil())

		file, err := s.File().Create(context.TODO(), model.File{
			ID:        uuid.New(),
			Filename:  "evaluations.xlsx",
			TotalRows: rowCount,
			Columns:   rawColumns,
			Rows:      rawRows,
		})
		Expect(err).To(BeNil())
		return file.ID
	}

	createJob := func(fileID uuid.UUID, cfg model.JobConfig) uuid.UUID {
		rawConfig, err := json.Marshal(cfg)
		Expect(err).To(BeNil())
		job, err := s.Job().Create(context.TODO(), model.Job{
			ID:     uuid.New(),
			FileID: fileID,
			Config: rawConfig,
		})
		Expect(err).To(BeNil())
		return job.ID
	}

	waitForStatus := func(jobID uuid.UUID, status model.JobStatus) *model.Job {
		var job *model.Job
		Eventually(func() model.JobStatus {
			var err error
			job, err = s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			return job.Status
		}).WithTimeout(5 * time.Second).Should(Equal(status))
		return job
	}

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormdb = db

		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		hub = events.NewHub()
		orch = New(s, hub, Options{})
	})

	AfterEach(func() {
		Expect(orch.Shutdown(context.TODO())).To(BeNil())
		hub.Close()
		gormdb.Exec("DELETE FROM results;")
		gormdb.Exec("DELETE FROM jobs;")
		gormdb.Exec("DELETE FROM files;")
	})

	Context("happy path", func() {
		It("processes every record and completes", func() {
			jobID := createJob(createFile(3), model.JobConfig{})

			claimed, err := orch.Start(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(claimed.Status).To(Equal(model.JobStatusProcessing))
			Expect(claimed.TotalRows).To(Equal(3))

			job := waitForStatus(jobID, model.JobStatusCompleted)
			Expect(job.ProcessedRows).To(Equal(3))
			Expect(job.AverageScore).ToNot(BeNil())
			Expect(*job.AverageScore).To(BeNumerically(">", 0))
			Expect(job.FinishedAt).ToNot(BeNil())

			results, err := s.Result().List(context.TODO(), jobID, 0, 0)
			Expect(err).To(BeNil())
			Expect(results).To(HaveLen(3))
			for i, res := range results {
				Expect(res.UID).To(Equal(fmt.Sprintf("EMP%03d", i+1)))
				Expect(res.HybridScore).To(BeNumerically(">=", 0))
				Expect(res.Grade).ToNot(BeEmpty())
			}
		})

		It("honors the sample size", func() {
			jobID := createJob(createFile(5), model.JobConfig{SampleSize: 2})

			_, err := orch.Start(context.TODO(), jobID)
			Expect(err).To(BeNil())

			job := waitForStatus(jobID, model.JobStatusCompleted)
			Expect(job.TotalRows).To(Equal(2))
			Expect(job.ProcessedRows).To(Equal(2))

			count, err := s.Result().Count(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(2)))
		})

		It("streams progress events in order and finishes with completed", func() {
			jobID := createJob(createFile(3), model.JobConfig{})
			sub := hub.Subscribe(jobID)
			defer hub.Unsubscribe(sub)

			_, err := orch.Start(context.TODO(), jobID)
			Expect(err).To(BeNil())
			waitForStatus(jobID, model.JobStatusCompleted)

			var received []events.Event
			for ev := range sub.Events {
				received = append(received, ev)
				if ev.Type == events.EventCompleted {
					break
				}
			}

			Expect(received[0].Type).To(Equal(events.EventConnected))
			Expect(received).To(HaveLen(5))
			for i := 1; i <= 3; i++ {
				Expect(received[i].Type).To(Equal(events.EventProgress))
				Expect(received[i].Processed).To(Equal(i))
				Expect(received[i].Total).To(Equal(3))
			}
			Expect(received[4].Type).To(Equal(events.EventCompleted))
			Expect(received[4].AverageScore).To(BeNumerically(">", 0))
		})
	})

	Context("record failures", func() {
		It("skips a poisoned record but still completes", func() {
			jobID := createJob(createFile(3), model.JobConfig{})

			defaultScore := orch.score
			orch.score = func(ctx context.Context, jobID uuid.UUID, uid string, row map[string]string, textColumns, quantColumns []string, cfg model.JobConfig, mix float64) (*model.Result, *scoring.Composite, error) {
				if uid == "EMP002" {
					return nil, nil, errors.New("poisoned record")
				}
				return defaultScore(ctx, jobID, uid, row, textColumns, quantColumns, cfg, mix)
			}

			_, err := orch.Start(context.TODO(), jobID)
			Expect(err).To(BeNil())

			job := waitForStatus(jobID, model.JobStatusCompleted)
			Expect(job.ProcessedRows).To(Equal(3))

			results, err := s.Result().List(context.TODO(), jobID, 0, 0)
			Expect(err).To(BeNil())
			Expect(results).To(HaveLen(2))
			Expect(results[0].UID).To(Equal("EMP001"))
			Expect(results[1].UID).To(Equal("EMP003"))
		})
	})

	Context("exactly-once start", func() {
		It("rejects the second of two quick starts", func() {
			jobID := createJob(createFile(3), model.JobConfig{})

			winners := 0
			for i := 0; i < 2; i++ {
				if _, err := orch.Start(context.TODO(), jobID); err == nil {
					winners++
				} else {
					Expect(errors.Is(err, store.ErrInvalidTransition) || errors.Is(err, store.ErrRecordNotFound)).To(BeTrue())
				}
			}
			Expect(winners).To(Equal(1))

			job := waitForStatus(jobID, model.JobStatusCompleted)
			Expect(job.ProcessedRows).To(Equal(3))

			count, err := s.Result().Count(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(3)))
		})

		It("fails to start an unknown job", func() {
			_, err := orch.Start(context.TODO(), uuid.New())
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		})
	})

	Context("failures and cancellation", func() {
		It("fails the job when the source file is gone", func() {
			fileID := createFile(3)
			jobID := createJob(fileID, model.JobConfig{})
			Expect(s.File().Delete(context.TODO(), fileID)).To(BeNil())

			_, err := orch.Start(context.TODO(), jobID)
			Expect(err).ToNot(BeNil())

			job, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusFailed))
			Expect(job.Error).To(ContainSubstring("no longer exists"))
		})

		It("cancels a pending job", func() {
			jobID := createJob(createFile(3), model.JobConfig{})

			job, err := orch.Cancel(context.TODO(), jobID, "operator request")
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusFailed))
			Expect(job.Error).To(Equal("cancelled: operator request"))
		})

		It("rejects cancelling a terminal job", func() {
			jobID := createJob(createFile(1), model.JobConfig{})
			_, err := orch.Start(context.TODO(), jobID)
			Expect(err).To(BeNil())
			waitForStatus(jobID, model.JobStatusCompleted)

			_, err = orch.Cancel(context.TODO(), jobID, "too late")
			Expect(err).To(MatchError(store.ErrInvalidTransition))
		})
	})

	Context("percentile recompute", func() {
		It("re-ranks all results once the job completes", func() {
			orch = New(s, hub, Options{RecomputePercentiles: true})

			fileID := createFile(0)
			// Rows with distinct quality so the scores differ.
			rows := []map[string]string{
				{"사번": "EMP001", "평가의견": "탁월한 달성", "KPI점수": "90"},
				{"사번": "EMP002", "평가의견": "지연과 실패", "KPI점수": "40"},
				{"사번": "EMP003", "평가의견": "보통 수준", "KPI점수": "70"},
			}
			rawRows, err := json.Marshal(rows)
			Expect(err).To(BeNil())
			Expect(gormdb.Model(&model.File{}).Where("id = ?", fileID).
				Updates(map[string]any{"rows": rawRows, "total_rows": 3}).Error).To(BeNil())

			jobID := createJob(fileID, model.JobConfig{})
			_, err = orch.Start(context.TODO(), jobID)
			Expect(err).To(BeNil())
			waitForStatus(jobID, model.JobStatusCompleted)

			results, err := s.Result().List(context.TODO(), jobID, 0, 0)
			Expect(err).To(BeNil())
			Expect(results).To(HaveLen(3))

			// With distinct scores over 3 records the final ranks are fixed
			// regardless of processing order.
			percentiles := map[string]float64{}
			for _, res := range results {
				percentiles[res.UID] = res.Percentile
			}
			Expect(percentiles["EMP001"]).To(Equal(100.0))
			Expect(percentiles["EMP002"]).To(Equal(0.0))
			Expect(percentiles["EMP003"]).To(Equal(50.0))
		})
	})
})
