package store_test

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/talentsight/analysis-engine/internal/config"
	st "github.com/talentsight/analysis-engine/internal/store"
	"github.com/talentsight/analysis-engine/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("result store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
		jobID  uuid.UUID
	)

	createResult := func(uid string, score float64, at time.Time) *model.Result {
		res, err := s.Result().Create(context.TODO(), model.Result{
			ID:          uuid.New(),
			JobID:       jobID,
			UID:         uid,
			HybridScore: score,
			Grade:       "OK B",
			CreatedAt:   at,
		})
		Expect(err).To(BeNil())
		return res
	}

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormdb = db

		s = st.NewStore(db)
		Expect(s.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	BeforeEach(func() {
		fileID := uuid.New()
		_, err := s.File().Create(context.TODO(), model.File{ID: fileID, Filename: "upload.xlsx"})
		Expect(err).To(BeNil())
		job, err := s.Job().Create(context.TODO(), model.Job{ID: uuid.New(), FileID: fileID})
		Expect(err).To(BeNil())
		jobID = job.ID
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM results;")
		gormdb.Exec("DELETE FROM jobs;")
		gormdb.Exec("DELETE FROM files;")
	})

	Context("list", func() {
		It("returns results in processing order with paging", func() {
			base := time.Now().UTC()
			for i := 0; i < 5; i++ {
				createResult(fmt.Sprintf("EMP%03d", i), float64(60+i), base.Add(time.Duration(i)*time.Millisecond))
			}

			all, err := s.Result().List(context.TODO(), jobID, 0, 0)
			Expect(err).To(BeNil())
			Expect(all).To(HaveLen(5))
			for i, res := range all {
				Expect(res.UID).To(Equal(fmt.Sprintf("EMP%03d", i)))
			}

			page, err := s.Result().List(context.TODO(), jobID, 2, 2)
			Expect(err).To(BeNil())
			Expect(page).To(HaveLen(2))
			Expect(page[0].UID).To(Equal("EMP002"))
			Expect(page[1].UID).To(Equal("EMP003"))
		})

		It("does not leak results across jobs", func() {
			createResult("EMP001", 70, time.Now().UTC())

			other, err := s.Result().List(context.TODO(), uuid.New(), 0, 0)
			Expect(err).To(BeNil())
			Expect(other).To(BeEmpty())
		})
	})

	Context("scores", func() {
		It("returns scores in append order", func() {
			base := time.Now().UTC()
			want := []float64{66, 80.5, 42}
			for i, score := range want {
				createResult(fmt.Sprintf("EMP%03d", i), score, base.Add(time.Duration(i)*time.Millisecond))
			}

			scores, err := s.Result().Scores(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(scores).To(Equal(want))

			count, err := s.Result().Count(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(3)))
		})
	})

	Context("percentile", func() {
		It("updates a stored percentile", func() {
			res := createResult("EMP001", 70, time.Now().UTC())

			Expect(s.Result().UpdatePercentile(context.TODO(), res.ID, 87.5)).To(BeNil())

			got, err := s.Result().List(context.TODO(), jobID, 0, 0)
			Expect(err).To(BeNil())
			Expect(got[0].Percentile).To(Equal(87.5))
		})

		It("fails for an unknown result", func() {
			err := s.Result().UpdatePercentile(context.TODO(), uuid.New(), 10)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("delete", func() {
		It("removes all results of one job", func() {
			createResult("EMP001", 70, time.Now().UTC())
			createResult("EMP002", 75, time.Now().UTC())

			Expect(s.Result().DeleteByJob(context.TODO(), jobID)).To(BeNil())

			count, err := s.Result().Count(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(count).To(BeZero())
		})
	})
})
