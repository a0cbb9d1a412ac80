package store_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/talentsight/analysis-engine/internal/config"
	st "github.com/talentsight/analysis-engine/internal/store"
	"github.com/talentsight/analysis-engine/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("file store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
	)

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

	AfterEach(func() {
		gormdb.Exec("DELETE FROM files;")
	})

	Context("create and get", func() {
		It("round-trips rows and column roles", func() {
			rows := []map[string]string{
				{"사번": "EMP001", "평가의견": "탁월한 성과", "KPI점수": "4.5"},
				{"사번": "EMP002", "평가의견": "보통", "KPI점수": "3.0"},
			}
			rawRows, err := json.Marshal(rows)
			Expect(err).To(BeNil())
			rawColumns, err := json.Marshal(map[string]model.ColumnRole{
				"사번":   model.ColumnRoleUID,
				"평가의견": model.ColumnRoleText,
				"KPI점수": model.ColumnRoleQuantitative,
			})
			Expect(err).To(BeNil())

			created, err := s.File().Create(context.TODO(), model.File{
				ID:        uuid.New(),
				Filename:  "evaluations.xlsx",
				TotalRows: len(rows),
				Columns:   rawColumns,
				Rows:      rawRows,
			})
			Expect(err).To(BeNil())
			Expect(created.UploadedAt).ToNot(BeZero())

			got, err := s.File().Get(context.TODO(), created.ID)
			Expect(err).To(BeNil())

			decoded, err := got.DecodeRows()
			Expect(err).To(BeNil())
			Expect(decoded).To(Equal(rows))

			roles, err := got.ColumnRoles()
			Expect(err).To(BeNil())
			Expect(roles["사번"]).To(Equal(model.ColumnRoleUID))
			Expect(roles["평가의견"]).To(Equal(model.ColumnRoleText))
		})

		It("get of an unknown file fails", func() {
			_, err := s.File().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("retention listing", func() {
		It("lists only files uploaded before the cutoff", func() {
			old := time.Now().UTC().Add(-10 * 24 * time.Hour)
			_, err := s.File().Create(context.TODO(), model.File{ID: uuid.New(), Filename: "old.xlsx", UploadedAt: old})
			Expect(err).To(BeNil())
			_, err = s.File().Create(context.TODO(), model.File{ID: uuid.New(), Filename: "new.xlsx"})
			Expect(err).To(BeNil())

			cutoff := time.Now().UTC().Add(-7 * 24 * time.Hour)
			aged, err := s.File().ListUploadedBefore(context.TODO(), cutoff)
			Expect(err).To(BeNil())
			Expect(aged).To(HaveLen(1))
			Expect(aged[0].Filename).To(Equal("old.xlsx"))
		})
	})

	Context("delete", func() {
		It("removes a file", func() {
			created, err := s.File().Create(context.TODO(), model.File{ID: uuid.New(), Filename: "gone.xlsx"})
			Expect(err).To(BeNil())

			Expect(s.File().Delete(context.TODO(), created.ID)).To(BeNil())

			_, err = s.File().Get(context.TODO(), created.ID)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		It("deleting an unknown file is a no-op", func() {
			Expect(s.File().Delete(context.TODO(), uuid.New())).To(BeNil())
		})
	})
})
