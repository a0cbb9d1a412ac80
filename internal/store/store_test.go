package store_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/talentsight/analysis-engine/internal/config"
	st "github.com/talentsight/analysis-engine/internal/store"
	"github.com/talentsight/analysis-engine/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormDB = db

		store = st.NewStore(db)
		Expect(store).ToNot(BeNil())
		Expect(store.InitialMigration()).To(BeNil())
	})

	AfterAll(func() {
		store.Close()
	})

	Context("transaction", func() {
		It("commits an inserted file", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			file, err := store.File().Create(ctx, model.File{
				ID:       uuid.New(),
				Filename: "evaluations.xlsx",
			})
			Expect(err).To(BeNil())
			Expect(file).ToNot(BeNil())

			_, cerr := st.Commit(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			err = gormDB.Raw("SELECT COUNT(*) FROM files;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("rolls back an inserted file", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			file, err := store.File().Create(ctx, model.File{
				ID:       uuid.New(),
				Filename: "evaluations.xlsx",
			})
			Expect(err).To(BeNil())
			Expect(file).ToNot(BeNil())

			// visible inside the transaction
			files, err := store.File().List(ctx)
			Expect(err).To(BeNil())
			Expect(files).To(HaveLen(1))

			_, cerr := st.Rollback(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			err = gormDB.Raw("SELECT COUNT(*) FROM files;").Scan(&count).Error
			Expect(err).To(BeNil())
			Expect(count).To(Equal(0))
		})

		AfterEach(func() {
			gormDB.Exec("DELETE FROM files;")
		})
	})
})
