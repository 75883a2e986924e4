package monitoring

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cachesim/mem/cache/stats"
)

type sampleLine struct {
	Tag   uint64
	Valid bool
}

type sampleView struct {
	Level string
	Lines []sampleLine
}

var _ = Describe("Monitor", func() {
	var (
		mockCtrl   *gomock.Controller
		simulation *MockSimulation
		m          *Monitor
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		m.Router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		simulation = NewMockSimulation(mockCtrl)

		m = NewMonitor()
		m.RegisterSimulation(simulation)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should fall back to a random port for reserved ports", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	It("should pause and continue the simulation", func() {
		simulation.EXPECT().Pause()
		simulation.EXPECT().Continue()

		Expect(get("/api/pause").Code).To(Equal(http.StatusOK))
		Expect(get("/api/continue").Code).To(Equal(http.StatusOK))
	})

	It("should report the clock", func() {
		simulation.EXPECT().Clock().Return(uint64(42))

		rec := get("/api/now")

		Expect(rec.Body.String()).To(Equal(`{"now":42}`))
	})

	It("should report statistics even when rates are undefined", func() {
		s := stats.New(stats.DefaultLatency())
		s.Accesses = 3
		s.Reads = 3
		s.Finish()
		Expect(math.IsNaN(s.L2MissRate)).To(BeTrue())

		simulation.EXPECT().ID().Return("run")
		simulation.EXPECT().Clock().Return(uint64(3))
		simulation.EXPECT().IsPaused().Return(true)
		simulation.EXPECT().Statistics().Return(*s)

		rec := get("/api/stats")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp statsRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.ID).To(Equal("run"))
		Expect(rsp.Clock).To(Equal(uint64(3)))
		Expect(rsp.Paused).To(BeTrue())
		Expect(rsp.Entries).To(HaveLen(19))
		Expect(rsp.Entries[0]).To(Equal(stats.Entry{Name: "Accesses", Value: "3"}))
	})

	It("should serialize cache lines", func() {
		view := &sampleView{
			Level: "l1",
			Lines: []sampleLine{{Tag: 1, Valid: true}, {}},
		}
		simulation.EXPECT().CacheLines("l1").Return(view, nil)

		rec := get("/api/cache/L1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should return 404 for unknown cache levels", func() {
		simulation.EXPECT().CacheLines("l3").
			Return(nil, errors.New("unknown level"))

		rec := get("/api/cache/l3")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should list progress bars until they complete", func() {
		bar := m.CreateProgressBar("Trace", 100)
		bar.IncrementFinished(30)
		bar.IncrementInProgress(5)
		bar.MoveInProgressToFinished(5)

		rec := get("/api/progress")

		var bars []progressRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("Trace"))
		Expect(bars[0].Total).To(Equal(uint64(100)))
		Expect(bars[0].Finished).To(Equal(uint64(35)))
		Expect(bars[0].InProgress).To(Equal(uint64(0)))

		m.CompleteProgressBar(bar)

		rec = get("/api/progress")
		Expect(rec.Body.String()).To(Equal("[]"))
	})

	It("should report resource usage", func() {
		rec := get("/api/resource")

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should serve the page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	Context("without a simulation", func() {
		BeforeEach(func() {
			m = NewMonitor()
		})

		It("should answer 503", func() {
			Expect(get("/api/stats").Code).
				To(Equal(http.StatusServiceUnavailable))
			Expect(get("/api/pause").Code).
				To(Equal(http.StatusServiceUnavailable))
		})
	})
})
