package hierarchy

import (
	"errors"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cachesim/mem/cache/geometry"
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/mem/cache/stats"
	"github.com/sarchlab/cachesim/sim/hooking"
)

type access struct {
	kind AccessKind
	addr uint64
}

func r(addr uint64) access { return access{Read, addr} }
func w(addr uint64) access { return access{Write, addr} }

func replay(h *Hierarchy, trace ...access) []AccessResult {
	results := make([]AccessResult, 0, len(trace))
	for _, a := range trace {
		res, err := h.Access(a.kind, a.addr)
		Expect(err).NotTo(HaveOccurred())
		Expect(h.CheckInclusion()).To(Succeed())
		results = append(results, res)
	}

	return results
}

func l2Block(h *Hierarchy, addr uint64) (tagging.Block, bool) {
	l2 := h.geometry.L2()
	return h.l2.Lookup(int(l2.Index(addr)), l2.Tag(addr))
}

func l1Block(h *Hierarchy, addr uint64) (tagging.Block, bool) {
	l1 := h.geometry.L1()
	return h.l1.Lookup(l1.Index(addr), l1.Tag(addr))
}

var _ = Describe("Hierarchy", func() {
	var (
		h *Hierarchy
	)

	Context("with 4 L1 lines and 8 L2 sets of 2 ways", func() {
		BeforeEach(func() {
			h = MakeBuilder().
				WithGeometry(geometry.Geometry{C1: 4, C2: 6, B: 2, S: 1}).
				Build("Cache")
		})

		It("should size both levels from the geometry", func() {
			Expect(h.L1Lines()).To(HaveLen(4))
			Expect(h.L2Lines()).To(HaveLen(8))
			Expect(h.L2Lines()[0]).To(HaveLen(2))
			Expect(h.Name()).To(Equal("Cache"))
		})

		It("should miss cold and hit on re-access", func() {
			results := replay(h, r(0x00), r(0x04), r(0x00))

			Expect(results[0].L1Hit).To(BeFalse())
			Expect(results[0].L2Hit).To(BeFalse())
			Expect(results[1].L1Hit).To(BeFalse())
			Expect(results[2].L1Hit).To(BeTrue())

			s := h.Finish()
			Expect(s.Accesses).To(Equal(uint64(3)))
			Expect(s.Reads).To(Equal(uint64(3)))
			Expect(s.L1ReadMisses).To(Equal(uint64(2)))
			Expect(s.L2ReadMisses).To(Equal(uint64(2)))
			Expect(s.ReadMisses).To(Equal(uint64(4)))
			Expect(s.Misses).To(Equal(uint64(4)))
			Expect(s.L1MissRate).To(BeNumerically("~", 2.0/3.0, 1e-12))
			Expect(s.L2MissRate).To(Equal(1.0))
		})

		It("should count each kind of miss separately", func() {
			replay(h, w(0x00), r(0x04), w(0x08))

			s := h.Stats()
			Expect(s.Writes).To(Equal(uint64(2)))
			Expect(s.Reads).To(Equal(uint64(1)))
			Expect(s.L1WriteMisses).To(Equal(uint64(2)))
			Expect(s.L2WriteMisses).To(Equal(uint64(2)))
			Expect(s.L1ReadMisses).To(Equal(uint64(1)))
			Expect(s.L2ReadMisses).To(Equal(uint64(1)))
		})

		It("should treat addresses in the same block as the same block",
			func() {
				results := replay(h, r(0x10), r(0x13), w(0x11))

				Expect(results[1].L1Hit).To(BeTrue())
				Expect(results[2].L1Hit).To(BeTrue())
			})

		It("should record a write miss on the L2 line only", func() {
			replay(h, w(0x00))

			l1, found := l1Block(h, 0x00)
			Expect(found).To(BeTrue())
			Expect(l1.IsDirty).To(BeFalse())

			l2, found := l2Block(h, 0x00)
			Expect(found).To(BeTrue())
			Expect(l2.IsDirty).To(BeTrue())
		})

		It("should not dirty L2 on an L1 write hit", func() {
			replay(h, r(0x00), w(0x00))

			l1, _ := l1Block(h, 0x00)
			Expect(l1.IsDirty).To(BeTrue())

			l2, _ := l2Block(h, 0x00)
			Expect(l2.IsDirty).To(BeFalse())
			Expect(l2.LastAccess).To(Equal(uint64(2)))
		})

		It("should pass L1 dirtiness to L2 when the L1 line is replaced",
			func() {
				// 0x00 and 0x10 share L1 line 0 but not an L2 set.
				replay(h, r(0x00), w(0x00), r(0x10))

				_, found := l1Block(h, 0x00)
				Expect(found).To(BeFalse())

				l2, found := l2Block(h, 0x00)
				Expect(found).To(BeTrue())
				Expect(l2.IsDirty).To(BeTrue())
				Expect(h.Stats().WriteBacks).To(BeZero())
			})

		It("should fill L1 from an L2 hit with the dirty bit of the access",
			func() {
				results := replay(h, r(0x00), r(0x10), w(0x00))

				Expect(results[2].L1Hit).To(BeFalse())
				Expect(results[2].L2Hit).To(BeTrue())

				l1, _ := l1Block(h, 0x00)
				Expect(l1.IsDirty).To(BeTrue())

				l2, _ := l2Block(h, 0x00)
				Expect(l2.IsDirty).To(BeFalse())
				Expect(l2.LastAccess).To(Equal(uint64(3)))

				s := h.Stats()
				Expect(s.L1WriteMisses).To(Equal(uint64(1)))
				Expect(s.L2WriteMisses).To(BeZero())
			})

		It("should write back a dirty L2 victim", func() {
			// 0x00, 0x20 and 0x40 all map to L2 set 0 and L1 line 0.
			results := replay(h, w(0x00), w(0x20), w(0x40))

			Expect(results[2].L2Evicted).To(BeTrue())
			Expect(results[2].EvictedAddress).To(Equal(uint64(0x00)))
			Expect(results[2].L1Invalidated).To(BeFalse())
			Expect(results[2].WriteBack).To(BeTrue())
			Expect(h.Stats().WriteBacks).To(Equal(uint64(1)))

			_, found := l2Block(h, 0x00)
			Expect(found).To(BeFalse())
		})

		It("should write back once per dirty eviction", func() {
			replay(h, w(0x00), w(0x20), w(0x40), w(0x60))

			Expect(h.Stats().WriteBacks).To(Equal(uint64(2)))
		})

		It("should not write back a clean victim", func() {
			results := replay(h, r(0x00), r(0x20), r(0x40))

			Expect(results[2].L2Evicted).To(BeTrue())
			Expect(results[2].WriteBack).To(BeFalse())
			Expect(h.Stats().WriteBacks).To(BeZero())
		})

		It("should refresh L2 recency on an L2 hit", func() {
			// All map to L1 line 1 and L2 set 1.
			replay(h, r(0x04), r(0x24), r(0x24), r(0x04), r(0x44))

			_, found := l2Block(h, 0x04)
			Expect(found).To(BeTrue())
			_, found = l2Block(h, 0x24)
			Expect(found).To(BeFalse())
		})
	})

	Context("with 8 L1 lines and 4 L2 sets of 4 ways", func() {
		BeforeEach(func() {
			h = MakeBuilder().
				WithGeometry(geometry.Geometry{C1: 5, C2: 6, B: 2, S: 2}).
				Build("Cache")
		})

		It("should invalidate the L1 copy of an evicted L2 block", func() {
			// All of these map to L2 set 0; 0x00 and 0x40 share L1 line 0,
			// the others share L1 line 4.
			results := replay(h,
				r(0x00), w(0x00), r(0x10), r(0x30), r(0x50), r(0x40))

			last := results[5]
			Expect(last.L2Evicted).To(BeTrue())
			Expect(last.EvictedAddress).To(Equal(uint64(0x00)))
			Expect(last.L1Invalidated).To(BeTrue())
			Expect(last.WriteBack).To(BeTrue())
			Expect(h.Stats().WriteBacks).To(Equal(uint64(1)))

			_, found := l1Block(h, 0x40)
			Expect(found).To(BeTrue())
		})

		It("should refresh L2 recency on an L1 hit", func() {
			// 0x00 is the oldest L2 line until the L1 hit refreshes it.
			replay(h, r(0x00), r(0x10), r(0x30), r(0x50), r(0x00), r(0x40))

			_, found := l2Block(h, 0x00)
			Expect(found).To(BeTrue())
			_, found = l2Block(h, 0x10)
			Expect(found).To(BeFalse())
		})
	})

	Context("with the default geometry", func() {
		BeforeEach(func() {
			h = MakeBuilder().
				WithLatency(stats.Latency{L1: 1, L2: 5, Memory: 50}).
				Build("Cache")
		})

		It("should carry the latency into the statistics", func() {
			Expect(h.Stats().L1AccessTime).To(Equal(uint64(1)))
			Expect(h.Stats().L2AccessTime).To(Equal(uint64(5)))
			Expect(h.Stats().MemoryAccessTime).To(Equal(uint64(50)))
		})

		It("should fail without side effects when the clock is exhausted",
			func() {
				h.clock = math.MaxUint64

				_, err := h.Access(Read, 0x1234)

				Expect(errors.Is(err, ErrClockOverflow)).To(BeTrue())
				Expect(h.Stats().Accesses).To(BeZero())
				Expect(h.Clock()).To(Equal(uint64(math.MaxUint64)))
				for _, l := range h.L1Lines() {
					Expect(l.Valid).To(BeFalse())
				}
			})

		It("should accept the last clock value", func() {
			h.clock = math.MaxUint64 - 1

			_, err := h.Access(Write, 0x1234)
			Expect(err).NotTo(HaveOccurred())

			_, err = h.Access(Write, 0x1234)
			Expect(err).To(MatchError(ErrClockOverflow))
		})

		It("should never hold two blocks with the same L1 index", func() {
			rng := rand.New(rand.NewSource(7))
			for i := 0; i < 5000; i++ {
				_, err := h.Access(AccessKind(rng.Intn(2)),
					uint64(rng.Intn(1<<16)))
				Expect(err).NotTo(HaveOccurred())
			}

			for i, l := range h.L1Lines() {
				Expect(l.Index).To(Equal(i))
				if l.Valid {
					l1 := h.Geometry().L1()
					Expect(l1.Index(l.BlockAddress)).To(Equal(uint64(i)))
					Expect(l1.Tag(l.BlockAddress)).To(Equal(l.Tag))
				}
			}
		})
	})

	Context("with random traces", func() {
		geometries := []geometry.Geometry{
			{C1: 4, C2: 6, B: 2, S: 1},
			{C1: 5, C2: 6, B: 2, S: 2},
			{C1: 6, C2: 8, B: 3, S: 0},
			geometry.Default(),
		}

		randomTrace := func(seed int64, n int, span int) []access {
			rng := rand.New(rand.NewSource(seed))
			trace := make([]access, n)
			for i := range trace {
				trace[i] = access{AccessKind(rng.Intn(2)),
					uint64(rng.Intn(span))}
			}
			return trace
		}

		It("should stay inclusive after every access", func() {
			for _, g := range geometries {
				h = MakeBuilder().WithGeometry(g).Build("Cache")
				replay(h, randomTrace(int64(g.C1), 3000, 1<<12)...)
			}
		})

		It("should produce identical statistics for identical replays",
			func() {
				trace := randomTrace(42, 4000, 1<<14)

				first := MakeBuilder().Build("A")
				second := MakeBuilder().Build("B")
				replay(first, trace...)
				replay(second, trace...)

				Expect(*first.Finish()).To(Equal(*second.Finish()))
				Expect(first.L2Lines()).To(Equal(second.L2Lines()))
			})

		It("should hold the miss accounting identities", func() {
			h = MakeBuilder().
				WithGeometry(geometry.Geometry{C1: 4, C2: 6, B: 2, S: 1}).
				Build("Cache")
			trace := randomTrace(3, 2000, 1<<10)

			l1Misses, l2Misses, evictions := 0, 0, 0
			for _, res := range replay(h, trace...) {
				if !res.L1Hit {
					l1Misses++
				}
				if !res.L1Hit && !res.L2Hit {
					l2Misses++
				}
				if res.L2Evicted {
					evictions++
				}
			}

			s := h.Finish()
			Expect(s.L1Misses()).To(Equal(uint64(l1Misses)))
			Expect(s.L2Misses()).To(Equal(uint64(l2Misses)))
			Expect(s.WriteBacks).To(BeNumerically("<=", evictions))
			Expect(s.Reads + s.Writes).To(Equal(s.Accesses))
		})
	})
})

var _ = Describe("Hierarchy hooks", func() {
	var (
		mockCtrl *gomock.Controller
		hook     *MockHook
		h        *Hierarchy
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		hook = NewMockHook(mockCtrl)
		h = MakeBuilder().Build("Cache")
		h.AcceptHook(hook)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should report each access to the hooks", func() {
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx hooking.HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosAccess))
			Expect(ctx.Domain).To(BeIdenticalTo(h))

			res := ctx.Item.(AccessResult)
			Expect(res.Clock).To(Equal(uint64(1)))
			Expect(res.Kind).To(Equal(Write))
			Expect(res.Address).To(Equal(uint64(0xbeef)))
		})

		_, err := h.Access(Write, 0xbeef)

		Expect(err).NotTo(HaveOccurred())
	})

	It("should not report failed accesses", func() {
		h.clock = math.MaxUint64

		_, err := h.Access(Read, 0)

		Expect(err).To(HaveOccurred())
	})
})
