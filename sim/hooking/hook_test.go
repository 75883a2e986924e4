package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("HookableBase", func() {
	var (
		mockCtrl *gomock.Controller
		base     *HookableBase
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		base = &HookableBase{}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should invoke every hook in registration order", func() {
		pos := &HookPos{Name: "Test"}
		ctx := HookCtx{Pos: pos, Item: 1}
		first := NewMockHook(mockCtrl)
		second := NewMockHook(mockCtrl)

		base.AcceptHook(first)
		base.AcceptHook(second)

		gomock.InOrder(
			first.EXPECT().Func(ctx),
			second.EXPECT().Func(ctx),
		)

		base.InvokeHook(ctx)

		Expect(base.NumHooks()).To(Equal(2))
		Expect(base.Hooks()).To(ConsistOf(first, second))
	})

	It("should panic on duplicated hooks", func() {
		hook := NewMockHook(mockCtrl)
		base.AcceptHook(hook)

		Expect(func() { base.AcceptHook(hook) }).To(Panic())
	})

	It("should accept function hooks", func() {
		count := 0
		base.AcceptHook(HookFunc(func(ctx HookCtx) { count++ }))
		base.AcceptHook(HookFunc(func(ctx HookCtx) { count += 10 }))

		base.InvokeHook(HookCtx{})

		Expect(count).To(Equal(11))
	})
})
