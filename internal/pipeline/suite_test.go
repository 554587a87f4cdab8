package pipeline

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPipelineStateMachine(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline State Machine Suite")
}

var _ = Describe("Runner state machine", func() {
	var (
		conn  *fakeConnector
		calls []string
	)

	BeforeEach(func() {
		conn = &fakeConnector{}
		calls = nil
	})

	run := func(steps ...Step[*fakeHandle]) (*Outcome, error) {
		return NewRunner[*fakeHandle](conn, steps, Options{Task: "spec"}).Run(context.Background())
	}

	Context("when every step succeeds", func() {
		It("walks Connecting, Running(i) for each step, Succeeded and Closed", func() {
			outcome, err := run(okStep("a", &calls), okStep("b", &calls))
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Transitions).To(Equal([]State{
				{Phase: PhaseConnecting},
				{Phase: PhaseRunning, Step: 0},
				{Phase: PhaseRunning, Step: 1},
				{Phase: PhaseSucceeded},
				{Phase: PhaseClosed},
			}))
		})
	})

	Context("when a middle step fails", func() {
		It("stops at Failed(i) and still closes the handle", func() {
			outcome, err := run(okStep("a", &calls), failStep("b", CommandError("b", errBoom, ""), &calls), okStep("c", &calls))
			Expect(err).To(HaveOccurred())
			Expect(calls).To(Equal([]string{"a", "b"}))
			Expect(outcome.Transitions).To(Equal([]State{
				{Phase: PhaseConnecting},
				{Phase: PhaseRunning, Step: 0},
				{Phase: PhaseRunning, Step: 1},
				{Phase: PhaseFailed, Step: 1},
				{Phase: PhaseClosed},
			}))
			Expect(conn.live.Load()).To(BeZero())
			Expect(conn.handles).To(HaveLen(1))
			Expect(conn.handles[0].closed.Load()).To(Equal(int32(1)))
		})
	})

	Context("when the connection cannot be opened", func() {
		It("goes to Failed and Closed without a handle", func() {
			conn.openErr = errBoom
			outcome, err := run(okStep("a", &calls))
			Expect(IsKind(err, KindConnection)).To(BeTrue())
			Expect(calls).To(BeEmpty())
			Expect(outcome.Transitions).To(HaveLen(3))
			Expect(outcome.Transitions[1]).To(Equal(State{Phase: PhaseFailed, Step: -1}))
		})
	})

	DescribeTable("transition validity",
		func(from, to State, want bool) {
			Expect(validTransition(from, to)).To(Equal(want))
		},
		Entry("start connecting", State{Phase: PhaseNotStarted}, State{Phase: PhaseConnecting}, true),
		Entry("skip connecting", State{Phase: PhaseNotStarted}, State{Phase: PhaseRunning}, false),
		Entry("connected to first step", State{Phase: PhaseConnecting}, State{Phase: PhaseRunning, Step: 0}, true),
		Entry("connected to later step", State{Phase: PhaseConnecting}, State{Phase: PhaseRunning, Step: 2}, false),
		Entry("advance one step", State{Phase: PhaseRunning, Step: 1}, State{Phase: PhaseRunning, Step: 2}, true),
		Entry("skip a step", State{Phase: PhaseRunning, Step: 1}, State{Phase: PhaseRunning, Step: 3}, false),
		Entry("go backwards", State{Phase: PhaseRunning, Step: 2}, State{Phase: PhaseRunning, Step: 1}, false),
		Entry("fail current step", State{Phase: PhaseRunning, Step: 1}, State{Phase: PhaseFailed, Step: 1}, true),
		Entry("cancel before next step", State{Phase: PhaseRunning, Step: 1}, State{Phase: PhaseFailed, Step: 2}, true),
		Entry("terminal to closed", State{Phase: PhaseSucceeded}, State{Phase: PhaseClosed}, true),
		Entry("failed to closed", State{Phase: PhaseFailed, Step: 0}, State{Phase: PhaseClosed}, true),
		Entry("running straight to closed", State{Phase: PhaseRunning}, State{Phase: PhaseClosed}, false),
		Entry("closed is final", State{Phase: PhaseClosed}, State{Phase: PhaseConnecting}, false),
	)
})
