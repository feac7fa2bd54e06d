package solver_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/trajopt/internal/nlp"
	"github.com/san-kum/trajopt/internal/ocp"
	"github.com/san-kum/trajopt/internal/solver"
	"github.com/san-kum/trajopt/internal/transcription"
)

// slider is xdot = u with cost u^2, moved from x = 0 to x = 1 in one second.
type slider struct{}

func (slider) Derive(x ocp.State, u ocp.Control, t float64) ocp.State { return ocp.State{u[0]} }
func (slider) StateDim() int                                          { return 1 }
func (slider) ControlDim() int                                        { return 1 }
func (slider) IntegralCost(x ocp.State, u ocp.Control, t float64) float64 {
	return u[0] * u[0]
}
func (slider) Bounds() ocp.Bounds {
	b := ocp.FreeBounds(1, 1, 0, 1)
	b.InitialStates[0] = ocp.Fixed(0)
	b.FinalStates[0] = ocp.Fixed(1)
	return b
}

const meshPoints = 11

var _ = Describe("Slider", func() {
	var dc *transcription.DirectCollocation

	BeforeEach(func() {
		var err error
		dc, err = transcription.New(slider{}, meshPoints)
		Expect(err).NotTo(HaveOccurred())
	})

	expectStraightLine := func(sol *nlp.Solution) {
		Expect(sol.Status).To(Equal(nlp.Solved), sol.Message)
		Expect(sol.Objective).To(BeNumerically("~", 1, 1e-3))
		for i := 0; i < meshPoints; i++ {
			Expect(sol.X[dc.StateIndex(i, 0)]).To(BeNumerically("~", float64(i)/10, 1e-3))
		}
		for i := 1; i < meshPoints; i++ {
			Expect(sol.X[dc.ControlIndex(i, 0)]).To(BeNumerically("~", 1, 1e-3))
		}
		maxDefect, err := dc.MaxDefect(sol.X)
		Expect(err).NotTo(HaveOccurred())
		Expect(maxDefect).To(BeNumerically("<", 1e-4))
	}

	DescribeTable("reaches the straight-line solution",
		func(backend, hessian string) {
			b, err := solver.NewBackend(backend)
			Expect(err).NotTo(HaveOccurred())
			s := solver.New(b)
			Expect(s.SetHessianApproximation(hessian)).To(Succeed())

			var iterations []nlp.Iteration
			s.SetObserver(func(it nlp.Iteration) { iterations = append(iterations, it) })

			sol, err := s.OptimizeFromBounds(context.Background(), dc)
			Expect(err).NotTo(HaveOccurred())
			expectStraightLine(sol)
			Expect(iterations).NotTo(BeEmpty())
			Expect(sol.Elapsed).To(BeNumerically(">", 0))
		},
		Entry("auglag with exact hessian", "auglag", solver.HessianExact),
		Entry("auglag with limited-memory hessian", "auglag", solver.HessianLimitedMemory),
		Entry("sqp", "sqp", solver.HessianExact),
	)

	It("stops at the iteration limit without an error", func() {
		s := solver.New(solver.NewAugLag())
		Expect(s.SetMaxIterations(1)).To(Succeed())

		sol, err := s.OptimizeFromBounds(context.Background(), dc)
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Status).To(Equal(nlp.IterationLimit))
		Expect(sol.Iterations).To(Equal(1))
	})

	It("reports cancellation", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		sol, err := solver.New(solver.NewSQP()).OptimizeFromBounds(ctx, dc)
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Status).To(Equal(nlp.Canceled))
		Expect(sol.X).To(HaveLen(dc.NumVariables()))
	})

	It("rejects a guess of the wrong length before solving", func() {
		guess := dc.GuessFromBounds()
		_, err := solver.New(solver.NewAugLag()).Optimize(context.Background(), dc, append(guess, 0))
		Expect(errors.Is(err, solver.ErrGuessLength)).To(BeTrue())
	})
})
