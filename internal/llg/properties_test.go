package llg

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"
)

const samples = 200

func randomVec(rng *rand.Rand, scale float64) r3.Vec {
	return r3.Vec{
		X: scale * (2*rng.Float64() - 1),
		Y: scale * (2*rng.Float64() - 1),
		Z: scale * (2*rng.Float64() - 1),
	}
}

var _ = Describe("LLG kernels", func() {
	var rng *rand.Rand

	BeforeEach(func() {
		rng = rand.New(rand.NewSource(GinkgoRandomSeed()))
	})

	Describe("Precession", func() {
		It("is orthogonal to m", func() {
			for i := 0; i < samples; i++ {
				m, h := randomVec(rng, 1), randomVec(rng, 1e5)
				alpha := rng.Float64()
				d := eval(Precession, alpha, GammaLL, m, h)
				scale := r3.Norm(m) * r3.Norm(d)
				Expect(r3.Dot(m, d)).To(BeNumerically("~", 0, 1e-12*scale+1e-300))
			}
		})

		It("is linear in gamma", func() {
			for i := 0; i < samples; i++ {
				m, h := randomVec(rng, 1), randomVec(rng, 10)
				alpha, k := rng.Float64(), 1+9*rng.Float64()
				d1 := eval(Precession, alpha, 1, m, h)
				dk := eval(Precession, alpha, k, m, h)
				Expect(closeTo(dk, r3.Scale(k, d1))).To(BeTrue())
			}
		})
	})

	Describe("Damping", func() {
		It("is orthogonal to m", func() {
			for i := 0; i < samples; i++ {
				m, h := randomVec(rng, 1), randomVec(rng, 1e5)
				d := eval(Damping, rng.Float64(), GammaLL, m, h)
				scale := r3.Norm(m) * r3.Norm(d)
				Expect(r3.Dot(m, d)).To(BeNumerically("~", 0, 1e-12*scale+1e-300))
			}
		})

		It("vanishes without damping", func() {
			for i := 0; i < samples; i++ {
				m, h := randomVec(rng, 1), randomVec(rng, 1e5)
				Expect(eval(Damping, 0, GammaLL, m, h)).To(Equal(r3.Vec{}))
			}
		})

		It("is linear in gamma", func() {
			for i := 0; i < samples; i++ {
				m, h := randomVec(rng, 1), randomVec(rng, 10)
				alpha, k := rng.Float64(), 1+9*rng.Float64()
				d1 := eval(Damping, alpha, 1, m, h)
				dk := eval(Damping, alpha, k, m, h)
				Expect(closeTo(dk, r3.Scale(k, d1))).To(BeTrue())
			}
		})

		It("turns m towards the field", func() {
			m, h := r3.Vec{X: 1}, r3.Vec{Z: 1}
			d := eval(Damping, 0.1, 1, m, h)
			Expect(r3.Dot(d, h)).To(BeNumerically(">", 0))
		})
	})

	Describe("Relaxation", func() {
		It("vanishes for unit vectors", func() {
			for i := 0; i < samples; i++ {
				m := r3.Unit(randomVec(rng, 1))
				d := relax(1e11*rng.Float64(), m)
				Expect(r3.Norm(d)).To(BeNumerically("<", 1e-4))
			}
		})

		It("vanishes exactly when m·m is exactly one", func() {
			Expect(relax(1e11, r3.Vec{Y: -1})).To(Equal(r3.Vec{}))
			Expect(relax(5, r3.Vec{Z: 1})).To(Equal(r3.Vec{}))
		})

		It("vanishes for c = 0", func() {
			for i := 0; i < samples; i++ {
				Expect(relax(0, randomVec(rng, 10))).To(Equal(r3.Vec{}))
			}
		})

		It("points along m when |m| < 1 and against it when |m| > 1", func() {
			short := r3.Vec{X: 0.5}
			long := r3.Vec{X: 1.5}
			Expect(relax(1, short).X).To(BeNumerically(">", 0))
			Expect(relax(1, long).X).To(BeNumerically("<", 0))
		})
	})

	DescribeTable("zero magnetization gives zero output",
		func(d r3.Vec) {
			Expect(d.X).To(BeZero())
			Expect(d.Y).To(BeZero())
			Expect(d.Z).To(BeZero())
		},
		Entry("damping", eval(Damping, 0.5, GammaLL, r3.Vec{}, r3.Vec{X: 1, Y: 2, Z: 3})),
		Entry("precession", eval(Precession, 0.5, GammaLL, r3.Vec{}, r3.Vec{X: 1, Y: 2, Z: 3})),
		Entry("relaxation", relax(DefaultC, r3.Vec{})),
	)

	It("is deterministic", func() {
		m, h := randomVec(rng, 1), randomVec(rng, 1)
		Expect(eval(Damping, 0.2, 3, m, h)).To(Equal(eval(Damping, 0.2, 3, m, h)))
		Expect(math.IsNaN(eval(Precession, 0.2, 3, m, h).X)).To(BeFalse())
	})
})
