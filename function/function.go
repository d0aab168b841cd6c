// Package function holds the closed, process-wide registry of math
// constants, unary operators and binary operators that expression trees are
// built from. Every entry is looked up by a stable string name so that
// serialized trees can round-trip through the registry rather than carrying
// function pointers.
package function

import "math"

// Unary is a named elementwise vector operator taking one argument.
type Unary struct {
	Name string
	Fn   func(v []float32) []float32
}

// Binary is a named elementwise vector operator taking two equal-length
// arguments.
type Binary struct {
	Name string
	Fn   func(a, b []float32) []float32
}

// Constant is a named scalar broadcast into a length-N vector.
type Constant struct {
	Name  string
	Value float32
}

// Constants, Unaries and Binaries are the fixed registries, built once at
// package init and never mutated afterward.
var (
	Constants []Constant
	Unaries   []Unary
	Binaries  []Binary

	constantsByName = map[string]Constant{}
	unaryByName     = map[string]Unary{}
	binaryByName    = map[string]Binary{}
)

func init() {
	Constants = []Constant{
		{"0", 0},
		{"1", 1},
		{"2", 2},
		{"e", float32(math.E)},
		{"pi", float32(math.Pi)},
		{"2pi", float32(2 * math.Pi)},
	}
	for _, c := range Constants {
		constantsByName[c.Name] = c
	}

	Unaries = []Unary{
		{"abs", mapUnary(func(v float32) float32 { return float32(math.Abs(float64(v))) })},
		{"ceil", mapUnary(func(v float32) float32 { return float32(math.Ceil(float64(v))) })},
		{"dec", mapUnary(func(v float32) float32 { return v - 1 })},
		{"floor", mapUnary(func(v float32) float32 { return float32(math.Floor(float64(v))) })},
		{"inc", mapUnary(func(v float32) float32 { return v + 1 })},
		{"log", mapUnary(func(v float32) float32 { return float32(math.Log(float64(v))) })},
		{"neg", mapUnary(func(v float32) float32 { return -v })},
		{"normalize", mapUnary(normalize)},
		{"reciprocal", mapUnary(func(v float32) float32 { return 1 / v })},
		{"relu", mapUnary(func(v float32) float32 {
			if v > 0 {
				return v
			}
			return 0
		})},
		{"round", mapUnary(func(v float32) float32 { return float32(math.Round(float64(v))) })},
		{"sine", mapUnary(func(v float32) float32 { return float32(math.Sin(float64(v))) })},
		{"sqrt", mapUnary(func(v float32) float32 { return float32(math.Sqrt(float64(v))) })},
		{"square", mapUnary(func(v float32) float32 { return v * v })},
		{"tau_sigmoid", mapUnary(tauSigmoid)},
		{"tang_hyper", mapUnary(func(v float32) float32 { return float32(math.Tanh(float64(v))) })},
	}
	for _, u := range Unaries {
		unaryByName[u.Name] = u
	}

	Binaries = []Binary{
		{"abs_higher", mapBinary(func(a, b float32) float32 {
			return float32(math.Max(math.Abs(float64(a)), math.Abs(float64(b))))
		})},
		{"abs_lower", mapBinary(func(a, b float32) float32 {
			return float32(math.Min(math.Abs(float64(a)), math.Abs(float64(b))))
		})},
		{"add", mapBinary(func(a, b float32) float32 { return a + b })},
		{"and", mapBinary(func(a, b float32) float32 { return boolFloat(a != 0 && b != 0) })},
		{"diff", mapBinary(func(a, b float32) float32 { return float32(math.Abs(float64(1 - a/b))) })},
		{"div", mapBinary(func(a, b float32) float32 { return a / b })},
		{"equal", mapBinary(func(a, b float32) float32 {
			return boolFloat(math.Abs(float64(1-a/b)) < 0.01)
		})},
		{"first_is_higher", mapBinary(func(a, b float32) float32 { return boolFloat(a > b) })},
		{"higher", mapBinary(func(a, b float32) float32 { return float32(math.Max(float64(a), float64(b))) })},
		{"lower", mapBinary(func(a, b float32) float32 { return float32(math.Min(float64(a), float64(b))) })},
		{"mid", mapBinary(func(a, b float32) float32 { return (a + b) / 2 })},
		{"mul", mapBinary(func(a, b float32) float32 { return a * b })},
		{"or", mapBinary(func(a, b float32) float32 { return boolFloat(a != 0 || b != 0) })},
		{"sub", mapBinary(func(a, b float32) float32 { return a - b })},
		{"sum_of_squares", mapBinary(func(a, b float32) float32 { return a*a + b*b })},
		{"xor", mapBinary(func(a, b float32) float32 { return boolFloat((a == 0) != (b == 0)) })},
		{"round_equal", mapBinary(func(a, b float32) float32 {
			return boolFloat(math.Round(float64(a)) == math.Round(float64(b)))
		})},
	}
	for _, b := range Binaries {
		binaryByName[b.Name] = b
	}
}

func normalize(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func tauSigmoid(v float32) float32 {
	return float32(math.Pow(2*math.Pi, float64(v)))
}

func boolFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func mapUnary(f func(float32) float32) func([]float32) []float32 {
	return func(v []float32) []float32 {
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = f(x)
		}
		return out
	}
}

func mapBinary(f func(a, b float32) float32) func(a, b []float32) []float32 {
	return func(a, b []float32) []float32 {
		out := make([]float32, len(a))
		for i := range a {
			out[i] = f(a[i], b[i])
		}
		return out
	}
}

// LookupConstant returns the constant registered under name.
func LookupConstant(name string) (Constant, bool) {
	c, ok := constantsByName[name]
	return c, ok
}

// LookupUnary returns the unary operator registered under name.
func LookupUnary(name string) (Unary, bool) {
	u, ok := unaryByName[name]
	return u, ok
}

// LookupBinary returns the binary operator registered under name.
func LookupBinary(name string) (Binary, bool) {
	b, ok := binaryByName[name]
	return b, ok
}
