package initwfn

import G "gorgonia.org/gorgonia"

// GlorotUConfig configures Glorot uniform initialization
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

// Type returns the Type of initializer the GlorotUConfig creates
func (c GlorotUConfig) Type() Type {
	return GlorotU
}

// Create returns the weight initializer described by the GlorotUConfig
func (c GlorotUConfig) Create() G.InitWFn {
	return G.GlorotU(c.Gain)
}

// GlorotNConfig configures Glorot normal initialization
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot normal weight initializer
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotNConfig{Gain: gain})
}

// Type returns the Type of initializer the GlorotNConfig creates
func (c GlorotNConfig) Type() Type {
	return GlorotN
}

// Create returns the weight initializer described by the GlorotNConfig
func (c GlorotNConfig) Create() G.InitWFn {
	return G.GlorotN(c.Gain)
}

// HeUConfig configures He uniform initialization
type HeUConfig struct {
	Gain float64
}

// NewHeU returns a new He uniform weight initializer
func NewHeU(gain float64) (*InitWFn, error) {
	return newInitWFn(HeUConfig{Gain: gain})
}

// Type returns the Type of initializer the HeUConfig creates
func (c HeUConfig) Type() Type {
	return HeU
}

// Create returns the weight initializer described by the HeUConfig
func (c HeUConfig) Create() G.InitWFn {
	return G.HeU(c.Gain)
}

// HeNConfig configures He normal initialization
type HeNConfig struct {
	Gain float64
}

// NewHeN returns a new He normal weight initializer
func NewHeN(gain float64) (*InitWFn, error) {
	return newInitWFn(HeNConfig{Gain: gain})
}

// Type returns the Type of initializer the HeNConfig creates
func (c HeNConfig) Type() Type {
	return HeN
}

// Create returns the weight initializer described by the HeNConfig
func (c HeNConfig) Create() G.InitWFn {
	return G.HeN(c.Gain)
}

// ZeroesConfig initializes every weight to 0
type ZeroesConfig struct{}

// NewZeroes returns a new zero weight initializer
func NewZeroes() (*InitWFn, error) {
	return newInitWFn(ZeroesConfig{})
}

// Type returns the Type of initializer the ZeroesConfig creates
func (c ZeroesConfig) Type() Type {
	return Zeroes
}

// Create returns the weight initializer described by the ZeroesConfig
func (c ZeroesConfig) Create() G.InitWFn {
	return G.Zeroes()
}

// ConstantConfig initializes every weight to Value
type ConstantConfig struct {
	Value float64
}

// NewConstant returns a new constant weight initializer
func NewConstant(value float64) (*InitWFn, error) {
	return newInitWFn(ConstantConfig{Value: value})
}

// Type returns the Type of initializer the ConstantConfig creates
func (c ConstantConfig) Type() Type {
	return Constant
}

// Create returns the weight initializer described by the ConstantConfig
func (c ConstantConfig) Create() G.InitWFn {
	return G.ValuesOf(c.Value)
}

// UniformConfig draws weights from U[Low, High)
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	return newInitWFn(UniformConfig{Low: low, High: high})
}

// Type returns the Type of initializer the UniformConfig creates
func (c UniformConfig) Type() Type {
	return Uniform
}

// Create returns the weight initializer described by the UniformConfig
func (c UniformConfig) Create() G.InitWFn {
	return G.Uniform(c.Low, c.High)
}

// GaussianConfig draws weights from N(Mean, StdDev²)
type GaussianConfig struct {
	Mean, StdDev float64
}

// NewGaussian returns a new Gaussian weight initializer
func NewGaussian(mean, stddev float64) (*InitWFn, error) {
	return newInitWFn(GaussianConfig{Mean: mean, StdDev: stddev})
}

// Type returns the Type of initializer the GaussianConfig creates
func (c GaussianConfig) Type() Type {
	return Gaussian
}

// Create returns the weight initializer described by the GaussianConfig
func (c GaussianConfig) Create() G.InitWFn {
	return G.Gaussian(c.Mean, c.StdDev)
}
