package kernel

var (
	product *Product
	sum     *Sum
	_       Covariance = product // Check that Product respects the Covariance interface.
	_       Covariance = sum     // Check that Sum respects the Covariance interface.
)

// Product scales the product of a time kernel and a wavelength kernel.
type Product struct {
	amplitude  float64
	time       Stationary
	wavelength Stationary
}

// NewProduct returns amplitude * time(dt) * wavelength(dl).
func NewProduct(amplitude float64, time, wavelength Stationary) *Product {
	return &Product{amplitude: amplitude, time: time, wavelength: wavelength}
}

// Eval returns the covariance between a and b.
func (k *Product) Eval(a, b Point) float64 {
	return k.amplitude * k.time.Eval(a.Time-b.Time) * k.wavelength.Eval(a.Wavelength-b.Wavelength)
}

// Sum adds a time kernel and a wavelength kernel sharing one amplitude.
type Sum struct {
	amplitude  float64
	time       Stationary
	wavelength Stationary
}

// NewSum returns amplitude * (time(dt) + wavelength(dl)).
func NewSum(amplitude float64, time, wavelength Stationary) *Sum {
	return &Sum{amplitude: amplitude, time: time, wavelength: wavelength}
}

// Eval returns the covariance between a and b.
func (k *Sum) Eval(a, b Point) float64 {
	return k.amplitude * (k.time.Eval(a.Time-b.Time) + k.wavelength.Eval(a.Wavelength-b.Wavelength))
}
