package lens

import (
	"math"

	"github.com/brianvoe/gofakeit/v7"
)

// Colour offsets relative to the i band. Lens galaxies are red ellipticals;
// quasars are close to flat in these bands.
var (
	galaxyColours = map[string]float64{"u": 3.1, "g": 1.3, "r": 0.45, "i": 0, "z": -0.3, "y": -0.5}
	quasarColours = map[string]float64{"u": 0.35, "g": 0.2, "r": 0.1, "i": 0, "z": -0.05, "y": -0.1}
)

const colourJitter = 0.1

// Painter generates synthetic doubles and quads with painted colours. The
// same seed always paints the same systems.
type Painter struct {
	faker        *gofakeit.Faker
	quadFraction float64
	nextID       int
}

// NewPainter creates a seeded painter; ids start at firstID
func NewPainter(seed uint64, quadFraction float64, firstID int) *Painter {
	return &Painter{
		faker:        gofakeit.New(seed),
		quadFraction: quadFraction,
		nextID:       firstID,
	}
}

// PaintN paints n systems
func (p *Painter) PaintN(n int) []*System {
	systems := make([]*System, 0, n)
	for range n {
		systems = append(systems, p.Paint())
	}
	return systems
}

// Paint paints one system
func (p *Painter) Paint() *System {
	f := p.faker

	zLens := f.Float64Range(0.1, 1.0)
	sys := &System{
		LensID:      p.nextID,
		RA:          f.Float64Range(0, 360),
		DEC:         f.Float64Range(-65, 5),
		ZLens:       zLens,
		ZSrc:        zLens + f.Float64Range(0.3, 3.0),
		GalaxySigma: f.Float64Range(0.3, 1.2),
		GalaxyEllip: f.Float64Range(0, 0.6),
		GalaxyPhi:   f.Float64Range(-90, 90),
		LensMag:     p.paintColours(f.Float64Range(18, 22), galaxyColours),
		SrcMag:      p.paintColours(f.Float64Range(20, 23), quasarColours),
	}
	p.nextID++

	einsteinRadius := f.Float64Range(0.5, 1.5)
	if f.Float64Range(0, 1) < p.quadFraction {
		sys.Images = p.paintQuad(einsteinRadius)
	} else {
		sys.Images = p.paintDouble(einsteinRadius)
	}
	return sys
}

func (p *Painter) paintColours(iMag float64, colours map[string]float64) map[string]float64 {
	mags := make(map[string]float64, len(Bands))
	for _, b := range Bands {
		mags[b] = iMag + colours[b] + p.faker.Float64Range(-colourJitter, colourJitter)
	}
	return mags
}

func (p *Painter) paintDouble(radius float64) []Image {
	f := p.faker
	angle := f.Float64Range(0, 2*math.Pi)
	asym := f.Float64Range(0.05, 0.4)
	far := radius * (1 + asym)
	near := radius * (1 - asym)
	opposite := angle + math.Pi + f.Float64Range(-0.3, 0.3)

	return []Image{
		{X: far * math.Cos(angle), Y: far * math.Sin(angle), Mag: f.Float64Range(1.5, 5)},
		{X: near * math.Cos(opposite), Y: near * math.Sin(opposite), Mag: -f.Float64Range(0.5, 3)},
	}
}

func (p *Painter) paintQuad(radius float64) []Image {
	f := p.faker
	angle := f.Float64Range(0, 2*math.Pi)

	images := make([]Image, MaxImages)
	for k := range images {
		theta := angle + float64(k)*math.Pi/2 + f.Float64Range(-0.25, 0.25)
		r := radius * f.Float64Range(0.9, 1.1)
		mag := f.Float64Range(1, 6)
		if k%2 == 1 {
			mag = -mag
		}
		images[k] = Image{X: r * math.Cos(theta), Y: r * math.Sin(theta), Mag: mag}
	}
	return images
}
