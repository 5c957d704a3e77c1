package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const metersPerFoot = 0.3048

// FieldCulvert is one NAACC field-survey row, in survey units (feet, percent).
type FieldCulvert struct {
	Row       int
	BarrierID string
	NAACCID   int
	Lat       float64
	Long      float64
	RoadName  string
	Material  string
	InletType string
	Shape     string
	InletA    float64 // width or diameter, ft
	InletB    float64 // height, ft
	HW        float64 // ft
	SlopePct  float64
	Length    float64 // ft
	County    string
	Flags     int
}

// Shape is the cross-section family used for area and rise.
type Shape string

const (
	ShapeRound      Shape = "round"
	ShapeElliptical Shape = "elliptical"
	ShapeArch       Shape = "arch"
	ShapeBox        Shape = "box"
)

// ParseShape maps a NAACC inlet shape description to a Shape.
func ParseShape(s string) (Shape, bool) {
	v := strings.ToLower(s)
	switch {
	case strings.Contains(v, "round"):
		return ShapeRound, true
	case strings.Contains(v, "ellip"), strings.Contains(v, "pipe arch"):
		return ShapeElliptical, true
	case strings.Contains(v, "arch"):
		return ShapeArch, true
	case strings.Contains(v, "box"), strings.Contains(v, "rect"):
		return ShapeBox, true
	default:
		return "", false
	}
}

// InletCoefficients are the FHWA HDS-5 inlet-control constants for one
// material and inlet configuration, plus the slope correction ks.
type InletCoefficients struct {
	C  float64
	Y  float64
	Ks float64
}

type inletKind int

const (
	inletProjecting inletKind = iota
	inletHeadwall
	inletMitered
)

func parseInlet(s string) inletKind {
	v := strings.ToLower(s)
	switch {
	case strings.Contains(v, "miter"):
		return inletMitered
	case strings.Contains(v, "headwall"), strings.Contains(v, "wingwall"):
		return inletHeadwall
	default:
		return inletProjecting
	}
}

func isRigid(material string) bool {
	v := strings.ToLower(material)
	return strings.Contains(v, "concrete") || strings.Contains(v, "stone") || strings.Contains(v, "masonry")
}

// LookupCoefficients returns c, Y and ks for a culvert. Unrecognized inlet
// types get projecting-inlet constants.
func LookupCoefficients(material, inletType string, shape Shape) InletCoefficients {
	kind := parseInlet(inletType)
	ks := -0.5
	if kind == inletMitered {
		ks = 0.7
	}

	if shape == ShapeBox {
		return InletCoefficients{C: 0.0385, Y: 0.81, Ks: ks}
	}
	if isRigid(material) {
		switch kind {
		case inletHeadwall:
			return InletCoefficients{C: 0.0398, Y: 0.67, Ks: ks}
		case inletMitered:
			return InletCoefficients{C: 0.0463, Y: 0.75, Ks: ks}
		default:
			return InletCoefficients{C: 0.0317, Y: 0.69, Ks: ks}
		}
	}
	switch kind {
	case inletHeadwall:
		return InletCoefficients{C: 0.0379, Y: 0.69, Ks: ks}
	case inletMitered:
		return InletCoefficients{C: 0.0463, Y: 0.75, Ks: ks}
	default:
		return InletCoefficients{C: 0.0553, Y: 0.54, Ks: ks}
	}
}

// GeometryError rejects a field-survey row and names the column at fault.
type GeometryError struct {
	Field  string
	Value  string
	Reason string
}

func (e *GeometryError) Error() string { return e.Reason }

// PrepareGeometry converts a field-survey row into a Culvert in SI units with
// its cross-section area, rise and inlet coefficients. Rows that cannot be
// modelled return a *GeometryError.
func PrepareGeometry(fc FieldCulvert) (Culvert, error) {
	shape, ok := ParseShape(fc.Shape)
	if !ok {
		return Culvert{}, &GeometryError{
			Field:  "In_Shape",
			Value:  fc.Shape,
			Reason: fmt.Sprintf("unsupported inlet shape %q", fc.Shape),
		}
	}

	a := fc.InletA * metersPerFoot
	b := fc.InletB * metersPerFoot
	var area, d float64
	riseField, rise := "In_B", fc.InletB
	switch shape {
	case ShapeRound:
		area = math.Pi * (a / 2) * (a / 2)
		d = a
		riseField, rise = "In_A", fc.InletA
	case ShapeElliptical, ShapeArch:
		area = math.Pi * a * b / 4
		d = b
	case ShapeBox:
		area = a * b
		d = b
	}
	if d <= 0 {
		return Culvert{}, &GeometryError{
			Field:  riseField,
			Value:  strconv.FormatFloat(rise, 'f', -1, 64),
			Reason: fmt.Sprintf("culvert rise must be > 0 for %s shape", shape),
		}
	}

	co := LookupCoefficients(fc.Material, fc.InletType, shape)
	return Culvert{
		Row:       fc.Row,
		BarrierID: fc.BarrierID,
		NAACCID:   fc.NAACCID,
		Lat:       fc.Lat,
		Long:      fc.Long,
		HW:        fc.HW * metersPerFoot,
		Area:      area,
		Length:    fc.Length * metersPerFoot,
		D:         d,
		C:         co.C,
		Y:         co.Y,
		Ks:        co.Ks,
		Slope:     fc.SlopePct / 100,
		County:    fc.County,
		Flags:     fc.Flags,
	}, nil
}
