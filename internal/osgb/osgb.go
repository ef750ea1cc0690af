// Package osgb projects WGS84 latitude/longitude onto the Ordnance Survey
// National Grid (OSGB36) using a transverse Mercator projection of the Airy
// 1830 ellipsoid.
//
// Coordinates are projected directly without a datum transformation, which
// keeps the math self-contained at the cost of up to roughly a hundred
// metres of absolute offset. Station spacing and nearest-station lookups
// only need relative positions, so the offset cancels out.
package osgb

import "math"

// Airy 1830 ellipsoid and National Grid projection constants.
const (
	semiMajor = 6377563.396
	semiMinor = 6356256.910

	scaleFactor = 0.9996012717

	originLat = 49.0 * math.Pi / 180
	originLon = -2.0 * math.Pi / 180

	falseEasting  = 400000.0
	falseNorthing = -100000.0
)

// EastingNorthing projects a WGS84 coordinate onto the National Grid. The
// term names follow the Ordnance Survey worked example (I through VI).
func EastingNorthing(lat, lon float64) (easting, northing float64) {
	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180

	e2 := 1 - (semiMinor*semiMinor)/(semiMajor*semiMajor)

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)
	tan2 := tanPhi * tanPhi

	nu := semiMajor * scaleFactor / math.Sqrt(1-e2*sinPhi*sinPhi)
	rho := semiMajor * scaleFactor * (1 - e2) * math.Pow(1-e2*sinPhi*sinPhi, -1.5)
	eta2 := nu/rho - 1

	termI := meridionalArc(phi) + falseNorthing
	termII := nu / 2 * sinPhi * cosPhi
	termIII := nu / 24 * sinPhi * math.Pow(cosPhi, 3) * (5 - tan2 + 9*eta2)
	termIIIA := nu / 720 * sinPhi * math.Pow(cosPhi, 5) * (61 - 58*tan2 + tan2*tan2)
	termIV := nu * cosPhi
	termV := nu / 6 * math.Pow(cosPhi, 3) * (nu/rho - tan2)
	termVI := nu / 120 * math.Pow(cosPhi, 5) * (5 - 18*tan2 + tan2*tan2 + 14*eta2 - 58*tan2*eta2)

	dLam := lam - originLon
	northing = termI + termII*dLam*dLam + termIII*math.Pow(dLam, 4) + termIIIA*math.Pow(dLam, 6)
	easting = falseEasting + termIV*dLam + termV*math.Pow(dLam, 3) + termVI*math.Pow(dLam, 5)
	return easting, northing
}

// meridionalArc is the developed arc length from the projection origin to
// latitude phi.
func meridionalArc(phi float64) float64 {
	n := (semiMajor - semiMinor) / (semiMajor + semiMinor)
	n2 := n * n
	n3 := n2 * n

	dPhi := phi - originLat
	sPhi := phi + originLat

	return semiMinor * scaleFactor *
		((1+n+1.25*n2+1.25*n3)*dPhi -
			(3*n+3*n2+21.0/8*n3)*math.Sin(dPhi)*math.Cos(sPhi) +
			(15.0/8*n2+15.0/8*n3)*math.Sin(2*dPhi)*math.Cos(2*sPhi) -
			35.0/24*n3*math.Sin(3*dPhi)*math.Cos(3*sPhi))
}

// Distance returns the planar distance in metres between two grid positions.
func Distance(e1, n1, e2, n2 float64) float64 {
	return math.Hypot(e2-e1, n2-n1)
}
