// Package domain holds the hydrology and hydraulics used to rate road-stream
// culvert crossings.
//
// # Inputs
//
// Three tables describe a region:
//
//	Watershed characteristics, one row per crossing: drainage area (km²),
//	time of concentration Tc (hours) and SCS curve number CN.
//
//	An NRCC precipitation export: 24-hour rainfall depth in inches for the
//	1, 2, 5, 10, 25, 50, 100, 200 and 500-year storms.
//
//	NAACC field survey data, one row per culvert barrel: shape, material,
//	inlet type, inlet dimensions and headwater depth in feet, slope in percent.
//
// # Runoff
//
// Peak discharge follows the NRCS TR-55 graphical method for the Type II
// rainfall distribution. Rainfall is scaled by a scenario multiplier (1.0 for
// current conditions, 1.15 for projected future rainfall by default). Ia/P is
// clamped to [0.1, 0.5] and Tc to [0.1, 10] h, the range of the TR-55 chart.
//
// # Capacity
//
// Each culvert is rated with the FHWA HDS-5 unsubmerged inlet-control
// equation in SI form (see [InletControlCapacity]). Coefficients c and Y
// come from the HDS-5 table by material and inlet configuration; ks is +0.7
// for mitered inlets and −0.5 otherwise.
//
// # Crossings
//
// A crossing can hold several barrels. In the survey table the Flags column
// of the first barrel gives the number of barrels at the crossing, and the
// remaining barrels follow it directly. Flags 0 means a single barrel. Flags 1
// is undefined in the source data and is read as a single barrel; callers
// should surface those rows for review. [AggregateCrossings] sums barrel
// capacities per crossing, taking identity and area from the first barrel.
//
// # Return periods
//
// A crossing's maximum safe return period is the largest storm whose peak
// discharge does not exceed the crossing capacity. [FailsSmallestStorm]
// marks crossings overtopped by the 1-year storm.
package domain
