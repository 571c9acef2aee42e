package analysis

import (
	"math"
	"sort"
)

// vdotRow holds equivalent race times in seconds for one VDOT value
type vdotRow struct {
	vdot                                  float64
	s1500, sMile, s5K, s10K, sHalf, sFull float64
}

// vdotTable is the Daniels equivalent-performance table, VDOT 30 to 85
var vdotTable = []vdotRow{
	{30, 510, 552, 1860, 3876, 8388, 17496},
	{31, 496, 536, 1806, 3762, 8136, 16980},
	{32, 482, 521, 1752, 3654, 7896, 16488},
	{33, 469, 507, 1704, 3552, 7674, 16020},
	{34, 457, 494, 1656, 3450, 7458, 15570},
	{35, 445, 481, 1614, 3360, 7254, 15138},
	{36, 434, 469, 1572, 3270, 7062, 14730},
	{37, 423, 457, 1530, 3186, 6876, 14334},
	{38, 413, 446, 1494, 3102, 6702, 13956},
	{39, 403, 435, 1458, 3024, 6534, 13596},
	{40, 394, 425, 1422, 2952, 6372, 13248},
	{41, 385, 416, 1392, 2880, 6222, 12918},
	{42, 376, 406, 1356, 2814, 6078, 12600},
	{43, 368, 398, 1326, 2748, 5940, 12300},
	{44, 360, 389, 1296, 2688, 5802, 12006},
	{45, 352, 381, 1266, 2628, 5676, 11730},
	{46, 345, 373, 1242, 2568, 5550, 11460},
	{47, 338, 365, 1212, 2514, 5430, 11202},
	{48, 331, 358, 1188, 2460, 5316, 10956},
	{49, 324, 351, 1164, 2412, 5208, 10722},
	{50, 318, 344, 1140, 2364, 5100, 10494},
	{51, 312, 337, 1116, 2316, 4998, 10278},
	{52, 306, 331, 1098, 2274, 4902, 10068},
	{53, 300, 325, 1074, 2232, 4806, 9870},
	{54, 295, 319, 1056, 2190, 4716, 9678},
	{55, 290, 313, 1038, 2154, 4632, 9492},
	{56, 285, 308, 1020, 2112, 4548, 9312},
	{57, 280, 302, 1002, 2076, 4470, 9144},
	{58, 275, 297, 984, 2040, 4392, 8976},
	{59, 270, 292, 972, 2010, 4320, 8820},
	{60, 266, 288, 954, 1974, 4248, 8664},
	{61, 262, 283, 942, 1944, 4182, 8520},
	{62, 258, 279, 924, 1914, 4116, 8376},
	{63, 254, 274, 912, 1884, 4050, 8238},
	{64, 250, 270, 900, 1860, 3990, 8106},
	{65, 246, 266, 888, 1830, 3930, 7980},
	{66, 242, 262, 876, 1806, 3876, 7860},
	{67, 239, 258, 864, 1782, 3822, 7740},
	{68, 235, 254, 852, 1758, 3768, 7626},
	{69, 232, 251, 840, 1734, 3720, 7518},
	{70, 229, 247, 834, 1716, 3672, 7410},
	{71, 226, 244, 822, 1692, 3624, 7308},
	{72, 223, 241, 810, 1674, 3582, 7212},
	{73, 220, 238, 804, 1656, 3540, 7116},
	{74, 217, 235, 792, 1632, 3498, 7026},
	{75, 214, 232, 786, 1614, 3456, 6936},
	{76, 212, 229, 774, 1596, 3420, 6852},
	{77, 209, 226, 768, 1578, 3384, 6768},
	{78, 206, 223, 756, 1560, 3348, 6690},
	{79, 204, 221, 750, 1548, 3312, 6612},
	{80, 201, 218, 744, 1530, 3282, 6540},
	{81, 199, 215, 738, 1518, 3246, 6468},
	{82, 197, 213, 726, 1500, 3216, 6396},
	{83, 194, 210, 720, 1488, 3186, 6330},
	{84, 192, 208, 714, 1470, 3156, 6264},
	{85, 190, 206, 708, 1458, 3126, 6198},
}

const distance1500 = 1500.0
const distanceMile = 1609.344

// seconds returns the row's time over meters. Distances between the tabulated
// ones are interpolated on a log-log scale; distances outside them are
// extrapolated from the nearest pair.
func (r vdotRow) seconds(meters float64) float64 {
	anchors := [...][2]float64{
		{distance1500, r.s1500},
		{distanceMile, r.sMile},
		{Distance5K, r.s5K},
		{Distance10K, r.s10K},
		{DistanceHalfMara, r.sHalf},
		{DistanceMarathon, r.sFull},
	}

	i := sort.Search(len(anchors), func(i int) bool { return anchors[i][0] >= meters })
	switch {
	case i < len(anchors) && anchors[i][0] == meters:
		return anchors[i][1]
	case i == 0:
		i = 1
	case i == len(anchors):
		i = len(anchors) - 1
	}
	lo, hi := anchors[i-1], anchors[i]

	frac := math.Log(meters/lo[0]) / math.Log(hi[0]/lo[0])
	return math.Exp(math.Log(lo[1]) + frac*(math.Log(hi[1])-math.Log(lo[1])))
}

// EstimateVDOT finds the VDOT whose equivalent time over meters matches
// minutes, interpolating between table rows. Results are clamped to the
// table's range and rounded to one decimal.
func EstimateVDOT(meters, minutes float64) float64 {
	if meters <= 0 || minutes <= 0 {
		return 0
	}
	secs := minutes * 60

	first, last := vdotTable[0], vdotTable[len(vdotTable)-1]
	if secs >= first.seconds(meters) {
		return first.vdot
	}
	if secs <= last.seconds(meters) {
		return last.vdot
	}

	// times fall as VDOT rises
	i := sort.Search(len(vdotTable), func(i int) bool { return vdotTable[i].seconds(meters) <= secs })
	slow, fast := vdotTable[i-1], vdotTable[i]
	slowT, fastT := slow.seconds(meters), fast.seconds(meters)

	v := slow.vdot + (slowT-secs)/(slowT-fastT)*(fast.vdot-slow.vdot)
	return math.Round(v*10) / 10
}

// VDOTTime predicts minutes over meters for a VDOT value
func VDOTTime(vdot, meters float64) float64 {
	if vdot <= 0 || meters <= 0 {
		return 0
	}

	i := sort.Search(len(vdotTable), func(i int) bool { return vdotTable[i].vdot >= vdot })
	switch {
	case i == 0:
		return vdotTable[0].seconds(meters) / 60
	case i == len(vdotTable):
		return vdotTable[len(vdotTable)-1].seconds(meters) / 60
	}

	lo, hi := vdotTable[i-1], vdotTable[i]
	frac := (vdot - lo.vdot) / (hi.vdot - lo.vdot)
	loT, hiT := lo.seconds(meters), hi.seconds(meters)
	return (loT + frac*(hiT-loT)) / 60
}

// VDOTLevel returns a human-readable fitness level for a VDOT value
func VDOTLevel(vdot float64) string {
	switch {
	case vdot >= 75:
		return "Elite"
	case vdot >= 65:
		return "Highly Competitive"
	case vdot >= 55:
		return "Competitive"
	case vdot >= 45:
		return "Advanced Recreational"
	case vdot >= 38:
		return "Intermediate"
	case vdot >= 30:
		return "Beginner"
	default:
		return "Novice"
	}
}

// FitnessScore is the VDOT derived from the prediction source record
type FitnessScore struct {
	VDOT           float64 `json:"vdot"`
	Level          string  `json:"level"`
	SourceDistance string  `json:"source_distance"`
}

// VDOTFromRecords scores the record SelectSourceRecord would predict from.
// Returns nil without records.
func VDOTFromRecords(records []PersonalRecord) *FitnessScore {
	source := SelectSourceRecord(records)
	if source == nil {
		return nil
	}
	vdot := EstimateVDOT(source.DistanceMeters, source.DurationMinutes)
	if vdot == 0 {
		return nil
	}
	return &FitnessScore{
		VDOT:           vdot,
		Level:          VDOTLevel(vdot),
		SourceDistance: source.Distance,
	}
}
