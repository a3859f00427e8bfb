package tax

import "strings"

// Jurisdiction is a canonical two-letter U.S. state (or DC) code.
type Jurisdiction string

const (
	AL Jurisdiction = "AL"
	AK Jurisdiction = "AK"
	AZ Jurisdiction = "AZ"
	AR Jurisdiction = "AR"
	CA Jurisdiction = "CA"
	CO Jurisdiction = "CO"
	CT Jurisdiction = "CT"
	DE Jurisdiction = "DE"
	DC Jurisdiction = "DC"
	FL Jurisdiction = "FL"
	GA Jurisdiction = "GA"
	HI Jurisdiction = "HI"
	ID Jurisdiction = "ID"
	IL Jurisdiction = "IL"
	IN Jurisdiction = "IN"
	IA Jurisdiction = "IA"
	KS Jurisdiction = "KS"
	KY Jurisdiction = "KY"
	LA Jurisdiction = "LA"
	ME Jurisdiction = "ME"
	MD Jurisdiction = "MD"
	MA Jurisdiction = "MA"
	MI Jurisdiction = "MI"
	MN Jurisdiction = "MN"
	MS Jurisdiction = "MS"
	MO Jurisdiction = "MO"
	MT Jurisdiction = "MT"
	NE Jurisdiction = "NE"
	NV Jurisdiction = "NV"
	NH Jurisdiction = "NH"
	NJ Jurisdiction = "NJ"
	NM Jurisdiction = "NM"
	NY Jurisdiction = "NY"
	NC Jurisdiction = "NC"
	ND Jurisdiction = "ND"
	OH Jurisdiction = "OH"
	OK Jurisdiction = "OK"
	OR Jurisdiction = "OR"
	PA Jurisdiction = "PA"
	RI Jurisdiction = "RI"
	SC Jurisdiction = "SC"
	SD Jurisdiction = "SD"
	TN Jurisdiction = "TN"
	TX Jurisdiction = "TX"
	UT Jurisdiction = "UT"
	VT Jurisdiction = "VT"
	VA Jurisdiction = "VA"
	WA Jurisdiction = "WA"
	WV Jurisdiction = "WV"
	WI Jurisdiction = "WI"
	WY Jurisdiction = "WY"
)

// All lists every known jurisdiction in display order.
var All = []Jurisdiction{
	AL, AK, AZ, AR, CA, CO, CT, DE, DC, FL, GA, HI, ID, IL, IN, IA, KS, KY, LA,
	ME, MD, MA, MI, MN, MS, MO, MT, NE, NV, NH, NJ, NM, NY, NC, ND, OH, OK,
	OR, PA, RI, SC, SD, TN, TX, UT, VT, VA, WA, WV, WI, WY,
}

var names = map[Jurisdiction]string{
	AL: "Alabama", AK: "Alaska", AZ: "Arizona", AR: "Arkansas", CA: "California",
	CO: "Colorado", CT: "Connecticut", DE: "Delaware", DC: "District of Columbia",
	FL: "Florida", GA: "Georgia", HI: "Hawaii", ID: "Idaho", IL: "Illinois",
	IN: "Indiana", IA: "Iowa", KS: "Kansas", KY: "Kentucky", LA: "Louisiana",
	ME: "Maine", MD: "Maryland", MA: "Massachusetts", MI: "Michigan",
	MN: "Minnesota", MS: "Mississippi", MO: "Missouri", MT: "Montana",
	NE: "Nebraska", NV: "Nevada", NH: "New Hampshire", NJ: "New Jersey",
	NM: "New Mexico", NY: "New York", NC: "North Carolina", ND: "North Dakota",
	OH: "Ohio", OK: "Oklahoma", OR: "Oregon", PA: "Pennsylvania",
	RI: "Rhode Island", SC: "South Carolina", SD: "South Dakota",
	TN: "Tennessee", TX: "Texas", UT: "Utah", VT: "Vermont", VA: "Virginia",
	WA: "Washington", WV: "West Virginia", WI: "Wisconsin", WY: "Wyoming",
}

// abbreviations maps the short forms found in published bracket tables
// (keys are already folded by foldKey) to canonical codes.
var abbreviations = map[string]Jurisdiction{
	"ALA": AL, "ARIZ": AZ, "ARK": AR, "CALIF": CA, "CAL": CA, "COLO": CO,
	"CONN": CT, "DEL": DE, "FLA": FL, "ILL": IL, "IND": IN, "KANS": KS,
	"KAN": KS, "MASS": MA, "MICH": MI, "MINN": MN, "MISS": MS, "MONT": MT,
	"NEB": NE, "NEBR": NE, "NEV": NV, "OKLA": OK, "ORE": OR, "TENN": TN,
	"TEX": TX, "WASH": WA, "W VA": WV, "WIS": WI, "WISC": WI, "WYO": WY,
	"N MEX": NM, "N DAK": ND, "S DAK": SD, "N C": NC, "S C": SC,
	"R I": RI, "N H": NH, "N J": NJ, "N Y": NY, "D C": DC,
	"WASHINGTON DC": DC, "WASHINGTON D C": DC,
}

var lookup = buildLookup()

func buildLookup() map[string]Jurisdiction {
	m := make(map[string]Jurisdiction, len(All)*2+len(abbreviations))
	for _, j := range All {
		m[string(j)] = j
		m[foldKey(names[j])] = j
	}
	for k, j := range abbreviations {
		m[k] = j
	}
	return m
}

// foldKey upper-cases s, drops periods and collapses runs of whitespace.
func foldKey(s string) string {
	s = strings.ReplaceAll(s, ".", " ")
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// Normalize maps a free-form jurisdiction ("ny", "Calif", "MASS.", "New York")
// to its canonical code. Input that matches nothing is returned trimmed and
// upper-cased so it can still be looked up; it resolves to the default
// schedule later.
func Normalize(s string) Jurisdiction {
	key := foldKey(s)
	if j, ok := lookup[key]; ok {
		return j
	}
	return Jurisdiction(key)
}

// Known reports whether j is one of the enumerated codes.
func (j Jurisdiction) Known() bool {
	_, ok := names[j]
	return ok
}

// Name returns the full name, or the code itself when unknown.
func (j Jurisdiction) Name() string {
	if n, ok := names[j]; ok {
		return n
	}
	return string(j)
}

// HasCityTax reports whether residents of a city in j can owe the city surtax.
func (j Jurisdiction) HasCityTax() bool {
	return j == CityTaxJurisdiction
}

func (j Jurisdiction) String() string {
	return string(j)
}
