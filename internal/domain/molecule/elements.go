package molecule

import "strings"

// Element is one row of the periodic table.
type Element struct {
	Number int
	Symbol string
	// Mass is the standard atomic weight in g/mol. For elements without a
	// stable isotope it is the mass number of the longest-lived isotope.
	Mass float64
}

// periodicTable is indexed by atomic number - 1.
var periodicTable = []Element{
	{1, "H", 1.008}, {2, "He", 4.0026}, {3, "Li", 6.94}, {4, "Be", 9.0122},
	{5, "B", 10.81}, {6, "C", 12.011}, {7, "N", 14.007}, {8, "O", 15.999},
	{9, "F", 18.998}, {10, "Ne", 20.180}, {11, "Na", 22.990}, {12, "Mg", 24.305},
	{13, "Al", 26.982}, {14, "Si", 28.085}, {15, "P", 30.974}, {16, "S", 32.06},
	{17, "Cl", 35.45}, {18, "Ar", 39.948}, {19, "K", 39.098}, {20, "Ca", 40.078},
	{21, "Sc", 44.956}, {22, "Ti", 47.867}, {23, "V", 50.942}, {24, "Cr", 51.996},
	{25, "Mn", 54.938}, {26, "Fe", 55.845}, {27, "Co", 58.933}, {28, "Ni", 58.693},
	{29, "Cu", 63.546}, {30, "Zn", 65.38}, {31, "Ga", 69.723}, {32, "Ge", 72.630},
	{33, "As", 74.922}, {34, "Se", 78.971}, {35, "Br", 79.904}, {36, "Kr", 83.798},
	{37, "Rb", 85.468}, {38, "Sr", 87.62}, {39, "Y", 88.906}, {40, "Zr", 91.224},
	{41, "Nb", 92.906}, {42, "Mo", 95.95}, {43, "Tc", 98}, {44, "Ru", 101.07},
	{45, "Rh", 102.91}, {46, "Pd", 106.42}, {47, "Ag", 107.87}, {48, "Cd", 112.41},
	{49, "In", 114.82}, {50, "Sn", 118.71}, {51, "Sb", 121.76}, {52, "Te", 127.60},
	{53, "I", 126.90}, {54, "Xe", 131.29}, {55, "Cs", 132.91}, {56, "Ba", 137.33},
	{57, "La", 138.91}, {58, "Ce", 140.12}, {59, "Pr", 140.91}, {60, "Nd", 144.24},
	{61, "Pm", 145}, {62, "Sm", 150.36}, {63, "Eu", 151.96}, {64, "Gd", 157.25},
	{65, "Tb", 158.93}, {66, "Dy", 162.50}, {67, "Ho", 164.93}, {68, "Er", 167.26},
	{69, "Tm", 168.93}, {70, "Yb", 173.05}, {71, "Lu", 174.97}, {72, "Hf", 178.49},
	{73, "Ta", 180.95}, {74, "W", 183.84}, {75, "Re", 186.21}, {76, "Os", 190.23},
	{77, "Ir", 192.22}, {78, "Pt", 195.08}, {79, "Au", 196.97}, {80, "Hg", 200.59},
	{81, "Tl", 204.38}, {82, "Pb", 207.2}, {83, "Bi", 208.98}, {84, "Po", 209},
	{85, "At", 210}, {86, "Rn", 222}, {87, "Fr", 223}, {88, "Ra", 226},
	{89, "Ac", 227}, {90, "Th", 232.04}, {91, "Pa", 231.04}, {92, "U", 238.03},
	{93, "Np", 237}, {94, "Pu", 244}, {95, "Am", 243}, {96, "Cm", 247},
	{97, "Bk", 247}, {98, "Cf", 251}, {99, "Es", 252}, {100, "Fm", 257},
	{101, "Md", 258}, {102, "No", 259}, {103, "Lr", 266}, {104, "Rf", 267},
	{105, "Db", 268}, {106, "Sg", 269}, {107, "Bh", 270}, {108, "Hs", 269},
	{109, "Mt", 278}, {110, "Ds", 281}, {111, "Rg", 282}, {112, "Cn", 285},
	{113, "Nh", 286}, {114, "Fl", 289}, {115, "Mc", 290}, {116, "Lv", 293},
	{117, "Ts", 294}, {118, "Og", 294},
}

var elementsBySymbol = func() map[string]Element {
	m := make(map[string]Element, len(periodicTable))
	for _, e := range periodicTable {
		m[e.Symbol] = e
	}
	return m
}()

// organicValences lists the permitted valences of the organic subset, in
// ascending order.
var organicValences = map[string][]int{
	"B":  {3},
	"C":  {4},
	"N":  {3, 5},
	"O":  {2},
	"P":  {3, 5},
	"S":  {2, 4, 6},
	"F":  {1},
	"Cl": {1},
	"Br": {1},
	"I":  {1},
}

// aromaticSymbols are the lowercase spellings accepted for aromatic atoms.
var aromaticSymbols = map[string]string{
	"b": "B",
	"c": "C",
	"n": "N",
	"o": "O",
	"p": "P",
	"s": "S",
}

// LookupElement returns the element with the given symbol.
func LookupElement(symbol string) (Element, bool) {
	e, ok := elementsBySymbol[symbol]
	return e, ok
}

// IsElementSymbol reports whether symbol names a known element.
func IsElementSymbol(symbol string) bool {
	_, ok := elementsBySymbol[symbol]
	return ok
}

// IsOrganic reports whether symbol belongs to the organic subset.
func IsOrganic(symbol string) bool {
	_, ok := organicValences[symbol]
	return ok
}

// Valences returns the permitted valences of an organic-subset element, or
// nil for anything else.
func Valences(symbol string) []int {
	return organicValences[symbol]
}

// OrganicSymbols returns the organic subset in a fixed order.
func OrganicSymbols() []string {
	return []string{"B", "C", "N", "O", "P", "S", "F", "Cl", "Br", "I"}
}

// AromaticElement maps a lowercase aromatic spelling onto its element symbol.
func AromaticElement(lower string) (string, bool) {
	s, ok := aromaticSymbols[lower]
	return s, ok
}

// AromaticSpelling is the inverse of AromaticElement. It returns the
// lowercase form of symbol when one exists.
func AromaticSpelling(symbol string) (string, bool) {
	lower := strings.ToLower(symbol)
	if up, ok := aromaticSymbols[lower]; ok && up == symbol {
		return lower, true
	}
	return "", false
}
