package config

import "regexp"

// etpExclusionSet is the embedded list of common ETFs/ETNs/trusts excluded
// from the universe. Not exhaustive by design — the name-regex patterns
// below catch the long tail.
var etpExclusionSet = map[string]struct{}{
	"SPY": {}, "QQQ": {}, "IWM": {}, "DIA": {}, "VOO": {}, "VTI": {}, "EFA": {},
	"EEM": {}, "XLF": {}, "XLE": {}, "XLK": {}, "XLV": {}, "XLI": {}, "XLY": {},
	"XLP": {}, "XLU": {}, "XLB": {}, "XLRE": {}, "XLC": {}, "GLD": {}, "SLV": {},
	"USO": {}, "UNG": {}, "TLT": {}, "IEF": {}, "SHY": {}, "HYG": {}, "LQD": {},
	"AGG": {}, "BND": {}, "VNQ": {}, "GDX": {}, "GDXJ": {}, "XBI": {}, "SMH": {},
	"SOXX": {}, "ARKK": {}, "ARKG": {}, "ARKW": {}, "ARKQ": {}, "ARKF": {},
	"SQQQ": {}, "TQQQ": {}, "SPXU": {}, "SPXL": {}, "UVXY": {}, "VXX": {},
	"SVXY": {}, "UPRO": {}, "SDOW": {}, "SH": {}, "PSQ": {}, "DOG": {},
	"IVV": {}, "IJH": {}, "IJR": {}, "VEA": {}, "VWO": {}, "BIL": {}, "SGOV": {},
	"SCHD": {}, "VYM": {}, "JEPI": {}, "JEPQ": {}, "QYLD": {}, "DIVO": {},
	"KRE": {}, "XRT": {}, "XHB": {}, "ITB": {}, "XOP": {}, "OIH": {}, "KWEB": {},
	"FXI": {}, "EWJ": {}, "EWZ": {}, "INDA": {}, "ASHR": {}, "MCHI": {},
	"BITO": {}, "BITI": {}, "ETHE": {}, "GBTC": {}, "IBIT": {}, "FBTC": {},
	"HYD": {}, "MUB": {}, "PFF": {}, "PGX": {}, "VGT": {}, "IYR": {},
}

var etpNamePattern = regexp.MustCompile(`(?i)\b(ETF|FUND|TRUST)\b`)

// IsExcludedETP reports whether symbol or its issuer-provided name matches
// the ETP/fund exclusion set.
func IsExcludedETP(symbol, name string) bool {
	if _, ok := etpExclusionSet[symbol]; ok {
		return true
	}
	return etpNamePattern.MatchString(name)
}
