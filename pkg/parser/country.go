package parser

import "strings"

// DefaultUsageLocation is used when the country is missing or unknown.
const DefaultUsageLocation = "US"

// countries maps lowercased country names, common synonyms and ISO
// alpha-2 codes to the usage location expected by license assignment.
var countries = map[string]string{
	"afghanistan": "AF", "af": "AF", "albania": "AL", "al": "AL", "algeria": "DZ", "dz": "DZ",
	"andorra": "AD", "ad": "AD", "angola": "AO", "ao": "AO", "argentina": "AR", "ar": "AR",
	"armenia": "AM", "am": "AM", "australia": "AU", "au": "AU", "austria": "AT", "at": "AT",
	"azerbaijan": "AZ", "az": "AZ", "bahrain": "BH", "bh": "BH", "bangladesh": "BD", "bd": "BD",
	"belarus": "BY", "by": "BY", "belgium": "BE", "be": "BE", "belize": "BZ", "bz": "BZ",
	"benin": "BJ", "bj": "BJ", "bhutan": "BT", "bt": "BT", "bolivia": "BO", "bo": "BO",
	"bosnia and herzegovina": "BA", "bosnia": "BA", "ba": "BA", "botswana": "BW", "bw": "BW",
	"brazil": "BR", "br": "BR", "brunei": "BN", "bn": "BN", "bulgaria": "BG", "bg": "BG",
	"burkina faso": "BF", "bf": "BF", "burundi": "BI", "bi": "BI", "cambodia": "KH", "kh": "KH",
	"cameroon": "CM", "cm": "CM", "canada": "CA", "ca": "CA", "cape verde": "CV", "cv": "CV",
	"central african republic": "CF", "cf": "CF", "chad": "TD", "td": "TD", "chile": "CL", "cl": "CL",
	"china": "CN", "cn": "CN", "colombia": "CO", "co": "CO", "comoros": "KM", "km": "KM",
	"congo": "CG", "cg": "CG", "drc": "CD", "cd": "CD", "costa rica": "CR", "cr": "CR",
	"croatia": "HR", "hr": "HR", "cuba": "CU", "cu": "CU", "cyprus": "CY", "cy": "CY",
	"czech republic": "CZ", "czechia": "CZ", "cz": "CZ", "denmark": "DK", "dk": "DK",
	"djibouti": "DJ", "dj": "DJ", "dominican republic": "DO", "do": "DO", "ecuador": "EC", "ec": "EC",
	"egypt": "EG", "eg": "EG", "el salvador": "SV", "salvador": "SV", "sv": "SV",
	"eritrea": "ER", "er": "ER", "estonia": "EE", "ee": "EE", "ethiopia": "ET", "et": "ET",
	"fiji": "FJ", "fj": "FJ", "finland": "FI", "fi": "FI", "france": "FR", "fr": "FR",
	"gabon": "GA", "ga": "GA", "gambia": "GM", "gm": "GM", "georgia": "GE", "ge": "GE",
	"germany": "DE", "de": "DE", "ghana": "GH", "gh": "GH", "greece": "GR", "gr": "GR",
	"guatemala": "GT", "gt": "GT", "guinea": "GN", "gn": "GN", "guinea-bissau": "GW", "gw": "GW",
	"guyana": "GY", "gy": "GY", "haiti": "HT", "ht": "HT", "honduras": "HN", "hn": "HN",
	"hong kong": "HK", "hk": "HK", "hungary": "HU", "hu": "HU", "iceland": "IS", "is": "IS",
	"india": "IN", "in": "IN", "indonesia": "ID", "id": "ID", "iran": "IR", "ir": "IR",
	"iraq": "IQ", "iq": "IQ", "ireland": "IE", "ie": "IE", "israel": "IL", "il": "IL",
	"italy": "IT", "it": "IT", "jamaica": "JM", "jm": "JM", "japan": "JP", "jp": "JP",
	"jordan": "JO", "jo": "JO", "kazakhstan": "KZ", "kz": "KZ", "kenya": "KE", "ke": "KE",
	"north korea": "KP", "kp": "KP", "south korea": "KR", "korea": "KR", "kr": "KR",
	"kosovo": "XK", "xk": "XK", "kuwait": "KW", "kw": "KW", "kyrgyzstan": "KG", "kg": "KG",
	"laos": "LA", "la": "LA", "latvia": "LV", "lv": "LV", "lebanon": "LB", "lb": "LB",
	"lesotho": "LS", "ls": "LS", "liberia": "LR", "lr": "LR", "libya": "LY", "ly": "LY",
	"liechtenstein": "LI", "li": "LI", "lithuania": "LT", "lt": "LT", "luxembourg": "LU", "lu": "LU",
	"madagascar": "MG", "mg": "MG", "malawi": "MW", "mw": "MW", "malaysia": "MY", "my": "MY",
	"maldives": "MV", "mv": "MV", "mali": "ML", "ml": "ML", "malta": "MT", "mt": "MT",
	"mauritania": "MR", "mr": "MR", "mauritius": "MU", "mu": "MU", "mexico": "MX", "mx": "MX",
	"micronesia": "FM", "fm": "FM", "moldova": "MD", "md": "MD", "monaco": "MC", "mc": "MC",
	"mongolia": "MN", "mn": "MN", "montenegro": "ME", "me": "ME", "morocco": "MA", "ma": "MA",
	"mozambique": "MZ", "mz": "MZ", "myanmar": "MM", "burma": "MM", "mm": "MM",
	"namibia": "NA", "na": "NA", "nauru": "NR", "nr": "NR", "nepal": "NP", "np": "NP",
	"netherlands": "NL", "nl": "NL", "new zealand": "NZ", "nz": "NZ", "nicaragua": "NI", "ni": "NI",
	"niger": "NE", "ne": "NE", "nigeria": "NG", "ng": "NG", "north macedonia": "MK", "macedonia": "MK", "mk": "MK",
	"norway": "NO", "no": "NO", "oman": "OM", "om": "OM", "pakistan": "PK", "pk": "PK",
	"palau": "PW", "pw": "PW", "palestine": "PS", "ps": "PS", "panama": "PA", "pa": "PA",
	"papua new guinea": "PG", "png": "PG", "pg": "PG", "paraguay": "PY", "py": "PY",
	"peru": "PE", "pe": "PE", "philippines": "PH", "ph": "PH", "poland": "PL", "pl": "PL",
	"portugal": "PT", "pt": "PT", "qatar": "QA", "qa": "QA", "romania": "RO", "ro": "RO",
	"russia": "RU", "russian federation": "RU", "ru": "RU", "rwanda": "RW", "rw": "RW",
	"samoa": "WS", "ws": "WS", "san marino": "SM", "sm": "SM", "saudi arabia": "SA", "sa": "SA",
	"senegal": "SN", "sn": "SN", "serbia": "RS", "rs": "RS", "seychelles": "SC", "sc": "SC",
	"sierra leone": "SL", "sl": "SL", "singapore": "SG", "sg": "SG", "slovakia": "SK", "sk": "SK",
	"slovenia": "SI", "si": "SI", "solomon islands": "SB", "sb": "SB", "somalia": "SO", "so": "SO",
	"south africa": "ZA", "za": "ZA", "south sudan": "SS", "ss": "SS", "spain": "ES", "es": "ES",
	"sri lanka": "LK", "lk": "LK", "sudan": "SD", "sd": "SD", "suriname": "SR", "sr": "SR",
	"sweden": "SE", "se": "SE", "switzerland": "CH", "ch": "CH", "syria": "SY", "sy": "SY",
	"taiwan": "TW", "tw": "TW", "tajikistan": "TJ", "tj": "TJ", "tanzania": "TZ", "tz": "TZ",
	"thailand": "TH", "th": "TH", "timor-leste": "TL", "east timor": "TL", "tl": "TL",
	"togo": "TG", "tg": "TG", "tonga": "TO", "to": "TO", "trinidad and tobago": "TT", "trinidad": "TT", "tt": "TT",
	"tunisia": "TN", "tn": "TN", "turkey": "TR", "tr": "TR", "turkmenistan": "TM", "tm": "TM",
	"tuvalu": "TV", "tv": "TV", "uganda": "UG", "ug": "UG", "ukraine": "UA", "ua": "UA",
	"united arab emirates": "AE", "uae": "AE", "ae": "AE",
	"united kingdom": "GB", "uk": "GB", "england": "GB", "scotland": "GB", "wales": "GB", "gb": "GB",
	"united states": "US", "usa": "US", "us": "US", "uruguay": "UY", "uy": "UY",
	"uzbekistan": "UZ", "uz": "UZ", "vanuatu": "VU", "vu": "VU",
	"vatican city": "VA", "vatican": "VA", "va": "VA", "venezuela": "VE", "ve": "VE",
	"vietnam": "VN", "vn": "VN", "yemen": "YE", "ye": "YE", "zambia": "ZM", "zm": "ZM",
	"zimbabwe": "ZW", "zw": "ZW",
}

// MapCountry returns the two-letter usage location for a free-text country,
// falling back to DefaultUsageLocation.
func MapCountry(country string) string {
	key := strings.ToLower(strings.TrimSpace(country))
	if code, ok := countries[key]; ok {
		return code
	}
	return DefaultUsageLocation
}
