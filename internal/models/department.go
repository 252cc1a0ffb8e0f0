package models

import (
	"fmt"
	"slices"
)

// DepartmentCode is a French department code ("01", "2A", "974", ...).
type DepartmentCode string

// departments maps every supported department code to its name.
var departments = map[DepartmentCode]string{
	"01": "Ain", "02": "Aisne", "03": "Allier", "04": "Alpes-de-Haute-Provence",
	"05": "Hautes-Alpes", "06": "Alpes-Maritimes", "07": "Ardèche", "08": "Ardennes",
	"09": "Ariège", "10": "Aube", "11": "Aude", "12": "Aveyron",
	"13": "Bouches-du-Rhône", "14": "Calvados", "15": "Cantal", "16": "Charente",
	"17": "Charente-Maritime", "18": "Cher", "19": "Corrèze", "2A": "Corse-du-Sud",
	"2B": "Haute-Corse", "21": "Côte-d'Or", "22": "Côtes-d'Armor", "23": "Creuse",
	"24": "Dordogne", "25": "Doubs", "26": "Drôme", "27": "Eure",
	"28": "Eure-et-Loir", "29": "Finistère", "30": "Gard", "31": "Haute-Garonne",
	"32": "Gers", "33": "Gironde", "34": "Hérault", "35": "Ille-et-Vilaine",
	"36": "Indre", "37": "Indre-et-Loire", "38": "Isère", "39": "Jura",
	"40": "Landes", "41": "Loir-et-Cher", "42": "Loire", "43": "Haute-Loire",
	"44": "Loire-Atlantique", "45": "Loiret", "46": "Lot", "47": "Lot-et-Garonne",
	"48": "Lozère", "49": "Maine-et-Loire", "50": "Manche", "51": "Marne",
	"52": "Haute-Marne", "53": "Mayenne", "54": "Meurthe-et-Moselle", "55": "Meuse",
	"56": "Morbihan", "57": "Moselle", "58": "Nièvre", "59": "Nord",
	"60": "Oise", "61": "Orne", "62": "Pas-de-Calais", "63": "Puy-de-Dôme",
	"64": "Pyrénées-Atlantiques", "65": "Hautes-Pyrénées", "66": "Pyrénées-Orientales", "67": "Bas-Rhin",
	"68": "Haut-Rhin", "69": "Rhône", "70": "Haute-Saône", "71": "Saône-et-Loire",
	"72": "Sarthe", "73": "Savoie", "74": "Haute-Savoie", "75": "Paris",
	"76": "Seine-Maritime", "77": "Seine-et-Marne", "78": "Yvelines", "79": "Deux-Sèvres",
	"80": "Somme", "81": "Tarn", "82": "Tarn-et-Garonne", "83": "Var",
	"84": "Vaucluse", "85": "Vendée", "86": "Vienne", "87": "Haute-Vienne",
	"88": "Vosges", "89": "Yonne", "90": "Territoire de Belfort", "91": "Essonne",
	"92": "Hauts-de-Seine", "93": "Seine-Saint-Denis", "94": "Val-de-Marne", "95": "Val-d'Oise",
	"971": "Guadeloupe", "972": "Martinique", "973": "Guyane", "974": "La Réunion",
	"976": "Mayotte",
}

// Department pairs a code with its display name.
type Department struct {
	Code DepartmentCode `json:"code"`
	Name string         `json:"name"`
}

// ParseDepartmentCode returns raw as a DepartmentCode if it belongs to the enumeration.
func ParseDepartmentCode(raw string) (DepartmentCode, error) {
	code := DepartmentCode(raw)
	if _, ok := departments[code]; !ok {
		return "", invalidFormat("departement", raw, "unknown department code")
	}
	return code, nil
}

// DepartmentCodes returns every supported code in ascending order.
func DepartmentCodes() []DepartmentCode {
	codes := make([]DepartmentCode, 0, len(departments))
	for code := range departments {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// Departments returns the enumeration ordered by code.
func Departments() []Department {
	codes := DepartmentCodes()
	result := make([]Department, 0, len(codes))
	for _, code := range codes {
		result = append(result, Department{Code: code, Name: departments[code]})
	}
	return result
}

// Name returns the department name, or an empty string for an unknown code.
func (d DepartmentCode) Name() string {
	return departments[d]
}

// Label formats the code the way department pickers display it: "75 - Paris".
func (d DepartmentCode) Label() string {
	return fmt.Sprintf("%s - %s", d, departments[d])
}
