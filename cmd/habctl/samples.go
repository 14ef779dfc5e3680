package main

var earthLike = map[string]any{
	"pl_orbper": 365.25,
	"pl_rade":   1.0,
	"pl_bmasse": 1.0,
	"pl_eqt":    288,
	"st_teff":   5778,
	"st_rad":    1.0,
	"st_mass":   1.0,
	"sy_dist":   10.0,
	"sy_snum":   1,
	"sy_pnum":   1,
}

var hotJupiter = map[string]any{
	"pl_orbper": 3.5,
	"pl_rade":   11.0,
	"pl_bmasse": 318.0,
	"pl_eqt":    1200,
	"st_teff":   6000,
	"st_rad":    1.1,
	"st_mass":   1.05,
	"sy_dist":   50.0,
	"sy_snum":   1,
	"sy_pnum":   1,
}

var superEarth = map[string]any{
	"pl_orbper": 200.0,
	"pl_rade":   1.5,
	"pl_bmasse": 2.5,
	"pl_eqt":    250,
	"st_teff":   5500,
	"st_rad":    0.9,
	"st_mass":   0.95,
	"sy_dist":   25.0,
	"sy_snum":   1,
	"sy_pnum":   2,
}

// invalidPlanet has a non-numeric radius and is missing most fields.
var invalidPlanet = map[string]any{
	"pl_orbper": 365.25,
	"pl_rade":   "invalid",
}
