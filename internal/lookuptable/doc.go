// Package lookuptable loads travel-time lookup tables and serves them by
// earth model and phase.
//
// A table file is one JSON document per (model, phase):
//
//	{
//	  "model": "ak135",
//	  "phase": "P",
//	  "units": "seconds",
//	  "travel_time": {
//	    "depths_km":     [0, 15, 35],
//	    "distances_deg": [0, 1, 2, 3],
//	    "values":        [[0.0, 19.2, 37.1, null], ...]
//	  },
//	  "modeling_error": { ... same layout, optional ... }
//	}
//
// Values are indexed [depth][distance]; null marks a sample the model does
// not define (shadow zones, phase cut-offs) and is decoded as NaN.
package lookuptable
