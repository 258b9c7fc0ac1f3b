// Package domain models seismic feature-prediction requests and results.
//
// # Requests
//
// A prediction request names an event hypothesis (source latitude,
// longitude, depth in km and origin time), a receiver (station code,
// latitude, longitude and elevation in km), a seismic phase such as "P" or
// "S", and the earth model whose travel-time tables answer the request.
// Upstream publishers write one JSON request per Kafka message:
//
//	{
//	  "id": "req-1",
//	  "prediction_type": "ARRIVAL_TIME",
//	  "phase": "P",
//	  "earth_model": "ak135",
//	  "source": {"latitude": 10, "longitude": 110, "depth_km": 35, "time": "2024-04-26T15:10:00Z"},
//	  "receiver": {"station": "ASAR", "latitude": -23.665, "longitude": 133.905, "elevation_km": 0.607},
//	  "corrections": ["ELEVATION_CORRECTION"]
//	}
//
// A missing id is replaced by a deterministic hash of the request fields
// (see [generateID]), so replays of the same request map to the same
// prediction key downstream. A missing origin time defaults to the Kafka
// message timestamp.
//
// # Units
//
// Depths and elevations are kilometers, latitudes and longitudes are
// degrees, source-receiver separation is the great-circle angle in degrees
// (see [GreatCircleDegrees]) and travel times are seconds.
//
// # Predictions
//
// A [FeaturePrediction] carries the corrected travel time and the arrival
// time (origin time plus travel time), the travel-time derivatives with
// respect to depth and distance, and one [Component] per contribution:
// the baseline table value and each requested correction.
package domain
