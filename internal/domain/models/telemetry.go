package models

// Field names shared by TelemetryInput, TelemetryPayload and validation errors.
const (
	FieldTimestamp = "timestamp_str"
	FieldMMSI      = "mmsi"
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
	FieldSOG       = "sog"
	FieldCOG       = "cog"
	FieldHeading   = "heading"
)

// TelemetryInput is what the operator typed. Every field is free text so that
// partial values survive while editing.
type TelemetryInput struct {
	Timestamp string `json:"timestamp_str"`
	MMSI      string `json:"mmsi"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	SOG       string `json:"sog"`
	COG       string `json:"cog"`
	Heading   string `json:"heading"`
}

// TelemetryPayload is the validated body of POST /predict. Numeric fields are
// always finite; the timestamp is forwarded verbatim.
type TelemetryPayload struct {
	Timestamp string  `json:"timestamp_str"`
	MMSI      float64 `json:"mmsi"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SOG       float64 `json:"sog"`
	COG       float64 `json:"cog"`
	Heading   float64 `json:"heading"`
}

// FormDefaults are the values the input panel is prefilled with.
type FormDefaults struct {
	Timestamp string `json:"timestamp_str" default:"27/02/2024 03:42:19"`
	MMSI      string `json:"mmsi" default:"24700"`
	Latitude  string `json:"latitude" default:"37.802"`
	Longitude string `json:"longitude" default:"-122.405"`
	SOG       string `json:"sog" default:"12.5"`
	COG       string `json:"cog" default:"245.0"`
	Heading   string `json:"heading" default:"242.0"`
}

// Input converts the defaults into an editable TelemetryInput.
func (d FormDefaults) Input() TelemetryInput {
	return TelemetryInput(d)
}
