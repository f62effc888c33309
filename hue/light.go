package hue

type LightOn struct {
	On bool `json:"on"`
}

type Dimming struct {
	Brightness  float64 `json:"brightness"`
	MinDimLevel float64 `json:"min_dim_level,omitempty"`
}

type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ColorTemperature struct {
	Mirek      *int `json:"mirek"`
	MirekValid bool `json:"mirek_valid"`
}

type Light struct {
	ID               string            `json:"id"`
	IDv1             string            `json:"id_v1,omitempty"`
	Metadata         Metadata          `json:"metadata"`
	Owner            ResourceRef       `json:"owner"`
	On               *LightOn          `json:"on,omitempty"`
	Dimming          *Dimming          `json:"dimming,omitempty"`
	ColorTemperature *ColorTemperature `json:"color_temperature,omitempty"`
}
