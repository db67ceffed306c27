package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FileDefaults is the optional on-disk seed for a Store's tunables,
// grounded on itohio-golpm/pkg/config's yaml-tagged Config struct: a
// deployment pins its preferred sweep tunables once, and a host Config
// message can still override any of them for the running session (the
// file only seeds defaults, it never locks a value).
type FileDefaults struct {
	ClkDiv       *int   `yaml:"clk_div"`
	MaxIVPoints  *int   `yaml:"max_iv_points"`
	MinIscADC    *int   `yaml:"min_isc_adc"`
	MaxIscPoll   *int   `yaml:"max_isc_poll"`
	IscStableADC *int   `yaml:"isc_stable_adc"`
	MaxDiscards  *int   `yaml:"max_discards"`
	AspectWidth  *int16 `yaml:"aspect_width"`
	AspectHeight *int16 `yaml:"aspect_height"`
}

// LoadFileDefaults reads a YAML file of tunable overrides. A missing file
// is not an error: the compiled-in defaults apply, matching the way a
// board with no seed file still boots and answers the handshake.
func LoadFileDefaults(path string) (*FileDefaults, error) {
	if path == "" {
		return &FileDefaults{}, nil
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &FileDefaults{}, nil
	}
	if err != nil {
		return nil, err
	}
	var fd FileDefaults
	if err := yaml.Unmarshal(b, &fd); err != nil {
		return nil, err
	}
	return &fd, nil
}

// Apply overlays non-nil fields of fd onto t.
func (fd *FileDefaults) Apply(t Tunables) Tunables {
	if fd == nil {
		return t
	}
	if fd.ClkDiv != nil {
		t.ClkDiv = *fd.ClkDiv
	}
	if fd.MaxIVPoints != nil {
		t.MaxIVPoints = *fd.MaxIVPoints
	}
	if fd.MinIscADC != nil {
		t.MinIscADC = *fd.MinIscADC
	}
	if fd.MaxIscPoll != nil {
		t.MaxIscPoll = *fd.MaxIscPoll
	}
	if fd.IscStableADC != nil {
		t.IscStableADC = *fd.IscStableADC
	}
	if fd.MaxDiscards != nil {
		t.MaxDiscards = *fd.MaxDiscards
	}
	if fd.AspectWidth != nil {
		t.AspectWidth = *fd.AspectWidth
	}
	if fd.AspectHeight != nil {
		t.AspectHeight = *fd.AspectHeight
	}
	return t
}
