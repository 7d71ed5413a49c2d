// Package profile loads the build profiles of a Midas project.
package profile

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"midas/common"
	"midas/generate"

	"github.com/pelletier/go-toml"
)

// tomlProfileFile represents the profile file as it is encoded in TOML
type tomlProfileFile struct {
	Profiles []*tomlProfile `toml:"profiles"`
}

// tomlProfile represents a profile as it encoded in TOML
type tomlProfile struct {
	Name        string `toml:"name"`
	DefaultProf bool   `toml:"default"` // in absence of a selected profile, choose this profile
	BoundsCheck string `toml:"bounds-check"`
	Flares      bool   `toml:"flares"`
	OutputPath  string `toml:"output"`
}

// Profile is a validated build profile.
type Profile struct {
	Name        string
	BoundsCheck generate.BoundsCheck
	Flares      bool

	// OutputPath is where the generated IR is written.  It may be empty in
	// which case the output path is derived from the input path.
	OutputPath string
}

// Default returns the profile used when a project has no profile file.
func Default() *Profile {
	return &Profile{Name: "default", BoundsCheck: generate.BoundsTrap}
}

// Options returns the generator options of the profile.
func (p *Profile) Options() generate.Options {
	return generate.Options{BoundsCheck: p.BoundsCheck, Flares: p.Flares}
}

// Output returns the path generated IR is written to for the program at
// inputPath.
func (p *Profile) Output(inputPath string) string {
	if p.OutputPath != "" {
		return p.OutputPath
	}

	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + common.IRFileExt
}

// -----------------------------------------------------------------------------

// Load loads the profile file in dir and selects a profile.  `selectedProfile`
// can be empty if there is no selected profile in which case the profile
// marked as default is used.  If dir has no profile file, the default profile
// is returned.
func Load(dir, selectedProfile string) (*Profile, error) {
	buff, err := ioutil.ReadFile(filepath.Join(dir, common.ProfileFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if selectedProfile != "" {
				return nil, fmt.Errorf("no profile file to select profile `%s` from", selectedProfile)
			}

			return Default(), nil
		}

		return nil, err
	}

	return Parse(buff, selectedProfile)
}

// Parse parses the contents of a profile file and selects a profile from it.
func Parse(buff []byte, selectedProfile string) (*Profile, error) {
	tpf := &tomlProfileFile{}
	if err := toml.Unmarshal(buff, tpf); err != nil {
		return nil, err
	}

	if len(tpf.Profiles) == 0 {
		return nil, errors.New("profile file must provide at least one profile")
	}

	if selectedProfile != "" {
		for _, prof := range tpf.Profiles {
			if prof.Name == selectedProfile {
				return convertProfile(prof)
			}
		}

		return nil, fmt.Errorf("no profile named `%s`", selectedProfile)
	}

	for _, prof := range tpf.Profiles {
		if prof.DefaultProf {
			return convertProfile(prof)
		}
	}

	return nil, errors.New("no default profile; `--profile` argument is required")
}

// boundsCheckNames maps TOML bounds check policy names to policies
var boundsCheckNames = map[string]generate.BoundsCheck{
	"trap": generate.BoundsTrap,
	"none": generate.BoundsUnchecked,
}

// convertProfile converts a TOML profile into a `*Profile`
func convertProfile(tprof *tomlProfile) (*Profile, error) {
	if tprof.Name == "" {
		return nil, errors.New("profile must specify a name")
	}

	newProfile := &Profile{
		Name:        tprof.Name,
		BoundsCheck: generate.BoundsTrap,
		Flares:      tprof.Flares,
		OutputPath:  tprof.OutputPath,
	}

	if tprof.BoundsCheck != "" {
		if bc, ok := boundsCheckNames[tprof.BoundsCheck]; ok {
			newProfile.BoundsCheck = bc
		} else {
			return nil, fmt.Errorf("%s is not a valid bounds check policy in profile `%s`", tprof.BoundsCheck, tprof.Name)
		}
	}

	return newProfile, nil
}
