package domain

import (
	"context"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crisisops/sitrack/errors"
	"github.com/crisisops/sitrack/track"
)

// Fixtures is the YAML seed format for a deployment: locations first, then
// instances that may reference them by name.
type Fixtures struct {
	Locations []struct {
		Name string   `yaml:"name"`
		Lat  *float64 `yaml:"lat"`
		Lon  *float64 `yaml:"lon"`
	} `yaml:"locations"`
	Facilities []struct {
		Name     string `yaml:"name"`
		Location string `yaml:"location"`
	} `yaml:"facilities"`
	Persons []struct {
		FullName string `yaml:"full_name"`
		Location string `yaml:"location"`
	} `yaml:"persons"`
	Vehicles []struct {
		CallSign    string `yaml:"call_sign"`
		VehicleType string `yaml:"vehicle_type"`
		Location    string `yaml:"location"`
	} `yaml:"vehicles"`
	Assets []struct {
		Label    string `yaml:"label"`
		Location string `yaml:"location"`
	} `yaml:"assets"`
}

// LoadFixturesFile seeds the store from a YAML file.
func LoadFixturesFile(ctx context.Context, st *Store, locs track.LocationStore, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open fixtures file %s", path)
	}
	defer f.Close()
	return LoadFixtures(ctx, st, locs, f)
}

// LoadFixtures seeds the store from YAML fixture data. Instance location
// names must match a location defined in the same document.
func LoadFixtures(ctx context.Context, st *Store, locs track.LocationStore, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "read fixtures")
	}
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return errors.Wrap(err, "parse fixtures")
	}

	byName := make(map[string]track.LocationID, len(fx.Locations))
	for _, l := range fx.Locations {
		id, err := locs.Create(ctx, &track.Location{Name: l.Name, Lat: l.Lat, Lon: l.Lon})
		if err != nil {
			return errors.Wrapf(err, "create location %q", l.Name)
		}
		byName[l.Name] = id
	}

	resolve := func(name string) (*track.LocationID, error) {
		if name == "" {
			return nil, nil
		}
		id, ok := byName[name]
		if !ok {
			return nil, errors.Newf("fixture references unknown location %q", name)
		}
		return &id, nil
	}

	for _, f := range fx.Facilities {
		loc, err := resolve(f.Location)
		if err != nil {
			return err
		}
		if _, err := st.CreateFacility(ctx, f.Name, loc); err != nil {
			return err
		}
	}
	for _, p := range fx.Persons {
		loc, err := resolve(p.Location)
		if err != nil {
			return err
		}
		if _, err := st.CreatePerson(ctx, p.FullName, loc); err != nil {
			return err
		}
	}
	for _, v := range fx.Vehicles {
		loc, err := resolve(v.Location)
		if err != nil {
			return err
		}
		if _, err := st.CreateVehicle(ctx, v.CallSign, v.VehicleType, loc); err != nil {
			return err
		}
	}
	for _, a := range fx.Assets {
		loc, err := resolve(a.Location)
		if err != nil {
			return err
		}
		if _, err := st.CreateAsset(ctx, a.Label, loc); err != nil {
			return err
		}
	}
	return nil
}
