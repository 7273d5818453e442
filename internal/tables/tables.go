// Package tables holds the lookup tables identity fields are drawn from.
// Each table can be overridden by a file in the config directory; a missing
// or malformed file leaves the built-in default in place.
package tables

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table file base names, without extension.
const (
	FirstNamesFile   = "first_names"
	LastNamesFile    = "last_names"
	DomainsFile      = "domains"
	StreetsFile      = "streets"
	AddressesFile    = "addresses"
	PhoneFormatsFile = "phone_formats"
)

// Tables is the full set of lookup data used by the generator.
type Tables struct {
	FirstNames   map[string][]string // gender bucket -> first names
	LastNames    map[string][]string // country -> last names
	Domains      []string
	Streets      map[string][]string // country -> street names
	Cities       map[string][]string // state -> cities
	PhoneFormats map[string]string   // country -> template, '#' is a digit
	States       map[string][]string // country -> states
}

// Defaults returns the built-in tables.
func Defaults() *Tables {
	return &Tables{
		FirstNames:   defaultFirstNames(),
		LastNames:    defaultLastNames(),
		Domains:      defaultDomains(),
		Streets:      defaultStreets(),
		Cities:       defaultCities(),
		PhoneFormats: defaultPhoneFormats(),
		States:       defaultStates(),
	}
}

// Lookup returns table[key], or table[defaultKey] when key is absent.
// An exact match wins; otherwise keys are compared case-insensitively so
// "us" finds "US". The zero value is returned when neither key exists.
func Lookup[V any](table map[string]V, key, defaultKey string) V {
	if v, ok := find(table, key); ok {
		return v
	}
	v, _ := find(table, defaultKey)
	return v
}

// Resolve returns the key Lookup would use for key.
func Resolve[V any](table map[string]V, key, defaultKey string) string {
	if k, ok := foldKey(table, key); ok {
		return k
	}
	return defaultKey
}

func find[V any](table map[string]V, key string) (V, bool) {
	if k, ok := foldKey(table, key); ok {
		return table[k], true
	}
	var zero V
	return zero, false
}

// foldKey returns key if table holds it, otherwise the first key in sorted
// order that equals key under case folding.
func foldKey[V any](table map[string]V, key string) (string, bool) {
	if _, ok := table[key]; ok {
		return key, true
	}
	for _, k := range slices.Sorted(maps.Keys(table)) {
		if strings.EqualFold(k, key) {
			return k, true
		}
	}
	return "", false
}

// Source reads table files by name.
type Source interface {
	ReadFile(name string) ([]byte, error)
}

// LoadError describes a table that could not be loaded.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	if errors.Is(e.Err, fs.ErrNotExist) {
		return fmt.Sprintf("configuration file %s not found, using fallbacks", e.Table)
	}
	return fmt.Sprintf("%s has invalid format, using fallbacks: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads every table from src, validating each independently. Tables
// that are missing or malformed keep their default and are reported in the
// returned slice; Load itself never fails.
func Load(src Source) (*Tables, []*LoadError) {
	t := Defaults()
	var errs []*LoadError

	report := func(name string, err error) {
		if err != nil {
			errs = append(errs, &LoadError{Table: name, Err: err})
		}
	}

	report(FirstNamesFile, loadInto(src, FirstNamesFile, &t.FirstNames, validateFirstNames))
	report(LastNamesFile, loadInto(src, LastNamesFile, &t.LastNames, requireLists(DefaultCountry)))
	report(DomainsFile, loadInto(src, DomainsFile, &t.Domains, validateDomains))
	report(StreetsFile, loadInto(src, StreetsFile, &t.Streets, requireLists(DefaultCountry)))
	report(AddressesFile, loadInto(src, AddressesFile, &t.Cities, requireLists(DefaultState)))
	report(PhoneFormatsFile, loadInto(src, PhoneFormatsFile, &t.PhoneFormats, validatePhoneFormats))

	return t, errs
}

// loadInto decodes the first of name.json, name.yaml, name.yml found in src
// and stores it in dst only if validate accepts it.
func loadInto[T any](src Source, name string, dst *T, validate func(T) error) error {
	data, ext, err := readTable(src, name)
	if err != nil {
		return err
	}

	var v T
	switch ext {
	case ".json":
		err = json.Unmarshal(data, &v)
	default:
		err = yaml.Unmarshal(data, &v)
	}
	if err != nil {
		return fmt.Errorf("decode %s%s: %w", name, ext, err)
	}

	if err := validate(v); err != nil {
		return err
	}

	*dst = v
	return nil
}

func readTable(src Source, name string) ([]byte, string, error) {
	var firstErr error
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		data, err := src.ReadFile(name + ext)
		if err == nil {
			return data, ext, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, "", firstErr
}

func validateFirstNames(m map[string][]string) error {
	for _, g := range Genders {
		if len(m[g]) == 0 {
			return fmt.Errorf("missing required key %q", g)
		}
	}
	return validateLists(m)
}

func requireLists(defaultKey string) func(map[string][]string) error {
	return func(m map[string][]string) error {
		if len(m[defaultKey]) == 0 {
			return fmt.Errorf("missing default key %q", defaultKey)
		}
		return validateLists(m)
	}
}

func validateLists(m map[string][]string) error {
	for k, v := range m {
		if len(v) == 0 {
			return fmt.Errorf("key %q has an empty list", k)
		}
	}
	return nil
}

func validateDomains(d []string) error {
	if len(d) == 0 {
		return errors.New("domain list is empty")
	}
	for _, s := range d {
		if strings.TrimSpace(s) == "" {
			return errors.New("domain list contains a blank entry")
		}
	}
	return nil
}

func validatePhoneFormats(m map[string]string) error {
	if m[DefaultCountry] == "" {
		return fmt.Errorf("missing default key %q", DefaultCountry)
	}
	for k, v := range m {
		if v == "" {
			return fmt.Errorf("key %q has an empty template", k)
		}
	}
	return nil
}
