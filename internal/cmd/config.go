package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Alia5/keybridge/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit writes the flag defaults of one command as a config file.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to generate config for" enum:"run,peer,ctl"`
	Format  string `help:"Output format" enum:"json,yaml,toml" default:"json"`
	Output  string `help:"Destination file path (defaults to <command>.<format> in the current directory)"`
	Force   bool   `help:"Overwrite if the file already exists"`
}

// configTemplates lists the structs whose flags can live in a config file.
// Their names match configpaths' base names.
var configTemplates = map[string]reflect.Type{
	"run":  reflect.TypeOf(Run{}),
	"peer": reflect.TypeOf(PeerConn{}),
	"ctl":  reflect.TypeOf(CtlConn{}),
}

type templateFormat struct {
	ext     string
	marshal func(any) ([]byte, error)
}

var templateFormats = map[string]templateFormat{
	"json": {ext: "json", marshal: func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }},
	"yaml": {ext: "yaml", marshal: yaml.Marshal},
	"yml":  {ext: "yaml", marshal: yaml.Marshal},
	"toml": {ext: "toml", marshal: toml.Marshal},
}

func (c *ConfigInit) Run() error {
	format, ok := templateFormats[strings.ToLower(c.Format)]
	if !ok {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}
	t, ok := configTemplates[c.Command]
	if !ok {
		names := make([]string, 0, len(configTemplates))
		for n := range configTemplates {
			names = append(names, n)
		}
		slices.Sort(names)
		return fmt.Errorf("unknown command %q; expected one of %s", c.Command, strings.Join(names, ", "))
	}

	dest := c.Output
	if dest == "" {
		dest = c.Command + "." + format.ext
	}
	if _, err := os.Stat(dest); err == nil && !c.Force {
		return fmt.Errorf("%s exists; use --force to overwrite", dest)
	}

	data, err := format.marshal(buildMapFromStruct(t))
	if err != nil {
		return fmt.Errorf("encode %s template: %w", c.Command, err)
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

// lowerCamel turns a Go field name into a config key. Leading acronyms stay
// together: HID -> hid, URLPath -> urlPath.
func lowerCamel(s string) string {
	r := []rune(s)
	for i := 0; i < len(r) && unicode.IsUpper(r[i]); i++ {
		if i > 0 && i+1 < len(r) && unicode.IsLower(r[i+1]) {
			break
		}
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}

// buildMapFromStruct mirrors the kong layout of t: embedded groups nest under
// their prefix, plain fields carry their default tag converted to the field
// type. Positional args and subcommands are not configuration.
func buildMapFromStruct(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || len(f.Index) > 1 || f.Tag.Get("kong") == "-" {
			continue
		}
		if hasTag(f, "arg") || hasTag(f, "cmd") {
			continue
		}
		if hasTag(f, "embed") {
			sub := buildMapFromStruct(f.Type)
			if group := strings.TrimSuffix(f.Tag.Get("prefix"), "."); group != "" {
				out[group] = sub
				continue
			}
			for k, v := range sub {
				out[k] = v
			}
			continue
		}
		if v := typedDefault(f.Type, f.Tag.Get("default")); v != nil {
			out[lowerCamel(f.Name)] = v
		}
	}
	return out
}

func hasTag(f reflect.StructField, key string) bool {
	_, ok := f.Tag.Lookup(key)
	return ok
}

var durationType = reflect.TypeOf(time.Duration(0))

// typedDefault converts a kong default string into a value of t's kind.
// Durations stay strings so the template reads "200ms". A malformed default
// falls back to the zero value.
func typedDefault(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == durationType {
		if def == "" {
			return "0s"
		}
		return def
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := strconv.ParseInt(def, 10, t.Bits())
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, _ := strconv.ParseUint(def, 10, t.Bits())
		return n
	case reflect.Float32, reflect.Float64:
		f, _ := strconv.ParseFloat(def, t.Bits())
		return f
	case reflect.Struct:
		return buildMapFromStruct(t)
	case reflect.Slice:
		if def == "" {
			return []string{}
		}
		return strings.Split(def, ",")
	}
	return nil
}
