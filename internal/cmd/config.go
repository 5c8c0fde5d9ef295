package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"

	"github.com/linux-surface/iptsgo/internal/configpaths"
)

// ConfigInit scaffolds a configuration file for a specific command.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to generate config for" enum:"daemon,record,print,plot"`
	Format  string `help:"Output format" enum:"json,yaml,toml" default:"json"`
	Output  string `help:"Destination file path (defaults to current directory)"`
	Force   bool   `help:"Overwrite if the file already exists"`
}

// The commands a config file can be generated for. Sessions, install and
// uninstall have no template.
var configCommands = map[string]any{
	"daemon": Daemon{},
	"record": Record{},
	"print":  Print{},
	"plot":   Plot{},
}

// Run generates a configuration template from the kong tags of the
// selected command struct.
func (c *ConfigInit) Run() error {
	command, ok := configCommands[c.Command]
	if !ok {
		return fmt.Errorf("no config template for command %q", c.Command)
	}

	format, ok := canonicalFormat(c.Format)
	if !ok {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}

	doc := configTemplate(reflect.TypeOf(command))

	dest := c.Output
	if dest == "" {
		dest = c.Command + "." + format
	}

	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}

	data, err := marshalConfig(doc, format)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

// canonicalFormat maps user spellings onto the supported formats, which
// double as the file extension.
func canonicalFormat(f string) (string, bool) {
	switch strings.ToLower(f) {
	case "json":
		return "json", true
	case "yaml", "yml":
		return "yaml", true
	case "toml":
		return "toml", true
	}
	return "", false
}

func marshalConfig(doc map[string]any, format string) ([]byte, error) {
	switch format {
	case "yaml":
		return yaml.Marshal(doc)
	case "toml":
		return toml.Marshal(doc)
	default:
		return json.MarshalIndent(doc, "", "  ")
	}
}

// configTemplate walks a kong command struct and builds the document a
// config file for it would contain: one key per flag, seeded with the
// default value from the tag. Positional arguments and hidden fields
// are left out; embedded groups become a section when they carry a
// prefix and are flattened into their parent otherwise.
func configTemplate(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	doc := map[string]any{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		_, isArg := field.Tag.Lookup("arg")
		_, isEmbed := field.Tag.Lookup("embed")

		switch {
		case !field.IsExported() || field.Tag.Get("kong") == "-":
			// hidden from kong, hidden from the template

		case isArg:
			// positional arguments have no place in a config file

		case isEmbed:
			section := strings.TrimSuffix(field.Tag.Get("prefix"), ".")
			if section == "" {
				maps.Copy(doc, configTemplate(field.Type))
			} else {
				doc[section] = configTemplate(field.Type)
			}

		default:
			if v := flagDefault(field.Type, field.Tag.Get("default")); v != nil {
				doc[configKey(field.Name)] = v
			}
		}
	}

	return doc
}

// configKey converts a Go field name into the lowerCamel key that kong
// expects in configuration files.
func configKey(name string) string {
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[size:]
}

// flagDefault turns a kong default tag into a typed template value. A
// missing or unparseable default yields the zero value, which is what
// kong itself would apply.
func flagDefault(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		v, _ := strconv.ParseBool(def)
		return v
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, _ := strconv.ParseInt(def, 10, 64)
		return v
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, _ := strconv.ParseUint(def, 10, 64)
		return v
	case reflect.Float32, reflect.Float64:
		v, _ := strconv.ParseFloat(def, 64)
		return v
	case reflect.Struct:
		return configTemplate(t)
	default:
		return nil
	}
}
