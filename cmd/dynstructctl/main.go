package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/dynstruct"
	"github.com/danmuck/dynstruct/format"
	"github.com/danmuck/dynstruct/internal/logging"
	"github.com/danmuck/dynstruct/schemafile"
)

const usage = `usage: dynstructctl <command> [flags]

commands:
  template  write an example schema file
  layout    print a message's layout and static size
  pack      pack field values and print the bytes as hex
  unpack    unpack hex bytes and print each field
`

func main() {
	logging.ConfigureRuntime()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		l := logging.Logger()
		l.Fatal().Err(err).Msg("dynstructctl failed")
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "template":
		return runTemplate(args[1:], out)
	case "layout":
		return runLayout(args[1:], out)
	case "pack":
		return runPack(args[1:], out)
	case "unpack":
		return runUnpack(args[1:], out)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func runTemplate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("template", flag.ContinueOnError)
	output := fs.String("output", "schema.toml", "output path for the schema template")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := schemafile.WriteTemplate(*output, *force); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote schema template to %s\n", *output)
	return nil
}

func runLayout(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("layout", flag.ContinueOnError)
	schemaPath := fs.String("schema", "", "schema file path")
	message := fs.String("message", "", "message name (optional when the file declares one)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sc, err := loadSchema(*schemaPath, *message)
	if err != nil {
		return err
	}
	m, err := dynstruct.New(sc)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "message %s\nlayout  %s\nsize    %d\n", sc.Name, m.Layout(), m.StaticSize())
	for _, f := range sc.Fields {
		marker := ""
		if f.MatchLength {
			marker = " (match length)"
		}
		fmt.Fprintf(out, "  %-16s %s%s\n", f.Name, f.Segment(), marker)
	}
	return nil
}

func runPack(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("pack", flag.ContinueOnError)
	schemaPath := fs.String("schema", "", "schema file path")
	message := fs.String("message", "", "message name (optional when the file declares one)")
	var sets assignments
	fs.Var(&sets, "set", "field assignment name=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sc, err := loadSchema(*schemaPath, *message)
	if err != nil {
		return err
	}
	m, err := dynstruct.New(sc)
	if err != nil {
		return err
	}
	for _, raw := range sets {
		name, value, err := parseAssignment(raw)
		if err != nil {
			return err
		}
		f, err := m.Field(name)
		if err != nil {
			return err
		}
		v, err := parseValue(f, value)
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		if err := m.Set(name, v); err != nil {
			return err
		}
	}
	packed, err := m.Pack()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hex.EncodeToString(packed))
	return nil
}

func runUnpack(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("unpack", flag.ContinueOnError)
	schemaPath := fs.String("schema", "", "schema file path")
	message := fs.String("message", "", "message name (optional when the file declares one)")
	data := fs.String("hex", "", "packed bytes as hex")
	noValidate := fs.Bool("novalidate", false, "skip the validation hook")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sc, err := loadSchema(*schemaPath, *message)
	if err != nil {
		return err
	}
	buf, err := hex.DecodeString(strings.TrimSpace(*data))
	if err != nil {
		return fmt.Errorf("decode hex: %w", err)
	}
	m, err := dynstruct.FromBuffer(sc, buf, !*noValidate)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "message %s layout %s\n", sc.Name, m.Layout())
	for _, nv := range m.Values() {
		f, _ := m.Field(nv.Name)
		if f.Code.Kind() == format.KindPad {
			continue
		}
		fmt.Fprintf(out, "  %-16s %s\n", nv.Name, formatValue(nv.Value))
	}
	return nil
}

func loadSchema(path, message string) (*dynstruct.Schema, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("-schema is required")
	}
	set, err := schemafile.Load(path)
	if err != nil {
		return nil, err
	}
	return set.Select(message)
}
