package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// Host flag names. The host passes them with a single dash.
const (
	flagPort          = "port"
	flagPluginUUID    = "pluginUUID"
	flagRegisterEvent = "registerEvent"
	flagInfo          = "info"
	flagInspector     = "inspector"
)

var knownFlags = []string{flagPort, flagPluginUUID, flagRegisterEvent, flagInfo, flagInspector}

// Parse reads the launch arguments (without the program name).
//
// Two forms are accepted:
//
//	-port 28196 -pluginUUID c1 -registerEvent registerPlugin -info '{...}' [-inspector '{...}']
//	28196 c1 registerPlugin '{...}' ['{...}']
//
// Parse never fails hard: a malformed launch returns the best descriptor it
// could build together with an error describing what is wrong. Callers log
// the error and continue standalone when the descriptor is not Valid.
func Parse(args []string) (Descriptor, error) {
	if len(args) == 0 {
		return Descriptor{}, fmt.Errorf("%w: no launch arguments", ErrMissingArgument)
	}

	values, err := collect(args)
	if err != nil {
		return Descriptor{}, err
	}
	return build(values)
}

// rawValues holds the five launch values as strings.
type rawValues struct {
	port, uuid, registerEvent, info, inspector string
}

func collect(args []string) (rawValues, error) {
	if !strings.HasPrefix(args[0], "-") {
		return positional(args), nil
	}

	var v rawValues
	fs := pflag.NewFlagSet("graydeck", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&v.port, flagPort, "", "host WebSocket port")
	fs.StringVar(&v.uuid, flagPluginUUID, "", "instance identifier used in the handshake")
	fs.StringVar(&v.registerEvent, flagRegisterEvent, "", "handshake event name")
	fs.StringVar(&v.info, flagInfo, "", "JSON application/plugin metadata")
	fs.StringVar(&v.inspector, flagInspector, "", "JSON inspected action info (inspector mode)")
	fs.ParseErrorsWhitelist.UnknownFlags = true

	if err := fs.Parse(normalizeFlags(args)); err != nil {
		return rawValues{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	// Remaining positionals fill any values the flags left empty.
	rest := positional(fs.Args())
	fill(&v.port, rest.port)
	fill(&v.uuid, rest.uuid)
	fill(&v.registerEvent, rest.registerEvent)
	fill(&v.info, rest.info)
	fill(&v.inspector, rest.inspector)
	return v, nil
}

func positional(args []string) rawValues {
	get := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	return rawValues{
		port:          get(0),
		uuid:          get(1),
		registerEvent: get(2),
		info:          get(3),
		inspector:     get(4),
	}
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// normalizeFlags rewrites the host's single-dash long flags (-port) into
// the double-dash form pflag expects.
func normalizeFlags(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = arg
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}
		name := strings.TrimPrefix(arg, "-")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name = name[:eq]
		}
		for _, known := range knownFlags {
			if name == known {
				out[i] = "-" + arg
				break
			}
		}
	}
	return out
}

func build(v rawValues) (Descriptor, error) {
	var (
		d    Descriptor
		errs []error
	)

	switch port, err := strconv.Atoi(strings.TrimSpace(v.port)); {
	case v.port == "":
		errs = append(errs, fmt.Errorf("%w: port", ErrMissingArgument))
	case err != nil || port <= 0 || port > 65535:
		errs = append(errs, fmt.Errorf("%w: port %q", ErrInvalidArgument, v.port))
	default:
		d.Port = port
	}

	d.UUID = v.uuid
	if d.UUID == "" {
		errs = append(errs, fmt.Errorf("%w: plugin uuid", ErrMissingArgument))
	}
	d.RegisterEvent = v.registerEvent
	if d.RegisterEvent == "" {
		errs = append(errs, fmt.Errorf("%w: register event", ErrMissingArgument))
	}

	if v.info != "" {
		if err := json.Unmarshal([]byte(v.info), &d.Info); err != nil {
			errs = append(errs, fmt.Errorf("%w: info: %w", ErrInvalidArgument, err))
		}
	}

	if v.inspector != "" {
		var insp InspectorInfo
		if err := json.Unmarshal([]byte(v.inspector), &insp); err != nil {
			errs = append(errs, fmt.Errorf("%w: inspector: %w", ErrInvalidArgument, err))
		} else {
			d.Inspector = &insp
		}
	}

	return d, errors.Join(errs...)
}
