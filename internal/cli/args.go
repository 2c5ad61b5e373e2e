package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// splitArgs separates the arguments flutterwatch consumes from the ones it
// forwards to the tool. A flag is consumed only if fs defines it; its value
// is consumed with it. Everything else keeps its position in the forwarded
// list. "--" ends consumption and is itself dropped.
func splitArgs(fs *pflag.FlagSet, args []string) (consumed, forwarded []string, err error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			forwarded = append(forwarded, args[i+1:]...)
			break
		}
		f, inline := lookupFlag(fs, arg)
		if f == nil {
			forwarded = append(forwarded, arg)
			continue
		}
		consumed = append(consumed, arg)
		if inline || f.NoOptDefVal != "" {
			continue
		}
		if i+1 >= len(args) {
			return nil, nil, fmt.Errorf("flag needs an argument: %s", arg)
		}
		i++
		consumed = append(consumed, args[i])
	}
	return consumed, forwarded, nil
}

// lookupFlag resolves --name, --name=value, -x, -x=value and -xvalue. inline
// reports whether the value is part of arg. -xvalue only counts when x takes a
// value; otherwise the argument belongs to the tool.
func lookupFlag(fs *pflag.FlagSet, arg string) (*pflag.Flag, bool) {
	switch {
	case strings.HasPrefix(arg, "--") && len(arg) > 2:
		name, _, inline := strings.Cut(arg[2:], "=")
		return fs.Lookup(name), inline
	case strings.HasPrefix(arg, "-") && len(arg) >= 2 && arg[1] != '-':
		f := fs.ShorthandLookup(arg[1:2])
		rest := arg[2:]
		if f == nil || rest == "" || strings.HasPrefix(rest, "=") {
			return f, rest != ""
		}
		if f.NoOptDefVal != "" {
			return nil, false
		}
		return f, true
	}
	return nil, false
}
