/*
	This file holds the Command type used by the segeval CLI.  A command is the
	command name followed by arguments and optional settings of the form "<key>=<value>".
*/

package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Command is a parsed command line like "match gt=a.lvol pred=b.lvol out=run1".
// The first item is the command name.
type Command []string

// String returns a space-separated command line
func (cmd Command) String() string {
	return strings.Join([]string(cmd), " ")
}

// Name returns the first argument which is assumed to be the name of the command.
func (cmd Command) Name() string {
	if len(cmd) == 0 {
		return ""
	}
	return cmd[0]
}

// Setting scans a command for any "key=value" argument and returns
// the value of the passed 'key'.
func (cmd Command) Setting(key string) (value string, found bool) {
	if len(cmd) > 1 {
		for _, arg := range cmd[1:] {
			elems := strings.SplitN(arg, "=", 2)
			if len(elems) == 2 && elems[0] == key {
				return elems[1], true
			}
		}
	}
	return
}

// IntSetting returns the integer value of a setting or the given default if absent.
func (cmd Command) IntSetting(key string, defaultValue int) (int, error) {
	s, found := cmd.Setting(key)
	if !found || s == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("setting %q must be an integer, got %q", key, s)
	}
	return i, nil
}

// BoolSetting returns the boolean value of a setting or false if absent.
func (cmd Command) BoolSetting(key string) (bool, error) {
	s, found := cmd.Setting(key)
	if !found || s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("setting %q must be a boolean, got %q", key, s)
	}
	return b, nil
}

// Argument returns the nth argument that is not a "key=value" setting, where
// the command name is argument 0.
func (cmd Command) Argument(pos int) string {
	var n int
	for _, arg := range cmd {
		if strings.Contains(arg, "=") {
			continue
		}
		if n == pos {
			return arg
		}
		n++
	}
	return ""
}
