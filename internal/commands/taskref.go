package commands

import (
	"errors"
	"strconv"
	"strings"

	"todoctl/internal/service"
)

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the 1-based task number printed by list.
//
// Parsing rules:
// 1. No args → error: task reference required
// 2. First arg all digits (optionally prefixed with '#') → that number
// 3. More than one arg → error: too many arguments
// 4. Otherwise → error: invalid task reference: <ref>
func ParseTaskRef(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return 0, usagef("too many arguments: %s", strings.Join(args[1:], " "))
	}

	ref := strings.TrimPrefix(args[0], "#")
	if !isAllDigits(ref) {
		return 0, usagef("invalid task reference: %s", args[0])
	}
	num, err := strconv.Atoi(ref)
	if err != nil || num < 1 {
		return 0, usagef("task number out of range: %s", args[0])
	}
	return num, nil
}

// taskAt returns the task with 1-based number num.
func taskAt(list []service.Task, num int) (service.Task, error) {
	if num < 1 || num > len(list) {
		return service.Task{}, usagef("task number out of range: %d", num)
	}
	return list[num-1], nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
