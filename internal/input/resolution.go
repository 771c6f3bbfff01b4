package input

import (
	"fmt"
	"strconv"
	"strings"
)

// namedResolutions are the short names accepted by ParseResolution.
var namedResolutions = map[string]ResolutionOption{
	"QSIF": {160, 120},
	"QCIF": {176, 144},
	"CGA":  {320, 200},
	"QVGA": {320, 240},
	"CIF":  {352, 288},
	"VGA":  {640, 480},
	"SVGA": {800, 600},
	"XGA":  {1024, 768},
	"SXGA": {1280, 1024},
}

// ParseResolution accepts a name such as "VGA" or an explicit "WxH".
func ParseResolution(s string) (ResolutionOption, error) {
	s = strings.TrimSpace(s)
	if r, ok := namedResolutions[strings.ToUpper(s)]; ok {
		return r, nil
	}

	w, h, found := strings.Cut(strings.ToLower(s), "x")
	if !found {
		return ResolutionOption{}, &ValidationError{Field: "resolution", Value: s, Reason: "want a name like VGA or WxH"}
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return ResolutionOption{}, &ValidationError{Field: "resolution", Value: s, Reason: "width and height must be positive integers"}
	}
	return ResolutionOption{Width: width, Height: height}, nil
}

// ResolutionNames returns "NAME=WxH" pairs for help output, smallest first.
func ResolutionNames() []string {
	order := []string{"QSIF", "QCIF", "CGA", "QVGA", "CIF", "VGA", "SVGA", "XGA", "SXGA"}
	out := make([]string, 0, len(order))
	for _, name := range order {
		out = append(out, fmt.Sprintf("%s=%s", name, namedResolutions[name]))
	}
	return out
}

// indexOfResolution returns the list position of r, or -1.
func indexOfResolution(list []ResolutionOption, r ResolutionOption) int {
	for i, opt := range list {
		if opt == r {
			return i
		}
	}
	return -1
}
