package console

import "fmt"

const (
	green   = "\033[32m"
	blue    = "\033[34m"
	cyan    = "\033[36m"
	yellow  = "\033[33m"
	magenta = "\033[35m"
	red     = "\033[31m"
	gray    = "\033[90m"
	reset   = "\033[0m"
)

var methodColors = map[string]string{
	"GET":    green,
	"POST":   blue,
	"PUT":    cyan,
	"DELETE": yellow,
	"PATCH":  magenta,
}

// routeLine renders a method and path the way the console prints its routes
// and requests in development.
func routeLine(method, path string, status int) string {
	color, ok := methodColors[method]
	if !ok {
		color = gray
	}
	line := fmt.Sprintf("[%s %-7s%s] %s", color, method, reset, path)
	if status >= 400 {
		line += fmt.Sprintf(" %s%d%s", red, status, reset)
	} else if status > 0 {
		line += fmt.Sprintf(" %d", status)
	}
	return line
}
